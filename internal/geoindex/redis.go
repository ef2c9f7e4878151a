package geoindex

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ridecore/internal/domain"
)

const (
	positionsKey = "geoindex:drivers:positions"
	updatedAtKey = "geoindex:drivers:updated_at"
)

// RedisGeoIndex stores driver positions in a Redis geo set (GEOADD /
// GEORADIUS), alongside a parallel hash of last-update timestamps used to
// enforce the freshness window — the geo set itself carries no timestamp.
type RedisGeoIndex struct {
	client  *redis.Client
	maxAge  time.Duration
	bucket  *h3Bucketer
}

// NewRedisGeoIndex builds a RedisGeoIndex. maxAge is the freshness window;
// pass 0 to use MaxPositionAge.
func NewRedisGeoIndex(client *redis.Client, maxAge time.Duration) *RedisGeoIndex {
	if maxAge <= 0 {
		maxAge = MaxPositionAge
	}
	return &RedisGeoIndex{
		client: client,
		maxAge: maxAge,
		bucket: newH3Bucketer(),
	}
}

func (g *RedisGeoIndex) Upsert(ctx context.Context, driverID string, p domain.Point, now time.Time) error {
	pipe := g.client.TxPipeline()
	pipe.GeoAdd(ctx, positionsKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: p.Lon,
		Latitude:  p.Lat,
	})
	pipe.HSet(ctx, updatedAtKey, driverID, now.Unix())
	if _, err := pipe.Exec(ctx); err != nil {
		return ErrBackendUnavailable
	}

	g.bucket.track(driverID, p, now)
	return nil
}

func (g *RedisGeoIndex) Get(ctx context.Context, driverID string, now time.Time) (domain.Point, bool, error) {
	ts, err := g.client.HGet(ctx, updatedAtKey, driverID).Result()
	if err == redis.Nil {
		return domain.Point{}, false, nil
	}
	if err != nil {
		return domain.Point{}, false, ErrBackendUnavailable
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return domain.Point{}, false, nil
	}
	if now.Sub(time.Unix(sec, 0)) > g.maxAge {
		_ = g.Evict(ctx, driverID)
		return domain.Point{}, false, nil
	}

	positions, err := g.client.GeoPos(ctx, positionsKey, driverID).Result()
	if err != nil {
		return domain.Point{}, false, ErrBackendUnavailable
	}
	if len(positions) == 0 || positions[0] == nil {
		return domain.Point{}, false, nil
	}

	return domain.Point{Lat: positions[0].Latitude, Lon: positions[0].Longitude}, true, nil
}

func (g *RedisGeoIndex) Radius(ctx context.Context, center domain.Point, radiusKm float64, limit int) ([]Candidate, bool, error) {
	results, err := g.client.GeoRadius(ctx, positionsKey, center.Lon, center.Lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
		Count:     limit,
	}).Result()
	if err != nil {
		return nil, true, nil
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, Candidate{DriverID: r.Name, ApproxKm: r.Dist})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ApproxKm < candidates[j].ApproxKm })

	return candidates, false, nil
}

func (g *RedisGeoIndex) Evict(ctx context.Context, driverID string) error {
	pipe := g.client.TxPipeline()
	pipe.ZRem(ctx, positionsKey, driverID)
	pipe.HDel(ctx, updatedAtKey, driverID)
	if _, err := pipe.Exec(ctx); err != nil {
		return ErrBackendUnavailable
	}

	g.bucket.forget(driverID)
	return nil
}

// Sweep asks the in-process H3 bucketer for drivers it has observed going
// stale, and evicts only those — avoiding a full HGETALL scan of every
// driver on every tick.
func (g *RedisGeoIndex) Sweep(ctx context.Context, now time.Time) (int, error) {
	stale := g.bucket.stale(now, g.maxAge)
	evicted := 0
	for _, driverID := range stale {
		if err := g.Evict(ctx, driverID); err != nil {
			return evicted, err
		}
		evicted++
	}
	return evicted, nil
}
