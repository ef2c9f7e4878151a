// Package payment implements asynchronous settlement of trip payments
// through a pluggable payment-service-provider stub.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridecore/internal/domain"
	"ridecore/internal/store"
)

// DefaultSettlementDelay is the default delay before a payment is settled.
const DefaultSettlementDelay = 1 * time.Second

// PSP is the interface to an external payment provider. MockPSP is the
// stub implementation used until a real provider is wired in.
type PSP interface {
	// Charge returns a provider-specific response string on success.
	Charge(ctx context.Context, paymentID string, amount float64) (providerResponse string, err error)
}

// MockPSP simulates a provider that always succeeds.
type MockPSP struct{}

func (MockPSP) Charge(ctx context.Context, paymentID string, amount float64) (string, error) {
	return fmt.Sprintf(`{"provider":"simulated","id":"pay_%s"}`, paymentID), nil
}

// Settler schedules and performs single-shot asynchronous payment
// settlement. Settlement is at-least-once: retries of an already-terminal
// payment are no-ops, never a regression out of a terminal state.
type Settler struct {
	payments store.PaymentStore
	psp      PSP
	delay    time.Duration
	now      func() time.Time
}

// New builds a Settler. delay of 0 uses DefaultSettlementDelay.
func New(payments store.PaymentStore, psp PSP, delay time.Duration, now func() time.Time) *Settler {
	if delay <= 0 {
		delay = DefaultSettlementDelay
	}
	if psp == nil {
		psp = MockPSP{}
	}
	if now == nil {
		now = time.Now
	}
	return &Settler{payments: payments, psp: psp, delay: delay, now: now}
}

// Enqueue schedules settlement of paymentID after the configured delay.
func (s *Settler) Enqueue(paymentID string) {
	time.AfterFunc(s.delay, func() {
		s.settle(context.Background(), paymentID)
	})
}

func (s *Settler) settle(ctx context.Context, paymentID string) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		return
	}
	if p.Status != domain.PaymentStatusPending {
		return
	}

	providerResponse, err := s.psp.Charge(ctx, paymentID, p.Amount)
	if err != nil {
		_ = s.payments.UpdateStatus(ctx, paymentID, domain.PaymentStatusFailed, err.Error())
		return
	}

	_ = s.payments.UpdateStatus(ctx, paymentID, domain.PaymentStatusSuccess, providerResponse)
}
