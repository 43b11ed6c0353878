package importer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/grocery-receipts/internal/reconcile"
)

// Recorded is one purchase accepted by RecordingSink.
type Recorded struct {
	TransactionID string
	Instruction   reconcile.Instruction
}

// RecordingSink is the dry-run sink: it keeps every purchase in memory.
type RecordingSink struct {
	mu         sync.Mutex
	purchases  []Recorded
	lastPrices map[string]float64
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{lastPrices: make(map[string]float64)}
}

func (s *RecordingSink) Purchase(ctx context.Context, in reconcile.Instruction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	txID := uuid.NewString()
	s.mu.Lock()
	s.purchases = append(s.purchases, Recorded{TransactionID: txID, Instruction: in})
	s.mu.Unlock()
	return txID, nil
}

func (s *RecordingSink) UpdateLastPrice(ctx context.Context, barcode string, price float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastPrices[barcode] = price
	s.mu.Unlock()
	return nil
}

func (s *RecordingSink) Purchases() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.purchases))
	copy(out, s.purchases)
	return out
}

func (s *RecordingSink) LastPrice(barcode string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.lastPrices[barcode]
	return p, ok
}

// RateLimitedSink throttles calls to a remote inventory backend.
type RateLimitedSink struct {
	next    PurchaseSink
	limiter *rate.Limiter
}

// NewRateLimitedSink wraps next with a token bucket. A non-positive rate
// returns next unchanged.
func NewRateLimitedSink(next PurchaseSink, perSecond float64, burst int) PurchaseSink {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedSink{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (s *RateLimitedSink) Purchase(ctx context.Context, in reconcile.Instruction) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.next.Purchase(ctx, in)
}

func (s *RateLimitedSink) UpdateLastPrice(ctx context.Context, barcode string, price float64) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.next.UpdateLastPrice(ctx, barcode, price)
}
