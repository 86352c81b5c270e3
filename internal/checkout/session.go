// Package checkout drives one purchase attempt from batch/quantity selection
// to the PIX payment instructions returned by the events API.
package checkout

import (
	"errors"
	"time"

	"github.com/farellandr/storefront/internal/models"
)

const (
	MinQuantity = 1
	MaxQuantity = 10
)

type Phase string

const (
	PhaseSelecting       Phase = "selecting"
	PhaseAwaitingPayment Phase = "awaiting_payment"
)

var (
	ErrNoBatches       = errors.New("event has no ticket batches")
	ErrBatchNotFound   = errors.New("batch not found")
	ErrNotSelecting    = errors.New("checkout is no longer selecting tickets")
	ErrSessionNotFound = errors.New("checkout session not found")
)

type Session struct {
	ID        string        `json:"id"`
	ClientID  string        `json:"clientId"`
	Phase     Phase         `json:"phase"`
	Event     models.Event  `json:"event"`
	BatchID   string        `json:"batchId"`
	Quantity  int           `json:"quantity"`
	Total     float64       `json:"total"`
	Loading   bool          `json:"loading"`
	Order     *models.Order `json:"order"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// NewSession opens a checkout for event. An empty or unknown batchID selects
// the event's first batch; quantity is clamped like any later adjustment.
func NewSession(id, clientID string, event models.Event, batchID string, quantity int, now time.Time) (*Session, error) {
	if len(event.Batches) == 0 {
		return nil, ErrNoBatches
	}
	if _, ok := event.Batch(batchID); !ok {
		batchID = event.Batches[0].ID
	}

	s := &Session{
		ID:        id,
		ClientID:  clientID,
		Phase:     PhaseSelecting,
		Event:     event,
		BatchID:   batchID,
		Quantity:  clamp(quantity),
		CreatedAt: now,
	}
	s.recompute()
	return s, nil
}

// SelectedBatch re-derives the active batch from the event snapshot.
func (s *Session) SelectedBatch() (models.Batch, bool) {
	return s.Event.Batch(s.BatchID)
}

// AdjustQuantity moves the quantity by delta, clamped into [MinQuantity, MaxQuantity].
func (s *Session) AdjustQuantity(delta int) error {
	if s.Phase != PhaseSelecting {
		return ErrNotSelecting
	}
	s.Quantity = clamp(s.Quantity + delta)
	s.recompute()
	return nil
}

func (s *Session) SelectBatch(batchID string) error {
	if s.Phase != PhaseSelecting {
		return ErrNotSelecting
	}
	if _, ok := s.Event.Batch(batchID); !ok {
		return ErrBatchNotFound
	}
	s.BatchID = batchID
	s.recompute()
	return nil
}

func (s *Session) recompute() {
	batch, ok := s.SelectedBatch()
	if !ok {
		s.Total = 0
		return
	}
	s.Total = batch.Price * float64(s.Quantity)
}

func clamp(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}
