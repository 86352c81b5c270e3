package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/farellandr/storefront/internal/models"
)

// MaxQRCodeBase64Len is the largest inline QR image the storefront accepts
// from the events API.
const MaxQRCodeBase64Len = 23648

var (
	ErrAuthRequired    = errors.New("login required")
	ErrCreationFailed  = errors.New("ticket creation failed")
	ErrPayloadTooLarge = errors.New("payment payload too large")
)

// User-facing notices recorded on the session when a submission fails.
const (
	NoticeCreationFailed  = "Failed to create ticket."
	NoticePayloadTooLarge = "QR code too large."
)

// TicketCreator is the events API operation that turns a checkout into an
// order with payment instructions.
type TicketCreator interface {
	CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Order, error)
}

type Sequencer struct {
	tickets TicketCreator
	store   Store
	logger  *zap.Logger
}

// NewSequencer wires the ticket creator. store may be nil; when set, the
// in-flight loading flag is persisted before the remote call.
func NewSequencer(tickets TicketCreator, store Store, logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{tickets: tickets, store: store, logger: logger}
}

// Submit creates the order for s. On success s moves to PhaseAwaitingPayment;
// on any failure only s.Error changes. There is a single attempt and no
// idempotency key, so a resubmission creates a new order.
func (q *Sequencer) Submit(ctx context.Context, s *Session, auth models.AuthSession) error {
	if !auth.IsLoggedIn || auth.User == nil {
		return ErrAuthRequired
	}
	if s.Phase != PhaseSelecting {
		return ErrNotSelecting
	}

	batch, ok := s.SelectedBatch()
	if !ok {
		return ErrBatchNotFound
	}
	s.recompute()

	req := models.CreateTicketRequest{
		EventID:  s.Event.ID,
		BatchID:  batch.ID,
		UserID:   auth.User.ID,
		BuyerID:  auth.User.ID,
		Price:    s.Total,
		Name:     auth.User.Name,
		Email:    auth.User.Email,
		CPF:      auth.User.CPF,
		Phone:    auth.User.PhoneNumber,
		Quantity: s.Quantity,
	}

	s.Loading = true
	defer func() { s.Loading = false }()
	q.persist(ctx, s)

	order, err := q.tickets.CreateTicket(ctx, req)
	if err != nil {
		q.logger.Warn("ticket creation failed",
			zap.String("checkout_id", s.ID),
			zap.String("event_id", s.Event.ID),
			zap.Error(err),
		)
		s.Error = NoticeCreationFailed
		return fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	if order == nil || order.PaymentCode == "" {
		s.Error = NoticeCreationFailed
		return fmt.Errorf("%w: empty response", ErrCreationFailed)
	}
	if len(order.QRCodeBase64) > MaxQRCodeBase64Len {
		q.logger.Warn("payment payload too large",
			zap.String("checkout_id", s.ID),
			zap.Int("qr_code_base64_len", len(order.QRCodeBase64)),
		)
		s.Error = NoticePayloadTooLarge
		return ErrPayloadTooLarge
	}

	s.Order = order
	s.Phase = PhaseAwaitingPayment
	s.Error = ""
	q.logger.Info("checkout awaiting payment",
		zap.String("checkout_id", s.ID),
		zap.String("event_id", s.Event.ID),
		zap.String("order_id", order.ID),
	)
	return nil
}

func (q *Sequencer) persist(ctx context.Context, s *Session) {
	if q.store == nil {
		return
	}
	if err := q.store.Save(ctx, s); err != nil {
		q.logger.Warn("failed to persist loading state", zap.String("checkout_id", s.ID), zap.Error(err))
	}
}
