package services

import (
	"go.uber.org/zap"

	"parking_pay_echo/internal/models"
)

// ConfirmationService is the single confirmation path shared by the bank
// webhook and POS attestation. It drives the store transition and, only
// when the transition actually happened, broadcasts exactly one relay
// event. Broadcasting on no-op confirms would cause duplicate unlock
// attempts downstream.
type ConfirmationService struct {
	store  *ConfirmationStore
	relay  *Relay
	logger *zap.Logger
}

func NewConfirmationService(store *ConfirmationStore, relay *Relay, logger *zap.Logger) *ConfirmationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfirmationService{store: store, relay: relay, logger: logger}
}

// ConfirmRequest is the explicit request variant for attestations: order id
// when present (authoritative, with lock id cross-checked if also given),
// otherwise resolution by lock id to the newest pending session.
type ConfirmRequest struct {
	OrderID string
	LockID  string
	Source  models.ConfirmationSource
	Note    string
}

// Confirm resolves and applies a confirmation. wasNewlyConfirmed is false
// for idempotent repeats.
func (s *ConfirmationService) Confirm(req ConfirmRequest) (bool, models.ConfirmationRecord, error) {
	var (
		newly bool
		rec   models.ConfirmationRecord
		err   error
	)

	if req.OrderID != "" {
		newly, rec, err = s.store.Confirm(req.OrderID, req.LockID, req.Source, req.Note)
	} else {
		newly, rec, err = s.store.ConfirmByLock(req.LockID, req.Source, req.Note)
	}
	if err != nil {
		return false, rec, err
	}

	if newly {
		s.relay.Publish(Event{
			LockID:      rec.LockID,
			OrderID:     rec.OrderID,
			Amount:      rec.Amount,
			Source:      rec.ConfirmedBy,
			ConfirmedAt: *rec.ConfirmedAt,
		})
	} else {
		s.logger.Info("duplicate confirmation ignored",
			zap.String("order_id", rec.OrderID),
			zap.String("source", string(req.Source)),
		)
	}
	return newly, rec, nil
}
