package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"parking_pay_echo/internal/models"
)

var (
	// ErrUnknownOrder means no record exists for the order id. Callers
	// should treat this as a client error, not something to retry.
	ErrUnknownOrder = errors.New("unknown order")
	// ErrOrderMismatch means the supplied lock id does not match the
	// record's lock id.
	ErrOrderMismatch = errors.New("order does not belong to locker")
	// ErrNoPendingSession means a lock-id-only attestation found no
	// pending session to resolve to.
	ErrNoPendingSession = errors.New("no pending payment session for locker")
	// ErrDuplicateOrder means a record already exists for the order id.
	ErrDuplicateOrder = errors.New("duplicate order id")
)

type storeEntry struct {
	rec models.ConfirmationRecord
	seq uint64
}

// ConfirmationStore is the in-memory table of payment confirmations.
// It owns the only shared mutable state in the service: the Pending ->
// Confirmed transition is atomic under the store mutex, so exactly one of
// any set of concurrent confirm calls observes wasNewlyConfirmed = true.
//
// The store is constructed at startup and swept in the background; it is
// never global state.
type ConfirmationStore struct {
	mu         sync.Mutex
	records    map[string]*storeEntry
	nextSeq    uint64
	sessionTTL time.Duration
	logger     *zap.Logger
}

func NewConfirmationStore(sessionTTL time.Duration, logger *zap.Logger) *ConfirmationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfirmationStore{
		records:    make(map[string]*storeEntry),
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Register creates the Pending record for a freshly built session, so a
// relay subscriber can attach before any money moves.
func (s *ConfirmationStore) Register(session *models.PaymentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[session.OrderID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, session.OrderID)
	}

	s.nextSeq++
	s.records[session.OrderID] = &storeEntry{
		rec: models.ConfirmationRecord{
			OrderID:   session.OrderID,
			LockID:    session.LockID,
			Amount:    session.Amount,
			State:     models.StatePending,
			CreatedAt: session.CreatedAt,
		},
		seq: s.nextSeq,
	}
	return nil
}

// Confirm transitions the record for orderID to Confirmed. A non-empty
// lockID is cross-checked against the record to defend against cross-locker
// confirmation. Confirming an already-confirmed order is a no-op success
// with wasNewlyConfirmed = false, which is what makes duplicate webhook
// deliveries and duplicate POS clicks safe.
func (s *ConfirmationStore) Confirm(orderID, lockID string, source models.ConfirmationSource, note string) (bool, models.ConfirmationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[orderID]
	if !ok {
		return false, models.ConfirmationRecord{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if lockID != "" && entry.rec.LockID != lockID {
		return false, models.ConfirmationRecord{}, fmt.Errorf("%w: order %s belongs to %s, not %s", ErrOrderMismatch, orderID, entry.rec.LockID, lockID)
	}

	if entry.rec.State == models.StateConfirmed {
		return false, entry.rec, nil
	}

	now := time.Now()
	entry.rec.State = models.StateConfirmed
	entry.rec.ConfirmedAt = &now
	entry.rec.ConfirmedBy = source
	entry.rec.Note = note

	s.logger.Info("payment confirmed",
		zap.String("order_id", orderID),
		zap.String("lock_id", entry.rec.LockID),
		zap.String("source", string(source)),
	)
	return true, entry.rec, nil
}

// ConfirmByLock resolves a lock-id-only attestation to the most recent
// Pending record for that locker, then confirms it. Confirmed records are
// deliberately not eligible: re-confirming an old session must go through
// its order id.
func (s *ConfirmationStore) ConfirmByLock(lockID string, source models.ConfirmationSource, note string) (bool, models.ConfirmationRecord, error) {
	s.mu.Lock()

	var latest *storeEntry
	for _, entry := range s.records {
		if entry.rec.LockID != lockID || entry.rec.State != models.StatePending {
			continue
		}
		if latest == nil || entry.seq > latest.seq {
			latest = entry
		}
	}
	if latest == nil {
		s.mu.Unlock()
		return false, models.ConfirmationRecord{}, fmt.Errorf("%w: %s", ErrNoPendingSession, lockID)
	}
	orderID := latest.rec.OrderID
	s.mu.Unlock()

	return s.Confirm(orderID, lockID, source, note)
}

// Get returns a copy of the record for orderID.
func (s *ConfirmationStore) Get(orderID string) (models.ConfirmationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[orderID]
	if !ok {
		return models.ConfirmationRecord{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	return entry.rec, nil
}

// LatestForLock returns the most recently registered record for a locker,
// regardless of state. It backs the poll fallback for clients that missed
// the relay broadcast.
func (s *ConfirmationStore) LatestForLock(lockID string) (models.ConfirmationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *storeEntry
	for _, entry := range s.records {
		if entry.rec.LockID != lockID {
			continue
		}
		if latest == nil || entry.seq > latest.seq {
			latest = entry
		}
	}
	if latest == nil {
		return models.ConfirmationRecord{}, fmt.Errorf("%w: no sessions for locker %s", ErrUnknownOrder, lockID)
	}
	return latest.rec, nil
}

// Sweep evicts expired records and returns how many were removed. Pending
// records expire after the session TTL. Confirmed records are kept for a
// second TTL window so late webhook retries still get the idempotent
// success answer.
func (s *ConfirmationStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for orderID, entry := range s.records {
		age := now.Sub(entry.rec.CreatedAt)
		switch entry.rec.State {
		case models.StatePending:
			if age > s.sessionTTL {
				delete(s.records, orderID)
				removed++
			}
		case models.StateConfirmed:
			if age > 2*s.sessionTTL {
				delete(s.records, orderID)
				removed++
			}
		}
	}
	return removed
}

// Run sweeps on a ticker until the context is cancelled.
func (s *ConfirmationStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(time.Now()); removed > 0 {
				s.logger.Info("evicted expired payment sessions", zap.Int("removed", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}
