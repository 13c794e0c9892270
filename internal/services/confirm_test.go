package services

import (
	"testing"
	"time"

	"parking_pay_echo/internal/models"
)

func TestConfirmationServiceBroadcastsOnce(t *testing.T) {
	store := NewConfirmationStore(30*time.Minute, nil)
	relay := NewRelay(nil)
	svc := NewConfirmationService(store, relay, nil)

	if err := store.Register(testSession("ord-1", "A12", time.Now())); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	sub := relay.Subscribe()
	defer relay.Unsubscribe(sub)

	newly, _, err := svc.Confirm(ConfirmRequest{OrderID: "ord-1", LockID: "A12", Source: models.SourceWebhook})
	if err != nil || !newly {
		t.Fatalf("first confirm: newly=%v err=%v; want true, nil", newly, err)
	}
	newly, _, err = svc.Confirm(ConfirmRequest{OrderID: "ord-1", LockID: "A12", Source: models.SourcePosAttestation})
	if err != nil || newly {
		t.Fatalf("second confirm: newly=%v err=%v; want false, nil", newly, err)
	}

	select {
	case ev := <-sub.C:
		if ev.LockID != "A12" || ev.OrderID != "ord-1" || ev.Source != models.SourceWebhook {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the confirmation event")
	}

	// The duplicate confirm must not re-broadcast.
	select {
	case ev := <-sub.C:
		t.Errorf("duplicate broadcast received: %+v", ev)
	default:
	}
}

func TestConfirmationServiceResolvesByLockID(t *testing.T) {
	store := NewConfirmationStore(30*time.Minute, nil)
	relay := NewRelay(nil)
	svc := NewConfirmationService(store, relay, nil)

	if err := store.Register(testSession("ord-1", "A12", time.Now())); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	newly, rec, err := svc.Confirm(ConfirmRequest{LockID: "A12", Source: models.SourcePosAttestation, Note: "Confirmed via POS"})
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if !newly || rec.OrderID != "ord-1" {
		t.Errorf("newly=%v order=%s; want true, ord-1", newly, rec.OrderID)
	}
	if rec.Note != "Confirmed via POS" {
		t.Errorf("note = %q; want the operator note", rec.Note)
	}
}
