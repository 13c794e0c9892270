package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"parking_pay_echo/internal/models"
	"parking_pay_echo/internal/services"
)

func newWebhookFixture(t *testing.T) (*services.ConfirmationStore, *services.Relay, *WebhookHandler) {
	t.Helper()
	store := services.NewConfirmationStore(30*time.Minute, nil)
	relay := services.NewRelay(nil)
	confirmations := services.NewConfirmationService(store, relay, nil)
	return store, relay, NewWebhookHandler(store, confirmations)
}

func TestSepayWebhookConfirmsByCode(t *testing.T) {
	store, relay, h := newWebhookFixture(t)
	registerSession(t, store, "a1b2c3d4e5f60718", "A12")

	sub := relay.Subscribe()
	defer relay.Unsubscribe(sub)

	body := `{"id":92704,"gateway":"Vietinbank","transferType":"in","transferAmount":15000,"code":"A1B2C3D4E5F60718","referenceCode":"MBVCB.3278907687"}`
	c, rec := postJSON(t, "/api/webhook/sepay", body)
	if err := h.HandleSepay(c); err != nil {
		t.Fatalf("HandleSepay failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want 200", rec.Code)
	}

	stored, err := store.Get("a1b2c3d4e5f60718")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.State != models.StateConfirmed || stored.ConfirmedBy != models.SourceWebhook {
		t.Errorf("unexpected record %+v", stored)
	}

	select {
	case ev := <-sub.C:
		if ev.OrderID != "a1b2c3d4e5f60718" || ev.LockID != "A12" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("webhook confirmation was not relayed")
	}
}

func TestSepayWebhookConfirmsFromTransferContent(t *testing.T) {
	store, _, h := newWebhookFixture(t)
	registerSession(t, store, "a1b2c3d4e5f60718", "A12")

	// Banks forward the QR description inside the free-text content.
	body := `{"id":92705,"transferType":"in","transferAmount":15000,"content":"CT DEN PARKING A12 A1B2C3D4E5F60718."}`
	c, _ := postJSON(t, "/api/webhook/sepay", body)
	if err := h.HandleSepay(c); err != nil {
		t.Fatalf("HandleSepay failed: %v", err)
	}

	stored, err := store.Get("a1b2c3d4e5f60718")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.State != models.StateConfirmed {
		t.Errorf("record state = %s; want confirmed", stored.State)
	}
}

func TestSepayWebhookDuplicateDelivery(t *testing.T) {
	store, relay, h := newWebhookFixture(t)
	registerSession(t, store, "a1b2c3d4e5f60718", "A12")

	sub := relay.Subscribe()
	defer relay.Unsubscribe(sub)

	body := `{"id":92704,"transferType":"in","code":"a1b2c3d4e5f60718"}`
	for i := 0; i < 2; i++ {
		c, rec := postJSON(t, "/api/webhook/sepay", body)
		if err := h.HandleSepay(c); err != nil {
			t.Fatalf("delivery %d failed: %v", i+1, err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("delivery %d status = %d; want 200", i+1, rec.Code)
		}
	}

	// Exactly one broadcast across both deliveries.
	select {
	case <-sub.C:
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}
	select {
	case ev := <-sub.C:
		t.Errorf("duplicate delivery re-broadcast: %+v", ev)
	default:
	}
}

func TestSepayWebhookRejectsForgedCode(t *testing.T) {
	_, _, h := newWebhookFixture(t)

	c, _ := postJSON(t, "/api/webhook/sepay", `{"transferType":"in","code":"deadbeefdeadbeef"}`)
	err := h.HandleSepay(c)
	if !errors.Is(err, services.ErrUnknownOrder) {
		t.Errorf("error = %v; want ErrUnknownOrder", err)
	}
}

func TestSepayWebhookIgnoresOutgoingTransfers(t *testing.T) {
	store, _, h := newWebhookFixture(t)
	registerSession(t, store, "a1b2c3d4e5f60718", "A12")

	c, rec := postJSON(t, "/api/webhook/sepay", `{"transferType":"out","code":"a1b2c3d4e5f60718"}`)
	if err := h.HandleSepay(c); err != nil {
		t.Fatalf("HandleSepay failed: %v", err)
	}

	var resp struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Data["status"] != "ignored" {
		t.Errorf("response data = %v; want ignored", resp.Data)
	}

	stored, err := store.Get("a1b2c3d4e5f60718")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.State != models.StatePending {
		t.Error("outgoing transfer must not confirm a session")
	}
}
