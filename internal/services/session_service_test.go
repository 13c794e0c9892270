package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parking_pay_echo/internal/models"
)

// fakeBackend emulates the main parking backend's JSON API.
type fakeBackend struct {
	lockers map[string]models.Locker
	account *models.SettlementAccount
}

func (f *fakeBackend) handler() http.Handler {
	writeData := func(w http.ResponseWriter, data interface{}) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/lockers", func(w http.ResponseWriter, r *http.Request) {
		list := []models.Locker{}
		for _, l := range f.lockers {
			list = append(list, l)
		}
		writeData(w, list)
	})
	mux.HandleFunc("/api/lockers/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/lockers/")
		locker, found := f.lockers[id]
		if !found {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "not found"})
			return
		}
		writeData(w, locker)
	})
	mux.HandleFunc("/api/payments/account", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, f.account)
	})
	return mux
}

func newTestBackend(t *testing.T) (*fakeBackend, *CatalogService) {
	t.Helper()
	backend := &fakeBackend{
		lockers: map[string]models.Locker{
			"A12": {LockID: "A12", Name: "Locker A12", DeviceID: "dev-01", LockNumber: 12, Status: "locked", Occupied: true, ParkingFee: 15000, HourlyRate: 5000},
			"B07": {LockID: "B07", Name: "Locker B07", DeviceID: "dev-02", LockNumber: 7, Status: "locked", Occupied: false, ParkingFee: 0},
		},
		account: &models.SettlementAccount{AccountNumber: "113366668888", AccountName: "PARKING CO", AcqID: "970436"},
	}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	return backend, NewCatalogService(srv.URL)
}

func newTestSessionService(catalog *CatalogService, store *ConfirmationStore, useDynamicFee bool) *SessionService {
	return NewSessionService(catalog, store, nil, 10000, useDynamicFee, "970415", 30*time.Second, nil)
}

func TestBuildSessionAmountRule(t *testing.T) {
	tests := []struct {
		name          string
		lockID        string
		useDynamicFee bool
		wantAmount    int64
	}{
		{"dynamic fee overrides default", "A12", true, 15000},
		{"zero fee falls back to default", "B07", true, 10000},
		{"flag off always uses default", "A12", false, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, catalog := newTestBackend(t)
			store := NewConfirmationStore(30*time.Minute, nil)
			svc := newTestSessionService(catalog, store, tt.useDynamicFee)

			info, err := svc.BuildSession(context.Background(), tt.lockID)
			if err != nil {
				t.Fatalf("BuildSession failed: %v", err)
			}
			if info.Session.Amount != tt.wantAmount {
				t.Errorf("amount = %d; want %d", info.Session.Amount, tt.wantAmount)
			}
		})
	}
}

func TestBuildSessionShape(t *testing.T) {
	_, catalog := newTestBackend(t)
	store := NewConfirmationStore(30*time.Minute, nil)
	svc := newTestSessionService(catalog, store, true)

	info, err := svc.BuildSession(context.Background(), "A12")
	if err != nil {
		t.Fatalf("BuildSession failed: %v", err)
	}

	if info.Session.OrderID == "" {
		t.Error("order id must not be empty")
	}
	if !strings.Contains(info.Session.Description, "A12") {
		t.Errorf("description %q must embed the lock id", info.Session.Description)
	}
	if !strings.HasPrefix(info.Session.QRPayload, "https://qr.sepay.vn/img?") {
		t.Errorf("unexpected QR payload %q", info.Session.QRPayload)
	}
	for _, fragment := range []string{"acc=113366668888", "bank=970436", "amount=15000"} {
		if !strings.Contains(info.Session.QRPayload, fragment) {
			t.Errorf("QR payload %q missing %q", info.Session.QRPayload, fragment)
		}
	}
	if info.BankName != "Vietinbank" {
		t.Errorf("bank name = %q; want Vietinbank", info.BankName)
	}

	// Session building eagerly registers the pending record so a relay
	// subscriber can attach before any money moves.
	rec, err := store.Get(info.Session.OrderID)
	if err != nil {
		t.Fatalf("pending record not registered: %v", err)
	}
	if rec.State != models.StatePending || rec.LockID != "A12" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestBuildSessionMintsFreshOrderIDs(t *testing.T) {
	_, catalog := newTestBackend(t)
	store := NewConfirmationStore(30*time.Minute, nil)
	svc := newTestSessionService(catalog, store, true)

	first, err := svc.BuildSession(context.Background(), "A12")
	if err != nil {
		t.Fatalf("BuildSession failed: %v", err)
	}
	second, err := svc.BuildSession(context.Background(), "A12")
	if err != nil {
		t.Fatalf("BuildSession failed: %v", err)
	}
	if first.Session.OrderID == second.Session.OrderID {
		t.Error("repeat builds must mint a new order id, not reuse the session")
	}
}

func TestBuildSessionLockerNotFound(t *testing.T) {
	_, catalog := newTestBackend(t)
	store := NewConfirmationStore(30*time.Minute, nil)
	svc := newTestSessionService(catalog, store, true)

	_, err := svc.BuildSession(context.Background(), "missing")
	if !errors.Is(err, ErrLockerNotFound) {
		t.Errorf("error = %v; want ErrLockerNotFound", err)
	}
}

func TestBuildSessionAccountNotConfigured(t *testing.T) {
	backend, catalog := newTestBackend(t)
	backend.account = &models.SettlementAccount{AccountName: "PARKING CO"}
	store := NewConfirmationStore(30*time.Minute, nil)
	svc := newTestSessionService(catalog, store, true)

	_, err := svc.BuildSession(context.Background(), "A12")
	if !errors.Is(err, ErrAccountNotConfigured) {
		t.Errorf("error = %v; want ErrAccountNotConfigured", err)
	}
}

func TestBuildSessionDefaultBankCode(t *testing.T) {
	backend, catalog := newTestBackend(t)
	backend.account = &models.SettlementAccount{AccountNumber: "113366668888", AccountName: "PARKING CO"}
	store := NewConfirmationStore(30*time.Minute, nil)
	svc := newTestSessionService(catalog, store, true)

	info, err := svc.BuildSession(context.Background(), "A12")
	if err != nil {
		t.Fatalf("BuildSession failed: %v", err)
	}
	if info.BankCode != "970415" {
		t.Errorf("bank code = %q; want default 970415", info.BankCode)
	}
	if info.BankName != "Vietcombank" {
		t.Errorf("bank name = %q; want Vietcombank", info.BankName)
	}
}

func TestBankNameLookup(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"970415", "Vietcombank"},
		{"970436", "Vietinbank"},
		{"ICB", "VietinBank"},
		{"999999", "Ngân hàng"},
		{"", "Ngân hàng"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := bankName(tt.code); got != tt.want {
				t.Errorf("bankName(%q) = %q; want %q", tt.code, got, tt.want)
			}
		})
	}
}
