package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"parking_pay_echo/internal/models"
)

var (
	// ErrLockerNotFound means the upstream directory has no locker with
	// the requested id.
	ErrLockerNotFound = errors.New("locker not found")
	// ErrCatalogUnavailable means the upstream directory could not be
	// reached or answered with a server error.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// CatalogService is a read-only client for the main parking backend. It is
// a pass-through: single attempt, no caching, no business validation.
// Failures surface as typed errors for the caller to map.
type CatalogService struct {
	baseURL string
	client  *http.Client
}

func NewCatalogService(baseURL string) *CatalogService {
	return &CatalogService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// envelope is the main backend's standard response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (s *CatalogService) getJSON(ctx context.Context, endpoint string, dest interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("%w: upstream returned status %d", ErrCatalogUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: invalid response body: %v", ErrCatalogUnavailable, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: invalid response data: %v", ErrCatalogUnavailable, err)
	}
	return resp.StatusCode, nil
}

// GetLocker resolves one locker by id.
func (s *CatalogService) GetLocker(ctx context.Context, lockID string) (*models.Locker, error) {
	var locker models.Locker
	status, err := s.getJSON(ctx, "/api/lockers/"+url.PathEscape(lockID), &locker)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || locker.LockID == "" {
		return nil, fmt.Errorf("%w: %s", ErrLockerNotFound, lockID)
	}
	return &locker, nil
}

// SearchLockers returns lockers whose id, name or device id contains the
// query, case-insensitively. The upstream list endpoint is unfiltered, so
// filtering happens here.
func (s *CatalogService) SearchLockers(ctx context.Context, query string) ([]models.Locker, error) {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return []models.Locker{}, nil
	}

	var lockers []models.Locker
	status, err := s.getJSON(ctx, "/api/lockers", &lockers)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: upstream returned status %d", ErrCatalogUnavailable, status)
	}

	matched := []models.Locker{}
	for _, l := range lockers {
		if strings.Contains(strings.ToLower(l.LockID), query) ||
			strings.Contains(strings.ToLower(l.Name), query) ||
			strings.Contains(strings.ToLower(l.DeviceID), query) {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

// GetSettlementAccount resolves the configured payment account. An account
// with an empty number is returned as-is; the session builder decides
// whether that is a configuration error.
func (s *CatalogService) GetSettlementAccount(ctx context.Context) (*models.SettlementAccount, error) {
	var account models.SettlementAccount
	status, err := s.getJSON(ctx, "/api/payments/account", &account)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: upstream returned status %d", ErrCatalogUnavailable, status)
	}
	return &account, nil
}
