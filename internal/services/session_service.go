package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parking_pay_echo/internal/models"
)

// ErrAccountNotConfigured means the settlement account is missing or has no
// account number, so no payment can be requested.
var ErrAccountNotConfigured = errors.New("payment account not configured")

const settlementAccountCacheKey = "parking-pay:settlement-account"

// banks maps acquirer bank codes to display names. ICB is VietinBank's old
// code and is kept alongside 970436.
var banks = map[string]string{
	"970415": "Vietcombank",
	"970416": "ACB",
	"970418": "Techcombank",
	"970422": "MB Bank",
	"970423": "TPBank",
	"970436": "Vietinbank",
	"970407": "Sacombank",
	"970405": "Agribank",
	"970432": "VP Bank",
	"ICB":    "VietinBank",
}

// bankName resolves a bank code to a display name. Unknown codes get a
// generic label, never an error.
func bankName(code string) string {
	if name, ok := banks[code]; ok {
		return name
	}
	return "Ngân hàng"
}

// SessionInfo is a fully built payment session together with the locker and
// account details the payment view displays.
type SessionInfo struct {
	Session  models.PaymentSession
	Locker   models.Locker
	Account  models.SettlementAccount
	BankCode string
	BankName string
}

// SessionService builds payment sessions: it resolves the locker and the
// settlement account, applies the amount rule, mints the order id and QR
// payload, and registers the Pending confirmation record so subscribers can
// attach before any money moves.
type SessionService struct {
	catalog *CatalogService
	store   *ConfirmationStore
	cache   *RedisCache // optional

	defaultAmount   int64
	useDynamicFee   bool
	defaultBankCode string
	accountCacheTTL time.Duration
	logger          *zap.Logger
}

func NewSessionService(
	catalog *CatalogService,
	store *ConfirmationStore,
	cache *RedisCache,
	defaultAmount int64,
	useDynamicFee bool,
	defaultBankCode string,
	accountCacheTTL time.Duration,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		catalog:         catalog,
		store:           store,
		cache:           cache,
		defaultAmount:   defaultAmount,
		useDynamicFee:   useDynamicFee,
		defaultBankCode: defaultBankCode,
		accountCacheTTL: accountCacheTTL,
		logger:          logger,
	}
}

// BuildSession creates a fresh immutable payment session for a locker.
// Repeat calls mint a new order id every time; an earlier session for the
// same locker is never mutated.
func (s *SessionService) BuildSession(ctx context.Context, lockID string) (*SessionInfo, error) {
	locker, err := s.catalog.GetLocker(ctx, lockID)
	if err != nil {
		return nil, err
	}

	account, err := GetOrSet(s.cache, ctx, settlementAccountCacheKey, s.accountCacheTTL, func() (models.SettlementAccount, error) {
		acc, err := s.catalog.GetSettlementAccount(ctx)
		if err != nil {
			return models.SettlementAccount{}, err
		}
		return *acc, nil
	})
	if err != nil {
		return nil, err
	}
	if account.AccountNumber == "" {
		return nil, ErrAccountNotConfigured
	}

	amount := s.defaultAmount
	if s.useDynamicFee && locker.ParkingFee > 0 {
		amount = locker.ParkingFee
	}

	orderID := newOrderID()
	// The description always embeds the lock id so a human or the bank can
	// identify the locker even if the order id is lost in transfer.
	description := fmt.Sprintf("PARKING %s %s", locker.LockID, orderID)

	bankCode := account.AcqID
	if bankCode == "" {
		bankCode = s.defaultBankCode
	}

	session := models.PaymentSession{
		OrderID:     orderID,
		LockID:      locker.LockID,
		Amount:      amount,
		Description: description,
		QRPayload:   buildQRURL(account.AccountNumber, bankCode, amount, description),
		CreatedAt:   time.Now(),
	}

	if err := s.store.Register(&session); err != nil {
		return nil, err
	}

	s.logger.Info("payment session built",
		zap.String("order_id", orderID),
		zap.String("lock_id", locker.LockID),
		zap.Int64("amount", amount),
	)

	return &SessionInfo{
		Session:  session,
		Locker:   *locker,
		Account:  account,
		BankCode: bankCode,
		BankName: bankName(bankCode),
	}, nil
}

// newOrderID mints a compact random token. A sequential counter would let
// one session's confirmation be forged from another's, so order ids must be
// unguessable.
func newOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// buildQRURL forms the Sepay QR image URL a banking app can scan.
func buildQRURL(accountNumber, bankCode string, amount int64, description string) string {
	return fmt.Sprintf("https://qr.sepay.vn/img?acc=%s&bank=%s&amount=%d&des=%s",
		url.QueryEscape(accountNumber), url.QueryEscape(bankCode), amount, url.QueryEscape(description))
}
