package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"parking_pay_echo/internal/models"
	"parking_pay_echo/internal/services"
)

type PaymentHandler struct {
	sessions *services.SessionService
	store    *services.ConfirmationStore
}

func NewPaymentHandler(sessions *services.SessionService, store *services.ConfirmationStore) *PaymentHandler {
	return &PaymentHandler{sessions: sessions, store: store}
}

// GetPaymentInfo builds a fresh payment session for a locker and returns
// everything the payment page needs to render the QR code.
func (h *PaymentHandler) GetPaymentInfo(c echo.Context) error {
	lockID := c.Param("lockId")
	if lockID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing locker id")
	}

	info, err := h.sessions.BuildSession(c.Request().Context(), lockID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PaymentInfoResponse{
		LockID:        info.Locker.LockID,
		LockerName:    lockerDisplayName(&info.Locker),
		DeviceID:      info.Locker.DeviceID,
		LockNumber:    info.Locker.LockNumber,
		OrderID:       info.Session.OrderID,
		Amount:        info.Session.Amount,
		Description:   info.Session.Description,
		AccountNumber: info.Account.AccountNumber,
		AccountName:   info.Account.AccountName,
		BankCode:      info.BankCode,
		BankName:      info.BankName,
		QRCodeURL:     info.Session.QRPayload,
		CreatedAt:     info.Session.CreatedAt.Format(time.RFC3339),
	})
}

// GetSessionStatus is the poll fallback: clients that missed the relay
// broadcast read the confirmation state directly. Without an order_id query
// it answers for the locker's latest session.
func (h *PaymentHandler) GetSessionStatus(c echo.Context) error {
	lockID := c.Param("lockId")
	orderID := c.QueryParam("order_id")

	var (
		rec models.ConfirmationRecord
		err error
	)
	if orderID != "" {
		rec, err = h.store.Get(orderID)
		if err == nil && rec.LockID != lockID {
			return echo.NewHTTPError(http.StatusConflict, "Order does not belong to this locker")
		}
	} else {
		rec, err = h.store.LatestForLock(lockID)
	}
	if err != nil {
		return err
	}

	resp := SessionStatusResponse{
		OrderID: rec.OrderID,
		LockID:  rec.LockID,
		State:   string(rec.State),
	}
	if rec.ConfirmedAt != nil {
		resp.ConfirmedAt = rec.ConfirmedAt.Format(time.RFC3339)
		resp.ConfirmedBy = string(rec.ConfirmedBy)
	}
	return c.JSON(http.StatusOK, resp)
}

func lockerDisplayName(l *models.Locker) string {
	if l.Name != "" {
		return l.Name
	}
	return l.LockID
}
