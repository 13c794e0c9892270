package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"parking_pay_echo/internal/models"
	"parking_pay_echo/internal/services"
)

type PosHandler struct {
	catalog       *services.CatalogService
	confirmations *services.ConfirmationService
}

func NewPosHandler(catalog *services.CatalogService, confirmations *services.ConfirmationService) *PosHandler {
	return &PosHandler{catalog: catalog, confirmations: confirmations}
}

// GetLocker returns the locker detail view for POS staff.
func (h *PosHandler) GetLocker(c echo.Context) error {
	lockID := c.Param("lockId")
	if lockID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing locker id")
	}

	locker, err := h.catalog.GetLocker(c.Request().Context(), lockID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(locker))
}

// SearchLockers returns lockers matching a free-text query against id, name
// or device id. An empty query returns an empty list rather than an error.
func (h *PosHandler) SearchLockers(c echo.Context) error {
	lockers, err := h.catalog.SearchLockers(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(lockers))
}

// ConfirmPayment records a manual "operator observed the transfer"
// attestation. It shares the confirmation path with the bank webhook, so
// duplicate clicks are answered idempotently and the physical unlock stays
// a downstream side effect.
func (h *PosHandler) ConfirmPayment(c echo.Context) error {
	var req ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if req.OrderID == "" && req.LockID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id or lock_id is required")
	}

	newly, rec, err := h.confirmations.Confirm(services.ConfirmRequest{
		OrderID: req.OrderID,
		LockID:  req.LockID,
		Source:  models.SourcePosAttestation,
		Note:    req.Note,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ok(ConfirmPaymentData{
		OrderID:          rec.OrderID,
		LockID:           rec.LockID,
		AlreadyConfirmed: !newly,
	}))
}
