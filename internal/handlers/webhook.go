package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"parking_pay_echo/internal/models"
	"parking_pay_echo/internal/services"
)

type WebhookHandler struct {
	store         *services.ConfirmationStore
	confirmations *services.ConfirmationService
}

func NewWebhookHandler(store *services.ConfirmationStore, confirmations *services.ConfirmationService) *WebhookHandler {
	return &WebhookHandler{store: store, confirmations: confirmations}
}

// sepayWebhookPayload is Sepay's inbound transaction notification.
type sepayWebhookPayload struct {
	ID              int64  `json:"id"`
	Gateway         string `json:"gateway"`
	TransactionDate string `json:"transactionDate"`
	AccountNumber   string `json:"accountNumber"`
	Code            string `json:"code"`
	Content         string `json:"content"`
	TransferType    string `json:"transferType"`
	TransferAmount  int64  `json:"transferAmount"`
	ReferenceCode   string `json:"referenceCode"`
	Description     string `json:"description"`
}

// HandleSepay processes a bank transfer notification. The order id travels
// in the transfer content because the QR payload embeds it in the `des`
// field; Sepay also surfaces it in `code` when its payment-code extraction
// is configured. Duplicate deliveries get the same success answer as the
// first one.
func (h *WebhookHandler) HandleSepay(c echo.Context) error {
	var payload sepayWebhookPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	if payload.TransferType != "" && payload.TransferType != "in" {
		// Outgoing transfers never confirm a parking payment.
		return c.JSON(http.StatusOK, ok(map[string]string{"status": "ignored"}))
	}

	orderID := h.resolveOrderID(&payload)
	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No order reference in transfer content")
	}

	note := payload.ReferenceCode
	if note == "" {
		note = fmt.Sprintf("sepay-%d", payload.ID)
	}

	newly, rec, err := h.confirmations.Confirm(services.ConfirmRequest{
		OrderID: orderID,
		Source:  models.SourceWebhook,
		Note:    note,
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

// resolveOrderID prefers Sepay's extracted payment code (passed through
// as-is so a forged code still fails the store's unknown-order check), then
// scans the transfer content for a token the store knows. Banks routinely
// mangle case and spacing of transfer descriptions, so matching is
// token-wise and case-insensitive.
func (h *WebhookHandler) resolveOrderID(payload *sepayWebhookPayload) string {
	if payload.Code != "" {
		return strings.ToLower(payload.Code)
	}

	for _, field := range []string{payload.Content, payload.Description} {
		for _, token := range strings.Fields(field) {
			token = strings.ToLower(strings.Trim(token, ".,;:"))
			if token == "" {
				continue
			}
			if _, err := h.store.Get(token); err == nil {
				return token
			}
		}
	}
	return ""
}
