package handlers

// DataResponse is the success envelope for POS endpoints, matching the main
// backend's `{"success": true, "data": ...}` shape.
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func ok(data interface{}) DataResponse {
	return DataResponse{Success: true, Data: data}
}

// PaymentInfoResponse is the payment view for GET /api/pay/:lockId. Field
// names follow the original payment page contract.
type PaymentInfoResponse struct {
	LockID        string `json:"lockId"`
	LockerName    string `json:"lockerName"`
	DeviceID      string `json:"deviceId"`
	LockNumber    int    `json:"lockNumber"`
	OrderID       string `json:"orderId"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	BankCode      string `json:"bankCode"`
	BankName      string `json:"bankName"`
	QRCodeURL     string `json:"qrCodeUrl"`
	CreatedAt     string `json:"createdAt"`
}

// SessionStatusResponse backs the poll fallback for clients that missed the
// relay broadcast.
type SessionStatusResponse struct {
	OrderID     string `json:"order_id"`
	LockID      string `json:"lock_id"`
	State       string `json:"state"`
	ConfirmedAt string `json:"confirmed_at,omitempty"`
	ConfirmedBy string `json:"confirmed_by,omitempty"`
}

// ConfirmPaymentRequest is the POS attestation body. order_id is preferred
// when present; lock_id alone resolves to the newest pending session.
type ConfirmPaymentRequest struct {
	OrderID string `json:"order_id"`
	LockID  string `json:"lock_id"`
	Note    string `json:"note"`
}

// ConfirmPaymentData reports the attestation outcome to the operator.
type ConfirmPaymentData struct {
	OrderID          string `json:"order_id"`
	LockID           string `json:"lock_id"`
	AlreadyConfirmed bool   `json:"already_confirmed"`
}
