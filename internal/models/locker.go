package models

import "time"

// Locker is the read model served by the main parking backend. The payment
// service never mutates lockers; it only resolves them for session building
// and POS display.
type Locker struct {
	LockID       string     `json:"lock_id"`
	Name         string     `json:"name"`
	DeviceID     string     `json:"device_id"`
	LockNumber   int        `json:"lock_number"`
	Status       string     `json:"status"`
	Occupied     bool       `json:"occupied"`
	ParkingFee   int64      `json:"parking_fee"`
	HourlyRate   int64      `json:"hourly_rate"`
	CarEnterTime *time.Time `json:"car_enter_time"`
	LockFreeTime int        `json:"lock_free_time"`
}

// SettlementAccount is the bank account all parking transfers settle into.
// Field names follow the main backend's payment account payload.
type SettlementAccount struct {
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	AcqID         string `json:"acqId"`
}
