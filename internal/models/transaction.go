package models

// Transaction references a previously recorded remote charge.
type Transaction struct {
	TransactionID string `json:"transaction_id"`
	EventID       string `json:"event_id"`
	ReservationID string `json:"reservation_id,omitempty"`
}
