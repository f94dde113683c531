package domain

import "time"

// OrderPlacedEvent is published after a successful cash-on-delivery order.
type OrderPlacedEvent struct {
	OrderID       string        `json:"order_id"`
	CustomerID    string        `json:"customer_id"`
	Method        PaymentMethod `json:"payment_method"`
	Amount        int64         `json:"amount"`
	RecipientName string        `json:"recipient_name"`
	Address       string        `json:"address"`
	Timestamp     time.Time     `json:"timestamp"`
}
