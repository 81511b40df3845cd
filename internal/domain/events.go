package domain

import "time"

type OrderCreatedEvent struct {
	OrderID   int64       `json:"order_id"`
	UserID    int64       `json:"user_id"`
	Items     []OrderItem `json:"items"`
	Timestamp time.Time   `json:"timestamp"`
}
