package domain

import "time"

type Status string

const (
	StatusNew          Status = "NEW"
	StatusInProcessing Status = "IN_PROCESSING"
	StatusDone         Status = "DONE"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProcessing, StatusDone:
		return true
	}
	return false
}

type OrderItem struct {
	ID       int64 `json:"id,omitempty"`
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

type Order struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Status    Status      `json:"status"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}
