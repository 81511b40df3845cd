package orders

import (
	"context"

	"github.com/polina-mishina/bookstore/internal/domain"
)

// OrderStore owns persistence of the order aggregate. Implementations carry
// no business rules; find methods return nil when the order does not exist.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	ReplaceItems(ctx context.Context, order *domain.Order) error
	UpdateStatus(ctx context.Context, id int64, status domain.Status) (*domain.Order, error)
	Delete(ctx context.Context, id int64) error
}

// BookService is the remote inventory boundary. Stock quantities sent through
// PushUpdates are absolute values.
type BookService interface {
	GetBook(ctx context.Context, bookID int64, token string) (*domain.Book, error)
	PushUpdates(ctx context.Context, books []domain.Book, token string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}
