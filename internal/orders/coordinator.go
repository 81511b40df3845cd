package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/polina-mishina/bookstore/internal/domain"
	"github.com/polina-mishina/bookstore/internal/pricing"
)

var meter = otel.Meter("orders")

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrForbidden         = errors.New("order belongs to another user")
	ErrOrderClosed       = errors.New("order is done")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("item quantity must be positive")
	ErrInvalidStatus     = errors.New("unknown order status")
)

// Coordinator orchestrates order mutations against two owners of state: the
// local order store and the remote books service. There is no transaction
// spanning both. Create and Update persist locally before pushing stock, and
// Delete pushes stock before deleting locally, so a push failure leaves the
// two sides inconsistent with no automatic compensation. Validation, however,
// is always completed before the first write anywhere.
type Coordinator struct {
	store         OrderStore
	books         BookService
	publisher     EventPublisher
	logger        *slog.Logger
	ordersCreated metric.Int64Counter
}

// NewCoordinator wires the coordinator. publisher may be nil, which disables
// event publishing.
func NewCoordinator(store OrderStore, books BookService, publisher EventPublisher, logger *slog.Logger) *Coordinator {
	ordersCreated, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Total orders successfully placed"),
	)
	if err != nil {
		logger.Warn("failed to create orders counter", "error", err)
	}

	return &Coordinator{
		store:         store,
		books:         books,
		publisher:     publisher,
		logger:        logger,
		ordersCreated: ordersCreated,
	}
}

func (c *Coordinator) Create(ctx context.Context, userID int64, token string, items []domain.OrderItem) (*domain.Order, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	ledger := newStockLedger()
	for _, item := range items {
		book, err := c.books.GetBook(ctx, item.BookID, token)
		if err != nil {
			return nil, err
		}
		if book.Quantity < item.Quantity {
			return nil, fmt.Errorf("%w for book %q", ErrInsufficientStock, book.Title)
		}
		ledger.add(book)
	}

	order := &domain.Order{
		UserID:    userID,
		Status:    domain.StatusNew,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	for _, item := range order.Items {
		ledger.reserve(item.BookID, item.Quantity)
	}

	// The order is already committed locally; if the push fails the remote
	// stock keeps its old quantities and the caller sees the error.
	if err := c.books.PushUpdates(ctx, ledger.books(), token); err != nil {
		return nil, fmt.Errorf("push stock updates for order %d: %w", order.ID, err)
	}

	c.publishCreated(ctx, order)
	if c.ordersCreated != nil {
		c.ordersCreated.Add(ctx, 1)
	}
	c.logger.Info("order created", "order_id", order.ID, "user_id", userID, "items", len(order.Items))
	return order, nil
}

func (c *Coordinator) Update(ctx context.Context, id, userID int64, token string, newItems []domain.OrderItem) (*domain.Order, error) {
	if err := validateItems(newItems); err != nil {
		return nil, err
	}

	order, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, ErrForbidden
	}
	if order.Status == domain.StatusDone {
		return nil, ErrOrderClosed
	}

	// Release the current reservation into the ledger only. Nothing is
	// written remotely until the whole new item set has been validated.
	ledger := newStockLedger()
	for _, item := range order.Items {
		book, err := c.books.GetBook(ctx, item.BookID, token)
		if err != nil {
			return nil, err
		}
		ledger.add(book)
		ledger.restore(item.BookID, item.Quantity)
	}

	for _, item := range newItems {
		if !ledger.has(item.BookID) {
			book, err := c.books.GetBook(ctx, item.BookID, token)
			if err != nil {
				return nil, err
			}
			ledger.add(book)
		}
		if ledger.available(item.BookID) < item.Quantity {
			return nil, fmt.Errorf("%w for book %q", ErrInsufficientStock, ledger.title(item.BookID))
		}
	}

	order.Items = newItems
	if err := c.store.ReplaceItems(ctx, order); err != nil {
		return nil, fmt.Errorf("save order %d: %w", id, err)
	}

	for _, item := range newItems {
		ledger.reserve(item.BookID, item.Quantity)
	}

	if err := c.books.PushUpdates(ctx, ledger.books(), token); err != nil {
		return nil, fmt.Errorf("push stock updates for order %d: %w", id, err)
	}

	c.logger.Info("order updated", "order_id", id, "user_id", userID, "items", len(newItems))
	return order, nil
}

// UpdateStatus transitions the order to any known status. Transitions are
// deliberately unconstrained; only Update and Delete refuse DONE orders.
func (c *Coordinator) UpdateStatus(ctx context.Context, id int64, status domain.Status) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := c.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("update status of order %d: %w", id, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	c.logger.Info("order status updated", "order_id", id, "status", status)
	return order, nil
}

func (c *Coordinator) Delete(ctx context.Context, id int64, token string) error {
	order, err := c.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load order %d: %w", id, err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Status == domain.StatusDone {
		return ErrOrderClosed
	}

	ledger := newStockLedger()
	for _, item := range order.Items {
		book, err := c.books.GetBook(ctx, item.BookID, token)
		if err != nil {
			return err
		}
		ledger.add(book)
		ledger.restore(item.BookID, item.Quantity)
	}

	if err := c.books.PushUpdates(ctx, ledger.books(), token); err != nil {
		return fmt.Errorf("push stock updates for order %d: %w", id, err)
	}

	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}

	c.logger.Info("order deleted", "order_id", id)
	return nil
}

type OrderItemResponse struct {
	BookID     int64   `json:"book_id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	TotalPrice float64 `json:"total_price"`
}

type OrderResponse struct {
	ID         int64               `json:"id"`
	UserID     int64               `json:"user_id"`
	Status     domain.Status       `json:"status"`
	Items      []OrderItemResponse `json:"items"`
	TotalPrice float64             `json:"total_price"`
	CreatedAt  time.Time           `json:"created_at"`
}

func (c *Coordinator) Get(ctx context.Context, id int64, token string) (*OrderResponse, error) {
	order, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return c.toResponse(ctx, order, token)
}

func (c *Coordinator) List(ctx context.Context, token string) ([]OrderResponse, error) {
	orders, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return c.toResponses(ctx, orders, token)
}

func (c *Coordinator) ListByUser(ctx context.Context, userID int64, token string) ([]OrderResponse, error) {
	orders, err := c.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", userID, err)
	}
	return c.toResponses(ctx, orders, token)
}

func (c *Coordinator) toResponses(ctx context.Context, orders []domain.Order, token string) ([]OrderResponse, error) {
	responses := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		resp, err := c.toResponse(ctx, &orders[i], token)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, nil
}

// toResponse renders one order with current titles and prices from the books
// service. A missing book fails the whole read; there is no partial
// rendering.
func (c *Coordinator) toResponse(ctx context.Context, order *domain.Order, token string) (*OrderResponse, error) {
	items := make([]OrderItemResponse, 0, len(order.Items))
	lineTotals := make([]float64, 0, len(order.Items))
	for _, item := range order.Items {
		book, err := c.books.GetBook(ctx, item.BookID, token)
		if err != nil {
			return nil, err
		}

		lineTotal := pricing.LineTotal(book.Price, item.Quantity)
		lineTotals = append(lineTotals, lineTotal)
		items = append(items, OrderItemResponse{
			BookID:     item.BookID,
			Title:      book.Title,
			Quantity:   item.Quantity,
			Price:      book.Price,
			TotalPrice: lineTotal,
		})
	}

	return &OrderResponse{
		ID:         order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		Items:      items,
		TotalPrice: pricing.OrderTotal(lineTotals),
		CreatedAt:  order.CreatedAt,
	}, nil
}

func (c *Coordinator) publishCreated(ctx context.Context, order *domain.Order) {
	if c.publisher == nil {
		return
	}

	event := domain.OrderCreatedEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Items:     order.Items,
		Timestamp: order.CreatedAt,
	}
	if err := c.publisher.Publish(ctx, strconv.FormatInt(order.ID, 10), event); err != nil {
		c.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
}

func validateItems(items []domain.OrderItem) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: book %d", ErrInvalidQuantity, item.BookID)
		}
	}
	return nil
}
