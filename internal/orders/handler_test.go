package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/polina-mishina/bookstore/internal/domain"
	"github.com/polina-mishina/bookstore/internal/inventory"
)

func newTestServer(store OrderStore, books BookService) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(NewCoordinator(store, books, nil, logger), logger)

	mux := http.NewServeMux()
	handler.Register(mux)
	return httptest.NewServer(mux)
}

func doRequest(t *testing.T, method, url, userID, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer caller-token")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestHandler_CreateOrder(t *testing.T) {
	t.Run("creates order and returns 201", func(t *testing.T) {
		books := newFakeBookService(domain.Book{ID: 1, Title: "A", Quantity: 10})
		server := newTestServer(newFakeStore(), books)
		defer server.Close()

		resp := doRequest(t, http.MethodPost, server.URL+"/orders", "7", `{"items":[{"book_id":1,"quantity":3}]}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", resp.StatusCode)
		}

		var order domain.Order
		if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.UserID != 7 || order.Status != domain.StatusNew {
			t.Errorf("unexpected order: %+v", order)
		}
		if books.quantity(t, 1) != 7 {
			t.Errorf("expected remote stock 7, got %d", books.quantity(t, 1))
		}
	})

	t.Run("rejects missing identity with 401", func(t *testing.T) {
		server := newTestServer(newFakeStore(), newFakeBookService())
		defer server.Close()

		resp := doRequest(t, http.MethodPost, server.URL+"/orders", "", `{"items":[{"book_id":1,"quantity":3}]}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", resp.StatusCode)
		}
	})

	t.Run("rejects empty item list with 400", func(t *testing.T) {
		server := newTestServer(newFakeStore(), newFakeBookService())
		defer server.Close()

		resp := doRequest(t, http.MethodPost, server.URL+"/orders", "7", `{"items":[]}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", resp.StatusCode)
		}
	})

	t.Run("maps insufficient stock to 409", func(t *testing.T) {
		books := newFakeBookService(domain.Book{ID: 1, Title: "A", Quantity: 2})
		server := newTestServer(newFakeStore(), books)
		defer server.Close()

		resp := doRequest(t, http.MethodPost, server.URL+"/orders", "7", `{"items":[{"book_id":1,"quantity":3}]}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusConflict {
			t.Errorf("expected status 409, got %d", resp.StatusCode)
		}
	})

	t.Run("maps missing book to 404", func(t *testing.T) {
		server := newTestServer(newFakeStore(), newFakeBookService())
		defer server.Close()

		resp := doRequest(t, http.MethodPost, server.URL+"/orders", "7", `{"items":[{"book_id":99,"quantity":1}]}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", resp.StatusCode)
		}
	})

	t.Run("maps books service failure to 502", func(t *testing.T) {
		books := newFakeBookService(domain.Book{ID: 1, Title: "A", Quantity: 10})
		books.pushErr = &inventory.ServiceError{Op: "push updates", Err: errors.New("connection refused")}
		server := newTestServer(newFakeStore(), books)
		defer server.Close()

		resp := doRequest(t, http.MethodPost, server.URL+"/orders", "7", `{"items":[{"book_id":1,"quantity":1}]}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", resp.StatusCode)
		}
	})
}

func TestHandler_UpdateOrder(t *testing.T) {
	seed := func(t *testing.T) (*httptest.Server, *fakeBookService, int64) {
		t.Helper()
		books := newFakeBookService(
			domain.Book{ID: 1, Title: "A", Quantity: 10},
			domain.Book{ID: 2, Title: "B", Quantity: 5},
		)
		store := newFakeStore()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		order, err := NewCoordinator(store, books, nil, logger).
			Create(context.Background(), 7, "caller-token", []domain.OrderItem{{BookID: 1, Quantity: 5}})
		if err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
		return newTestServer(store, books), books, order.ID
	}

	t.Run("replaces items and pushes reconciled stock", func(t *testing.T) {
		server, books, id := seed(t)
		defer server.Close()

		resp := doRequest(t, http.MethodPut, fmt.Sprintf("%s/orders/%d", server.URL, id), "7",
			`{"items":[{"book_id":1,"quantity":3},{"book_id":2,"quantity":2}]}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		if books.quantity(t, 1) != 7 || books.quantity(t, 2) != 3 {
			t.Errorf("unexpected stock after update: A=%d B=%d", books.quantity(t, 1), books.quantity(t, 2))
		}
	})

	t.Run("maps foreign order to 403", func(t *testing.T) {
		server, _, _ := seed(t)
		defer server.Close()

		resp := doRequest(t, http.MethodPut, server.URL+"/orders/1", "8", `{"items":[{"book_id":1,"quantity":1}]}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", resp.StatusCode)
		}
	})

	t.Run("maps unknown order to 404", func(t *testing.T) {
		server, _, _ := seed(t)
		defer server.Close()

		resp := doRequest(t, http.MethodPut, server.URL+"/orders/999", "7", `{"items":[{"book_id":1,"quantity":1}]}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", resp.StatusCode)
		}
	})

	t.Run("rejects non-numeric order id", func(t *testing.T) {
		server, _, _ := seed(t)
		defer server.Close()

		resp := doRequest(t, http.MethodPut, server.URL+"/orders/abc", "7", `{"items":[{"book_id":1,"quantity":1}]}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", resp.StatusCode)
		}
	})
}

func TestHandler_UpdateStatus(t *testing.T) {
	t.Run("updates status", func(t *testing.T) {
		books := newFakeBookService(domain.Book{ID: 1, Title: "A", Quantity: 10})
		store := newFakeStore()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if _, err := NewCoordinator(store, books, nil, logger).
			Create(context.Background(), 7, "caller-token", []domain.OrderItem{{BookID: 1, Quantity: 1}}); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
		server := newTestServer(store, books)
		defer server.Close()

		resp := doRequest(t, http.MethodPut, server.URL+"/orders/1/status", "", `{"status":"IN_PROCESSING"}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}

		var order domain.Order
		if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.Status != domain.StatusInProcessing {
			t.Errorf("expected IN_PROCESSING, got %s", order.Status)
		}
	})

	t.Run("rejects unknown status with 400", func(t *testing.T) {
		server := newTestServer(newFakeStore(), newFakeBookService())
		defer server.Close()

		resp := doRequest(t, http.MethodPut, server.URL+"/orders/1/status", "", `{"status":"SHIPPED"}`)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", resp.StatusCode)
		}
	})
}

func TestHandler_DeleteOrder(t *testing.T) {
	t.Run("deletes and returns 204", func(t *testing.T) {
		books := newFakeBookService(domain.Book{ID: 1, Title: "A", Quantity: 10})
		store := newFakeStore()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if _, err := NewCoordinator(store, books, nil, logger).
			Create(context.Background(), 7, "caller-token", []domain.OrderItem{{BookID: 1, Quantity: 4}}); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
		server := newTestServer(store, books)
		defer server.Close()

		resp := doRequest(t, http.MethodDelete, server.URL+"/orders/1", "7", "")
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", resp.StatusCode)
		}
		if books.quantity(t, 1) != 10 {
			t.Errorf("expected stock restored to 10, got %d", books.quantity(t, 1))
		}
	})

	t.Run("maps done order to 409", func(t *testing.T) {
		books := newFakeBookService(domain.Book{ID: 1, Title: "A", Quantity: 10})
		store := newFakeStore()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		c := NewCoordinator(store, books, nil, logger)
		order, err := c.Create(context.Background(), 7, "caller-token", []domain.OrderItem{{BookID: 1, Quantity: 1}})
		if err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
		if _, err := c.UpdateStatus(context.Background(), order.ID, domain.StatusDone); err != nil {
			t.Fatalf("seed status update failed: %v", err)
		}
		server := newTestServer(store, books)
		defer server.Close()

		resp := doRequest(t, http.MethodDelete, server.URL+"/orders/1", "7", "")
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusConflict {
			t.Errorf("expected status 409, got %d", resp.StatusCode)
		}
	})
}

func TestHandler_Reads(t *testing.T) {
	t.Run("lists caller's orders with totals", func(t *testing.T) {
		books := newFakeBookService(domain.Book{ID: 1, Title: "A", Price: 550.99, Quantity: 1000})
		store := newFakeStore()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if _, err := NewCoordinator(store, books, nil, logger).
			Create(context.Background(), 7, "caller-token", []domain.OrderItem{{BookID: 1, Quantity: 100}}); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
		server := newTestServer(store, books)
		defer server.Close()

		resp := doRequest(t, http.MethodGet, server.URL+"/orders/me", "7", "")
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}

		var orders []OrderResponse
		if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(orders) != 1 {
			t.Fatalf("expected 1 order, got %d", len(orders))
		}
		if orders[0].TotalPrice != 55099.00 {
			t.Errorf("expected total 55099.00, got %v", orders[0].TotalPrice)
		}
	})

	t.Run("get unknown order returns 404", func(t *testing.T) {
		server := newTestServer(newFakeStore(), newFakeBookService())
		defer server.Close()

		resp := doRequest(t, http.MethodGet, server.URL+"/orders/42", "", "")
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", resp.StatusCode)
		}
	})
}
