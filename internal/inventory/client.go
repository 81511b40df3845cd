// Package inventory talks to the remote books service, the single source of
// truth for stock. Reads forward the caller's bearer token; bulk writes add
// the internal API key so the books service accepts the quantity change as a
// trusted service-to-service write.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/polina-mishina/bookstore/internal/domain"
)

var ErrBookNotFound = errors.New("book not found")

// ServiceError reports a books service call that failed at the transport
// level or returned an unusable response.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return "books service: " + e.Op + ": " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

type BookClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewBookClient(baseURL, apiKey string, client *http.Client) *BookClient {
	return &BookClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: client,
	}
}

func (c *BookClient) GetBook(ctx context.Context, bookID int64, token string) (*domain.Book, error) {
	op := fmt.Sprintf("get book %d", bookID)

	url := c.baseURL + "/books/" + strconv.FormatInt(bookID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ServiceError{Op: op, Err: err}
	}
	setAuth(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServiceError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var book domain.Book
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, &ServiceError{Op: op, Err: err}
	}

	return &book, nil
}

// PushUpdates sends the full updated representation of every touched book.
// Quantities are absolute values, not deltas. No retries: a transport failure
// surfaces directly to the caller.
func (c *BookClient) PushUpdates(ctx context.Context, books []domain.Book, token string) error {
	const op = "push updates"

	data, err := json.Marshal(books)
	if err != nil {
		return &ServiceError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/books", bytes.NewReader(data))
	if err != nil {
		return &ServiceError{Op: op, Err: err}
	}
	setAuth(req, token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ServiceError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServiceError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	return nil
}

func setAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
