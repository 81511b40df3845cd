package orders

import (
	"sort"

	"github.com/polina-mishina/bookstore/internal/domain"
)

// stockLedger holds the working quantity of every book touched by one
// coordination operation. Restores and reserves are pure map arithmetic; the
// ledger never talks to the books service, so an update can reuse the stock
// room its own order occupies without first committing a release remotely.
type stockLedger map[int64]*domain.Book

func newStockLedger() stockLedger {
	return make(stockLedger)
}

// add records a freshly fetched book, replacing any previous entry for the
// same book.
func (l stockLedger) add(book *domain.Book) {
	l[book.ID] = book
}

func (l stockLedger) has(bookID int64) bool {
	_, ok := l[bookID]
	return ok
}

func (l stockLedger) available(bookID int64) int {
	if book, ok := l[bookID]; ok {
		return book.Quantity
	}
	return 0
}

func (l stockLedger) title(bookID int64) string {
	if book, ok := l[bookID]; ok {
		return book.Title
	}
	return ""
}

func (l stockLedger) restore(bookID int64, quantity int) {
	if book, ok := l[bookID]; ok {
		book.Quantity += quantity
	}
}

func (l stockLedger) reserve(bookID int64, quantity int) {
	if book, ok := l[bookID]; ok {
		book.Quantity -= quantity
	}
}

// books returns every entry with its resulting absolute quantity, ordered by
// book id so pushes are deterministic.
func (l stockLedger) books() []domain.Book {
	books := make([]domain.Book, 0, len(l))
	for _, book := range l {
		books = append(books, *book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books
}
