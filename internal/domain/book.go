package domain

// Book is owned by the remote books service. The order service reads and
// writes it over HTTP and never persists it locally.
type Book struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Quantity    int      `json:"quantity"`
	Authors     []Author `json:"authors,omitempty"`
}

type Author struct {
	ID         int64  `json:"id"`
	Name       string `json:"name,omitempty"`
	Surname    string `json:"surname,omitempty"`
	Patronymic string `json:"patronymic,omitempty"`
}
