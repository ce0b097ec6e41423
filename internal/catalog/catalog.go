// Package catalog is the static book catalog.
package catalog

import (
	"slices"
	"strings"
)

// Book is one catalog entry. Price is in whole rupees.
type Book struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Price  int    `json:"price"`
}

var books = []Book{
	{ID: 1, Title: "Harry Potter and the Philosopher's Stone", Author: "J. K. Rowling", Price: 452},
	{ID: 2, Title: "Harry Potter and the Goblet of Fire", Author: "J. K. Rowling", Price: 501},
	{ID: 3, Title: "Rich Dad Poor Dad", Author: "Robert T. Kiyosaki", Price: 389},
	{ID: 4, Title: "Deep Work", Author: "Cal Newport", Price: 260},
}

// Books returns a copy of the catalog in id order.
func Books() []Book { return slices.Clone(books) }

// Find returns the book with id.
func Find(id int) (Book, bool) {
	for _, b := range books {
		if b.ID == id {
			return b, true
		}
	}
	return Book{}, false
}

// Search returns books whose title or author contains term, ignoring case.
// An empty term matches everything.
func Search(term string) []Book {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []Book
	for _, b := range books {
		if term == "" ||
			strings.Contains(strings.ToLower(b.Title), term) ||
			strings.Contains(strings.ToLower(b.Author), term) {
			out = append(out, b)
		}
	}
	return out
}
