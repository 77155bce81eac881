// internal/fetch/fetch.go
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"bookstore/internal/domain"
)

// releaseDateLayout matches the external API's date format, e.g. "Dec 1, 2008".
const releaseDateLayout = "Jan 2, 2006"

// ExternalBook is the external catalog's wire representation of a book.
type ExternalBook struct {
	Number        int    `json:"number"`
	Title         string `json:"title"`
	OriginalTitle string `json:"originalTitle"`
	ReleaseDate   string `json:"releaseDate"`
	Description   string `json:"description"`
	Pages         int    `json:"pages"`
	Cover         string `json:"cover"`
	Index         int    `json:"index"`
}

// Fetcher pulls the book list from the external catalog API.
type Fetcher struct {
	client  *http.Client
	url     string
	limiter *rate.Limiter
}

// NewFetcher creates a fetcher for the given URL, rate limited to one request
// per interval with a small burst.
func NewFetcher(url string, interval time.Duration) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		url:     url,
		limiter: rate.NewLimiter(rate.Every(interval), 2),
	}
}

// Fetch retrieves the external catalog and maps it onto domain books.
// Imported books start with zero copies and zero price; stock and pricing are
// set locally afterwards.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.Book, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch external books: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("external API returned status %d", resp.StatusCode)
	}

	var external []ExternalBook
	if err := json.NewDecoder(resp.Body).Decode(&external); err != nil {
		return nil, fmt.Errorf("decode external books: %w", err)
	}

	books := make([]domain.Book, 0, len(external))
	for _, e := range external {
		books = append(books, mapBook(e))
	}
	return books, nil
}

func mapBook(e ExternalBook) domain.Book {
	b := domain.Book{
		Number:        e.Number,
		Title:         e.Title,
		OriginalTitle: e.OriginalTitle,
		Description:   e.Description,
		Pages:         e.Pages,
		Cover:         e.Cover,
		Index:         e.Index,
	}
	if t, err := time.Parse(releaseDateLayout, e.ReleaseDate); err == nil {
		b.ReleaseDate = &t
	}
	return b
}
