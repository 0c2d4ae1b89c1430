package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/bookshelf/internal/models"
)

const (
	DefaultBaseURL = "https://openlibrary.org"
	searchLimit    = 100
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type searchResponse struct {
	Docs []doc `json:"docs"`
}

type doc struct {
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear *int     `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	CoverID          *int64   `json:"cover_i"`
}

// Search queries /search.json and maps each document onto an unsaved Book.
func (c *Client) Search(ctx context.Context, query string) ([]models.Book, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(searchLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed with status: %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	books := make([]models.Book, 0, len(result.Docs))
	for _, d := range result.Docs {
		books = append(books, d.toBook())
	}
	return books, nil
}

func (d doc) toBook() models.Book {
	b := models.Book{
		Title:  d.Title,
		Author: "Unknown Author",
		ISBN:   "N/A",
	}
	if len(d.AuthorName) > 0 {
		b.Author = strings.Join(d.AuthorName, ", ")
	}
	if len(d.ISBN) > 0 {
		b.ISBN = d.ISBN[0]
	}
	if d.CoverID != nil {
		b.CoverID = *d.CoverID
	}

	year := "Unknown"
	if d.FirstPublishYear != nil {
		year = strconv.Itoa(*d.FirstPublishYear)
	}
	b.Description = "First published in: " + year
	return b
}
