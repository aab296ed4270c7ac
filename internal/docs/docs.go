// Package docs fetches the plain-text body of shared Google Docs.
package docs

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"time"
)

// docIDPattern matches the document id segment of a Google Docs URL.
var docIDPattern = regexp.MustCompile(`[-\w]{25,}`)

// ExtractDocID pulls the document id out of a docs.google.com URL.
// Returns "" when the URL carries nothing that looks like one.
func ExtractDocID(docURL string) string {
	return docIDPattern.FindString(docURL)
}

// Document is a fetched doc.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Fetcher downloads documents through the public export endpoint. Works for
// docs shared with link access; private docs come back as an HTTP error.
type Fetcher struct {
	exportURL  string
	httpClient *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		exportURL:  "https://docs.google.com/document/d/%s/export?format=txt",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads the text content of the doc referenced by docURL.
func (f *Fetcher) Fetch(ctx context.Context, docURL string) (Document, error) {
	docID := ExtractDocID(docURL)
	if docID == "" {
		return Document{}, fmt.Errorf("docs: invalid doc URL: %s", docURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(f.exportURL, docID), nil)
	if err != nil {
		return Document{}, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("docs: fetch failed for %s: %w", docID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusUnauthorized:
		return Document{}, fmt.Errorf("docs: access denied for %s, check the doc's sharing settings", docID)
	default:
		return Document{}, fmt.Errorf("docs: fetch for %s returned %s", docID, resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("docs: failed to read doc %s: %w", docID, err)
	}

	log.Printf("[INFO] docs: fetched doc %s (%d bytes)", docID, len(content))
	return Document{ID: docID, Content: string(content)}, nil
}
