package api

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

type browseRequest struct {
	URL string `json:"url"`
}

// handleBrowse captures every page of a slide deck concurrently and returns
// the screenshots sorted by page number. Pages that fail are left out; the
// counts tell the caller how complete the result is.
func (s *Server) handleBrowse(c echo.Context) error {
	var req browseRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}

	result, err := s.deps.Capturer.CaptureDeck(c.Request().Context(), req.URL)
	if err != nil {
		log.Printf("[ERROR] browse: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to capture screenshots"})
	}
	return c.JSON(http.StatusOK, result)
}

type capturePageRequest struct {
	URL        string `json:"url"`
	PageNumber int    `json:"pageNumber"`
}

func (s *Server) handleCapturePage(c echo.Context) error {
	var req capturePageRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}
	if req.PageNumber < 1 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "pageNumber must be positive"})
	}

	shot, err := s.deps.Capturer.CapturePage(c.Request().Context(), req.URL, req.PageNumber)
	if err != nil {
		log.Printf("[ERROR] capture-page: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to capture page"})
	}
	return c.JSON(http.StatusOK, shot)
}

func (s *Server) handlePageCount(c echo.Context) error {
	var req browseRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}

	total, err := s.deps.Capturer.PageCount(c.Request().Context(), req.URL)
	if err != nil {
		log.Printf("[ERROR] page-count: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get page count"})
	}
	return c.JSON(http.StatusOK, map[string]int{"totalPages": total})
}

type docsRequest struct {
	DocURL string `json:"docUrl"`
}

// handleDocs fetches the text content of a shared Google Doc.
func (s *Server) handleDocs(c echo.Context) error {
	var req docsRequest
	if err := c.Bind(&req); err != nil || req.DocURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "docUrl is required"})
	}

	doc, err := s.deps.Docs.Fetch(c.Request().Context(), req.DocURL)
	if err != nil {
		log.Printf("[ERROR] docs: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch doc"})
	}
	return c.JSON(http.StatusOK, doc)
}
