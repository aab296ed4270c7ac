package api

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/contexthub/pkg/models"
)

const extractionPrompt = `This is a slide from a presentation. Please provide a very thorough summary of what this slide is about and what it communicates. Focus on capturing the key messages, main points, and any important details, even if some text is partially visible. Your summary should help reconstruct the full narrative of the presentation when combined with other slides. Use as much detail as needed to fully capture the content of the slide. Respond with a JSON object of the form {"summary": "..."} and no other commentary.`

type extractRequest struct {
	Screenshots []models.PageScreenshot `json:"screenshots"`
}

type extractResponse struct {
	Results []models.PageExtraction `json:"results"`
}

// handleExtract runs vision text extraction over each screenshot in
// parallel. A page that fails keeps its slot with an error message instead
// of sinking the batch.
func (s *Server) handleExtract(c echo.Context) error {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Screenshots) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "screenshots are required"})
	}

	log.Printf("[INFO] extract: starting text extraction for %d images", len(req.Screenshots))

	ctx := c.Request().Context()
	results := make([]models.PageExtraction, len(req.Screenshots))

	var wg sync.WaitGroup
	for i, shot := range req.Screenshots {
		wg.Add(1)
		go func(i int, shot models.PageScreenshot) {
			defer wg.Done()
			results[i] = s.extractPage(ctx, shot)
		}(i, shot)
	}
	wg.Wait()

	return c.JSON(http.StatusOK, extractResponse{Results: results})
}

func (s *Server) extractPage(ctx context.Context, shot models.PageScreenshot) models.PageExtraction {
	raw, err := base64.StdEncoding.DecodeString(shot.Base64Image)
	if err != nil {
		return models.PageExtraction{PageNumber: shot.PageNumber, Error: "invalid base64 image"}
	}

	// Structured output runs through the JSON repair pipeline, so fenced or
	// truncated model responses still yield a summary.
	var out struct {
		Summary string `json:"summary"`
	}
	if err := s.deps.ChatLLM.AnalyzeImagesStructured(ctx, extractionPrompt, [][]byte{raw}, &out); err != nil {
		log.Printf("[ERROR] extract: page %d failed: %v", shot.PageNumber, err)
		return models.PageExtraction{PageNumber: shot.PageNumber, Error: err.Error()}
	}
	return models.PageExtraction{PageNumber: shot.PageNumber, Text: out.Summary}
}
