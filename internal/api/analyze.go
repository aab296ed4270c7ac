package api

import (
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/contexthub/pkg/models"
)

const deckAnalysisPrompt = `Please analyze this presentation and provide:
1. A concise executive summary
2. Key themes and messages
3. Notable insights or unique perspectives
4. Areas that could be improved or clarified
5. Overall assessment of effectiveness

Focus on both content and presentation style. Be terse. Act as though you're bringing someone up to speed. The pages follow in order.`

type analyzeRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// handleAnalyze answers a question against supplied document context using
// the analysis model.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Question == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "question is required"})
	}

	prompt := fmt.Sprintf("Context from Google Doc:\n%s\n\nQuestion: %s\n\nPlease provide a clear and concise answer based on the context provided.",
		req.Context, req.Question)

	answer, err := s.deps.AnalysisLLM.Generate(c.Request().Context(), prompt)
	if err != nil {
		log.Printf("[ERROR] analyze: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to analyze document"})
	}
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

type analyzePDFRequest struct {
	Screenshots []models.PageScreenshot `json:"screenshots"`
}

// handleAnalyzePDF summarizes a captured deck. The page images go to the
// analysis model in page order as one multimodal message.
func (s *Server) handleAnalyzePDF(c echo.Context) error {
	var req analyzePDFRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Screenshots) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "screenshots are required"})
	}

	shots := make([]models.PageScreenshot, len(req.Screenshots))
	copy(shots, req.Screenshots)
	sort.Slice(shots, func(i, j int) bool { return shots[i].PageNumber < shots[j].PageNumber })

	images := make([][]byte, 0, len(shots))
	for _, shot := range shots {
		raw, err := base64.StdEncoding.DecodeString(shot.Base64Image)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("invalid base64 image for page %d", shot.PageNumber),
			})
		}
		images = append(images, raw)
	}

	log.Printf("[INFO] analyze-pdf: sending %d pages for analysis", len(images))

	analysis, err := s.deps.AnalysisLLM.AnalyzeImages(c.Request().Context(), deckAnalysisPrompt, images)
	if err != nil {
		log.Printf("[ERROR] analyze-pdf: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to analyze presentation"})
	}
	return c.JSON(http.StatusOK, map[string]string{"analysis": analysis})
}
