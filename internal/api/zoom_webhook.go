package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/contexthub/internal/zoom"
)

// handleZoomNotification is the Zoom webhook endpoint. It answers the
// url_validation challenge and dispatches known events; everything else is
// acked and ignored so Zoom does not retry.
func (s *Server) handleZoomNotification(c echo.Context) error {
	rawBody, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
	}

	var payload zoom.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		log.Printf("[ERROR] zoom webhook: bad payload: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	if payload.Event == zoom.EventURLValidation {
		secret := s.deps.Config.Zoom.WebhookSecretToken
		if secret == "" {
			log.Printf("[ERROR] zoom webhook: webhook secret token not configured")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "server configuration error"})
		}
		return c.JSON(http.StatusOK, zoom.ValidationReply(secret, payload.Payload.PlainToken))
	}

	log.Printf("[INFO] zoom webhook: received event %s", payload.Event)

	switch payload.Event {
	case zoom.EventTranscriptCompleted:
		transcript, err := s.deps.Transcripts.HandleTranscriptCompleted(c.Request().Context(), payload.Payload)
		if err != nil {
			log.Printf("[ERROR] zoom webhook: transcript handling failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		log.Printf("[INFO] zoom webhook: downloaded transcript for meeting %s (%d bytes)",
			payload.Payload.Object.ID, len(transcript))
	case zoom.EventMeetingEnded:
		log.Printf("[INFO] zoom webhook: meeting ended: %s (%q)",
			payload.Payload.Object.ID, payload.Payload.Object.Topic)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}
