package api

import (
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/contexthub/internal/jobqueue"
	"github.com/contexthub/internal/slack"
	"github.com/contexthub/internal/webhookutils"
	"github.com/contexthub/pkg/models"
)

// handleSlackChat is the Slack Events API endpoint. It does only the fast
// decisions inline (verification, policy, dedup) and defers everything slow
// to the job queue so the ack beats Slack's delivery deadline.
func (s *Server) handleSlackChat(c echo.Context) error {
	rawBody, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
	}

	payload, err := slack.ParsePayload(rawBody)
	if err != nil {
		log.Printf("[ERROR] slack webhook: bad payload: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	// Slack sends url_verification before credentials are exchanged, it is
	// answered without a signature check.
	if payload.Type == "url_verification" {
		log.Printf("[INFO] slack webhook: answering URL verification")
		return c.JSON(http.StatusOK, map[string]string{"challenge": payload.Challenge})
	}

	timestamp, signature := webhookutils.SlackSignatureHeaders(c.Request().Header)
	if !s.deps.Verifier.Verify(timestamp, signature, rawBody) {
		log.Printf("[INFO] slack webhook: rejected request with invalid signature")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid request"})
	}

	if payload.Type != "event_callback" || payload.Event == nil {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}

	ctx := c.Request().Context()
	event := slack.Classify(payload.Event)

	respond, err := s.deps.Policy.ShouldRespond(ctx, event)
	if err != nil {
		log.Printf("[ERROR] slack webhook: policy check failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	if !respond {
		log.Printf("[DEBUG] slack webhook: ignoring %s in %s", event.Kind, event.ChannelID)
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}

	// Terminal discards after the policy decision: our own messages, edits
	// and other subtypes, and events without a channel are acked and
	// dropped. The order matters for a bot-authored mention, whose thread
	// activation must still happen even though the message gets no reply.
	if event.IsFromBot || event.Subtype != "" || event.ChannelID == "" {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}

	if event.EventID == "" {
		log.Printf("[INFO] slack webhook: event without usable id, skipping")
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}

	duplicate, err := s.deps.Tracker.HasProcessed(ctx, event.EventID)
	if err != nil {
		log.Printf("[ERROR] slack webhook: dedup check failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	if duplicate {
		log.Printf("[INFO] slack webhook: skipping duplicate event %s", event.EventID)
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}

	args := jobqueue.SlackMessageJobArgs{
		ChannelID: event.ChannelID,
		ThreadTS:  event.ThreadID,
		TS:        event.TS,
		Text:      event.Text,
		IsMention: event.Kind == models.EventMention,
	}
	if err := s.deps.Queue.EnqueueSlackMessage(ctx, args); err != nil {
		log.Printf("[ERROR] slack webhook: enqueue failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	log.Printf("[INFO] slack webhook: queued %s event %s in %s", event.Kind, event.EventID, event.ChannelID)
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
