package zoom

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Webhook event names the hub reacts to.
const (
	EventURLValidation       = "endpoint.url_validation"
	EventMeetingEnded        = "meeting.ended"
	EventTranscriptCompleted = "recording.transcript_completed"
)

// WebhookPayload is the outer envelope of a Zoom webhook delivery.
type WebhookPayload struct {
	Event   string       `json:"event"`
	Payload EventPayload `json:"payload"`
}

// EventPayload carries either a validation challenge or a meeting object,
// depending on the event.
type EventPayload struct {
	PlainToken string        `json:"plainToken,omitempty"`
	AccountID  string        `json:"account_id,omitempty"`
	Object     MeetingObject `json:"object,omitempty"`
}

// MeetingObject describes the meeting or recording the event is about.
type MeetingObject struct {
	ID             string          `json:"id"`
	UUID           string          `json:"uuid"`
	HostID         string          `json:"host_id"`
	Topic          string          `json:"topic"`
	StartTime      string          `json:"start_time"`
	Duration       int             `json:"duration"`
	HostEmail      string          `json:"host_email"`
	RecordingFiles []RecordingFile `json:"recording_files"`
}

// RecordingFile is one artifact of a cloud recording.
type RecordingFile struct {
	ID            string `json:"id"`
	MeetingID     string `json:"meeting_id"`
	FileType      string `json:"file_type"`
	FileSize      int64  `json:"file_size"`
	DownloadURL   string `json:"download_url"`
	RecordingType string `json:"recording_type"`
}

// ValidationResponse answers Zoom's endpoint.url_validation challenge.
type ValidationResponse struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// ValidationReply computes the HMAC-SHA256 reply for a validation challenge.
func ValidationReply(secretToken, plainToken string) ValidationResponse {
	mac := hmac.New(sha256.New, []byte(secretToken))
	mac.Write([]byte(plainToken))
	return ValidationResponse{
		PlainToken:     plainToken,
		EncryptedToken: hex.EncodeToString(mac.Sum(nil)),
	}
}

// AccessTokens hands out valid access tokens for a Zoom user.
type AccessTokens interface {
	ValidAccessToken(ctx context.Context, zoomUserID string) (string, error)
}

// TranscriptFetcher downloads completed meeting transcripts.
type TranscriptFetcher struct {
	tokens     AccessTokens
	httpClient *http.Client
}

func NewTranscriptFetcher(tokens AccessTokens) *TranscriptFetcher {
	return &TranscriptFetcher{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// HandleTranscriptCompleted downloads the audio transcript announced by a
// recording.transcript_completed event and returns its text.
func (f *TranscriptFetcher) HandleTranscriptCompleted(ctx context.Context, payload EventPayload) (string, error) {
	obj := payload.Object
	log.Printf("[INFO] zoom: transcript completed for meeting %s (%q, %d files)",
		obj.ID, obj.Topic, len(obj.RecordingFiles))

	var transcriptFile *RecordingFile
	for i := range obj.RecordingFiles {
		if obj.RecordingFiles[i].RecordingType == "audio_transcript" {
			transcriptFile = &obj.RecordingFiles[i]
			break
		}
	}
	if transcriptFile == nil {
		return "", fmt.Errorf("zoom: no transcript file in payload for meeting %s", obj.ID)
	}

	accessToken, err := f.tokens.ValidAccessToken(ctx, obj.HostID)
	if err != nil {
		return "", fmt.Errorf("zoom: account not authorized for meeting %s: %w", obj.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, transcriptFile.DownloadURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("zoom: transcript download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("zoom: transcript download rejected: %s", resp.Status)
	}

	transcript, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("zoom: failed to read transcript: %w", err)
	}
	return string(transcript), nil
}
