package api

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/contexthub/internal/jobqueue"
	"github.com/contexthub/internal/slack"
	"github.com/contexthub/pkg/models"
)

// DefaultSystemPrompt steers the Slack persona.
const DefaultSystemPrompt = `you are a helpful slack bot. answer questions like a very smart professor.
When analyzing screenshots or images, describe what you see and provide relevant insights.`

var urlPattern = regexp.MustCompile(`(https?://\S+)`)

// ExtractURLs returns every http(s) URL in the text. Slack wraps URLs in
// angle brackets, so trailing wrapper punctuation is trimmed off.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, strings.TrimRight(m, ">,.;)"))
	}
	return urls
}

func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Host != ""
}

// ContextAssembler builds the conversation history for an event.
type ContextAssembler interface {
	Assemble(ctx context.Context, channelID, threadID string, isMention bool) []models.ConversationTurn
}

// MessagePoster posts replies back to Slack.
type MessagePoster interface {
	PostMessage(ctx context.Context, channelID, threadTS, text string) error
}

// Screenshotter captures a single page screenshot, base64-encoded.
type Screenshotter interface {
	CaptureScreenshot(ctx context.Context, pageURL string) (string, error)
}

// Responder runs the deferred response pipeline for one accepted Slack
// message: history, screenshots, the LLM call, and the reply post.
type Responder struct {
	assembler    ContextAssembler
	capturer     Screenshotter
	llm          ChatModel
	poster       MessagePoster
	systemPrompt string
}

func NewResponder(assembler ContextAssembler, capturer Screenshotter, llm ChatModel, poster MessagePoster, systemPrompt string) *Responder {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Responder{
		assembler:    assembler,
		capturer:     capturer,
		llm:          llm,
		poster:       poster,
		systemPrompt: systemPrompt,
	}
}

// Process implements jobqueue.Processor.
func (r *Responder) Process(ctx context.Context, args jobqueue.SlackMessageJobArgs) error {
	// Context is anchored at the enclosing thread, or at the message itself
	// when it starts one.
	contextThread := args.ThreadTS
	if contextThread == "" {
		contextThread = args.TS
	}

	history := r.assembler.Assemble(ctx, args.ChannelID, contextThread, args.IsMention)
	log.Printf("[INFO] responder: assembled %d turns for %s/%s", len(history), args.ChannelID, contextThread)

	message := slack.InterpretMrkdwn(args.Text)
	var screenshots []string
	for _, u := range ExtractURLs(args.Text) {
		if !isValidURL(u) {
			continue
		}
		if r.capturer == nil {
			break
		}
		shot, err := r.capturer.CaptureScreenshot(ctx, u)
		if err != nil {
			log.Printf("[ERROR] responder: screenshot of %s failed: %v", u, err)
			continue
		}
		screenshots = append(screenshots, shot)
		message += fmt.Sprintf("\n[Screenshot of %s processed]", u)
	}

	turns := append(history, models.ConversationTurn{
		Role:   models.RoleUser,
		Text:   message,
		Images: screenshots,
	})

	reply, err := r.llm.Chat(ctx, r.systemPrompt, turns)
	if err != nil {
		return fmt.Errorf("responder: chat failed: %w", err)
	}

	// Replies land in the enclosing thread. A top-level mention starts a
	// thread under the mentioning message; everything else posts flat.
	postAnchor := args.ThreadTS
	if postAnchor == "" && args.IsMention {
		postAnchor = args.TS
	}

	if err := r.poster.PostMessage(ctx, args.ChannelID, postAnchor, reply); err != nil {
		return fmt.Errorf("responder: post failed: %w", err)
	}
	log.Printf("[INFO] responder: replied in %s (thread %q, %d screenshots)", args.ChannelID, postAnchor, len(screenshots))
	return nil
}
