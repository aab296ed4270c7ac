// Package conversation builds the message history handed to the LLM for a
// Slack event. Channel context and thread context are fetched separately and
// concatenated so that ambient channel chatter always precedes the thread the
// bot is actually replying in.
package conversation

import (
	"context"
	"log"
	"strings"

	"github.com/contexthub/internal/slack"
	"github.com/contexthub/pkg/models"
)

const (
	// ChannelHistoryLimit caps how many recent channel messages are pulled
	// in when the bot is mentioned outside a thread it already knows.
	ChannelHistoryLimit = 20

	// ThreadHistoryLimit caps how many replies of a thread are replayed.
	ThreadHistoryLimit = 100
)

// Fetcher is the slice of the Slack client the assembler needs.
type Fetcher interface {
	ChannelHistory(ctx context.Context, channelID string, limit int) ([]slack.HistoryMessage, error)
	ThreadReplies(ctx context.Context, channelID, threadTS string, limit int) ([]slack.HistoryMessage, error)
}

// Assembler turns raw Slack history into ordered conversation turns.
type Assembler struct {
	fetcher Fetcher
}

func NewAssembler(fetcher Fetcher) *Assembler {
	return &Assembler{fetcher: fetcher}
}

// Assemble returns the conversation turns for an event, oldest first.
//
// When the event is a mention, up to ChannelHistoryLimit recent channel
// messages are included as user turns. Bot-authored and empty messages are
// dropped. Slack returns channel history newest-first, so the kept messages
// are reversed once into chronological order.
//
// When the event sits in a thread, up to ThreadHistoryLimit replies are
// appended after the channel portion, in the order Slack returns them
// (oldest first, root message included). Bot-authored replies become
// assistant turns, everything else a user turn.
//
// A fetch failure degrades that portion to empty rather than failing the
// whole assembly. The bot answering without context beats not answering.
func (a *Assembler) Assemble(ctx context.Context, channelID, threadID string, isMention bool) []models.ConversationTurn {
	var turns []models.ConversationTurn

	if isMention {
		turns = append(turns, a.channelTurns(ctx, channelID)...)
	}
	if threadID != "" {
		turns = append(turns, a.threadTurns(ctx, channelID, threadID)...)
	}
	return turns
}

func (a *Assembler) channelTurns(ctx context.Context, channelID string) []models.ConversationTurn {
	msgs, err := a.fetcher.ChannelHistory(ctx, channelID, ChannelHistoryLimit)
	if err != nil {
		log.Printf("[ERROR] conversation: channel history fetch failed for %s: %v", channelID, err)
		return nil
	}

	kept := make([]slack.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.FromBot || strings.TrimSpace(m.Text) == "" {
			continue
		}
		kept = append(kept, m)
	}

	// Newest-first from the API; flip to chronological.
	turns := make([]models.ConversationTurn, 0, len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		turns = append(turns, models.ConversationTurn{
			Role: models.RoleUser,
			Text: kept[i].Text,
		})
	}
	return turns
}

func (a *Assembler) threadTurns(ctx context.Context, channelID, threadID string) []models.ConversationTurn {
	msgs, err := a.fetcher.ThreadReplies(ctx, channelID, threadID, ThreadHistoryLimit)
	if err != nil {
		log.Printf("[ERROR] conversation: thread replies fetch failed for %s/%s: %v", channelID, threadID, err)
		return nil
	}

	turns := make([]models.ConversationTurn, 0, len(msgs))
	for _, m := range msgs {
		role := models.RoleUser
		if m.FromBot {
			role = models.RoleAssistant
		}
		turns = append(turns, models.ConversationTurn{
			Role: role,
			Text: m.Text,
		})
	}
	return turns
}
