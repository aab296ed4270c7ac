package api

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contexthub/internal/jobqueue"
	"github.com/contexthub/pkg/models"
)

type fakeAssembler struct {
	turns     []models.ConversationTurn
	channelID string
	threadID  string
	isMention bool
}

func (f *fakeAssembler) Assemble(_ context.Context, channelID, threadID string, isMention bool) []models.ConversationTurn {
	f.channelID = channelID
	f.threadID = threadID
	f.isMention = isMention
	return f.turns
}

type fakePoster struct {
	channelID string
	threadTS  string
	text      string
	err       error
	posts     int
}

func (f *fakePoster) PostMessage(_ context.Context, channelID, threadTS, text string) error {
	f.posts++
	f.channelID = channelID
	f.threadTS = threadTS
	f.text = text
	return f.err
}

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("see https://example.com/page and http://other.io too")
	assert.Equal(t, []string{"https://example.com/page", "http://other.io"}, urls)

	assert.Empty(t, ExtractURLs("no links here"))
}

func TestProcessMentionPostsThreadedReply(t *testing.T) {
	assembler := &fakeAssembler{turns: []models.ConversationTurn{
		{Role: models.RoleUser, Text: "earlier chatter"},
	}}
	llm := &fakeChatModel{reply: "the answer"}
	poster := &fakePoster{}

	r := NewResponder(assembler, nil, llm, poster, "")
	err := r.Process(context.Background(), jobqueue.SlackMessageJobArgs{
		ChannelID: "C1",
		TS:        "1700000000.000100",
		Text:      "what is this?",
		IsMention: true,
	})
	require.NoError(t, err)

	// Context anchored at the message's own ts; reply starts a thread there.
	assert.Equal(t, "1700000000.000100", assembler.threadID)
	assert.True(t, assembler.isMention)
	assert.Equal(t, "1700000000.000100", poster.threadTS)
	assert.Equal(t, "the answer", poster.text)

	require.Len(t, llm.turns, 2)
	assert.Equal(t, "earlier chatter", llm.turns[0].Text)
	assert.Equal(t, "what is this?", llm.turns[1].Text)
}

func TestProcessThreadReplyKeepsAnchor(t *testing.T) {
	assembler := &fakeAssembler{}
	llm := &fakeChatModel{reply: "ok"}
	poster := &fakePoster{}

	r := NewResponder(assembler, nil, llm, poster, "")
	err := r.Process(context.Background(), jobqueue.SlackMessageJobArgs{
		ChannelID: "C1",
		ThreadTS:  "1.1",
		TS:        "1.2",
		Text:      "and then?",
	})
	require.NoError(t, err)

	assert.Equal(t, "1.1", assembler.threadID)
	assert.False(t, assembler.isMention)
	assert.Equal(t, "1.1", poster.threadTS)
}

func TestProcessNonMentionWithoutThreadPostsFlat(t *testing.T) {
	r := NewResponder(&fakeAssembler{}, nil, &fakeChatModel{reply: "ok"}, &fakePoster{}, "")
	poster := &fakePoster{}
	r.poster = poster

	err := r.Process(context.Background(), jobqueue.SlackMessageJobArgs{
		ChannelID: "D1",
		TS:        "3.3",
		Text:      "dm text",
	})
	require.NoError(t, err)
	assert.Equal(t, "", poster.threadTS, "DM replies post without a thread anchor")
}

func TestProcessCapturesURLScreenshots(t *testing.T) {
	llm := &fakeChatModel{reply: "described"}
	poster := &fakePoster{}
	capturer := &fakeCapturer{shot: "c2NyZWVu"}

	r := NewResponder(&fakeAssembler{}, capturer, llm, poster, "")
	err := r.Process(context.Background(), jobqueue.SlackMessageJobArgs{
		ChannelID: "C1",
		TS:        "4.4",
		Text:      "look at <https://example.com/deck>",
		IsMention: true,
	})
	require.NoError(t, err)

	require.Len(t, llm.turns, 1)
	last := llm.turns[0]
	assert.Contains(t, last.Text, "[Screenshot of https://example.com/deck processed]")
	require.Len(t, last.Images, 1)
	assert.Equal(t, "c2NyZWVu", last.Images[0])
}

func TestProcessScreenshotFailureDegrades(t *testing.T) {
	llm := &fakeChatModel{reply: "still answered"}
	poster := &fakePoster{}
	capturer := &fakeCapturer{err: errors.New("browser down")}

	r := NewResponder(&fakeAssembler{}, capturer, llm, poster, "")
	err := r.Process(context.Background(), jobqueue.SlackMessageJobArgs{
		ChannelID: "C1",
		TS:        "5.5",
		Text:      "see https://example.com",
		IsMention: true,
	})
	require.NoError(t, err)

	require.Len(t, llm.turns, 1)
	assert.NotContains(t, llm.turns[0].Text, "processed]")
	assert.Empty(t, llm.turns[0].Images)
	assert.Equal(t, 1, poster.posts, "reply still goes out without the screenshot")
}

func TestProcessLLMFailurePropagates(t *testing.T) {
	llm := &fakeChatModel{err: errors.New("rate limit")}
	poster := &fakePoster{}

	r := NewResponder(&fakeAssembler{}, nil, llm, poster, "")
	err := r.Process(context.Background(), jobqueue.SlackMessageJobArgs{
		ChannelID: "C1", TS: "6.6", Text: "hi", IsMention: true,
	})
	require.Error(t, err)
	assert.Zero(t, poster.posts)
}
