package whatsapp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"odeslibot/internal/chat"
)

func groupEvent(text string) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:    types.NewJID("123456", types.GroupServer),
				Sender:  types.NewJID("4915550001", types.DefaultUserServer),
				IsGroup: true,
			},
			ID:       "ABCDEF",
			PushName: "Test User",
		},
		Message: &waE2E.Message{Conversation: proto.String(text)},
	}
}

func TestExtractMessageText(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"Conversation", &waE2E.Message{Conversation: proto.String("hi")}, "hi"},
		{"Extended", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("ext")}}, "ext"},
		{"Image caption", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("img")}}, "img"},
		{"Video caption", &waE2E.Message{VideoMessage: &waE2E.VideoMessage{Caption: proto.String("vid")}}, "vid"},
		{"Document caption", &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{Caption: proto.String("doc")}}, "doc"},
		{"Empty", &waE2E.Message{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessageText(tt.msg))
		})
	}
}

func TestToChatMessage(t *testing.T) {
	evt := groupEvent("https://www.deezer.com/track/1")

	msg := toChatMessage(evt)
	require.NotNil(t, msg)
	assert.Equal(t, "ABCDEF", msg.ID)
	assert.Equal(t, "123456@g.us", msg.ChatID)
	assert.Equal(t, "4915550001@s.whatsapp.net", msg.SenderID)
	assert.Equal(t, "Test User", msg.Mention())
	assert.True(t, msg.IsGroup)

	private := groupEvent("hello")
	private.Info.Chat = types.NewJID("4915550001", types.DefaultUserServer)
	assert.False(t, toChatMessage(private).IsGroup)

	own := groupEvent("mine")
	own.Info.IsFromMe = true
	assert.Nil(t, toChatMessage(own))

	assert.Nil(t, toChatMessage(groupEvent("")))
}

func TestBuildReply(t *testing.T) {
	evt := groupEvent("original")
	origin := toChatMessage(evt)

	plain := buildReply(origin, "reply", false)
	assert.Equal(t, "reply", plain.GetConversation())
	assert.Nil(t, plain.GetExtendedTextMessage())

	quoted := buildReply(origin, "reply", true)
	ctxInfo := quoted.GetExtendedTextMessage().GetContextInfo()
	assert.Equal(t, "reply", quoted.GetExtendedTextMessage().GetText())
	assert.Equal(t, "ABCDEF", ctxInfo.GetStanzaID())
	assert.Equal(t, origin.SenderID, ctxInfo.GetParticipant())
	assert.Equal(t, "original", ctxInfo.GetQuotedMessage().GetConversation())
}

func TestHandleMessageEvent(t *testing.T) {
	f := NewFrontend(&Config{Enabled: true, FloodLimitPerMinute: 1}, zap.NewNop())

	var (
		mu  sync.Mutex
		got []*chat.Message
	)
	f.setHandlers(context.Background(), chat.Handlers{OnMessage: func(_ context.Context, m *chat.Message) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, m)
	}})

	f.handleEvent(groupEvent("first"))
	f.handleEvent(groupEvent("flooded"))
	f.inflight.Wait()

	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Text)
}

func TestHandleMessageEventBeforeListen(t *testing.T) {
	f := NewFrontend(&Config{Enabled: true}, zap.NewNop())

	f.handleEvent(groupEvent("early"))
	f.inflight.Wait()
}

func TestHandleMessageEventConcurrent(t *testing.T) {
	f := NewFrontend(&Config{Enabled: true}, zap.NewNop())

	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	f.setHandlers(context.Background(), chat.Handlers{OnMessage: func(context.Context, *chat.Message) {
		started.Done()
		<-release
	}})

	f.handleEvent(groupEvent("slow one"))
	f.handleEvent(groupEvent("slow two"))

	both := make(chan struct{})
	go func() {
		started.Wait()
		close(both)
	}()
	select {
	case <-both:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "second message waited for the first handler to finish")
	}

	close(release)
	f.inflight.Wait()
}

func TestListenWhileReceiving(t *testing.T) {
	f := NewFrontend(&Config{Enabled: true}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	var (
		mu    sync.Mutex
		texts []string
	)
	done := make(chan error, 1)
	go func() {
		done <- f.Listen(ctx, chat.Handlers{OnMessage: func(_ context.Context, m *chat.Message) {
			mu.Lock()
			defer mu.Unlock()
			texts = append(texts, m.Text)
		}})
	}()

	for range 50 {
		f.handleEvent(groupEvent("racing"))
	}

	cancel()
	require.NoError(t, <-done)

	f.handleEvent(groupEvent("after stop"))
	f.inflight.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, texts, "after stop")
}

func TestDisabled(t *testing.T) {
	f := NewFrontend(&Config{Enabled: false}, zap.NewNop())
	ctx := context.Background()
	origin := &chat.Message{ID: "1", ChatID: "123@g.us"}

	assert.NoError(t, f.Start(ctx))
	assert.NoError(t, f.Listen(ctx, chat.Handlers{}))

	_, err := f.Reply(ctx, origin, "x", chat.ReplyOptions{})
	assert.ErrorIs(t, err, errDisabled)
	assert.ErrorIs(t, f.DeleteMessage(ctx, origin), errDisabled)
	assert.False(t, f.RichFormat())
	assert.Equal(t, "whatsapp", f.Name())
}

func TestAnswerInlineQueryUnsupported(t *testing.T) {
	f := NewFrontend(&Config{Enabled: true}, zap.NewNop())

	err := f.AnswerInlineQuery(context.Background(), &chat.InlineQuery{ID: "q"}, nil)
	assert.True(t, errors.Is(err, chat.ErrUnsupported))
}
