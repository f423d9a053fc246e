package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"odeslibot/internal/chat"
)

const testToken = "123:test-token"

// fakeBotAPI answers Bot API methods with canned results and records requests.
type fakeBotAPI struct {
	mu       sync.Mutex
	requests map[string][]map[string]any
	answers  map[string]string
}

func (api *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	params := map[string]any{}
	if err := r.ParseMultipartForm(1 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			params[k] = v[0]
		}
	} else {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &params)
	}

	api.mu.Lock()
	api.requests[method] = append(api.requests[method], params)
	answer, ok := api.answers[method]
	api.mu.Unlock()

	if !ok {
		answer = `{"ok":true,"result":true}`
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, answer)
}

func (api *fakeBotAPI) calls(method string) []map[string]any {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.requests[method]
}

func newStartedFrontend(t *testing.T, answers map[string]string) (*Frontend, *fakeBotAPI) {
	t.Helper()

	api := &fakeBotAPI{
		requests: map[string][]map[string]any{},
		answers: map[string]string{
			"getMe": `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Odesli","username":"odesli_bot"}}`,
		},
	}
	for k, v := range answers {
		api.answers[k] = v
	}

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	f := NewFrontend(&Config{
		BotToken:            testToken,
		Enabled:             true,
		FloodLimitPerMinute: 10,
		ServerURL:           srv.URL,
	}, zap.NewNop())
	require.NoError(t, f.Start(context.Background()))

	return f, api
}

func TestNewFrontend(t *testing.T) {
	f := NewFrontend(&Config{BotToken: testToken, Enabled: true, FloodLimitPerMinute: 10}, zap.NewNop())

	assert.NotNil(t, f.floodgate, "Floodgate was not initialized")
	assert.Equal(t, "telegram", f.Name())
	assert.True(t, f.RichFormat())
}

func TestDisabled(t *testing.T) {
	f := NewFrontend(&Config{Enabled: false}, zap.NewNop())
	ctx := context.Background()
	origin := &chat.Message{ID: "1", ChatID: "2"}

	assert.NoError(t, f.Start(ctx))
	assert.NoError(t, f.Listen(ctx, chat.Handlers{}))

	_, err := f.Reply(ctx, origin, "hi", chat.ReplyOptions{})
	assert.EqualError(t, err, "telegram frontend is disabled")
	assert.Error(t, f.DeleteMessage(ctx, origin))
	assert.Error(t, f.AnswerInlineQuery(ctx, &chat.InlineQuery{ID: "q"}, nil))
}

func TestStart(t *testing.T) {
	f, api := newStartedFrontend(t, nil)

	assert.Equal(t, "odesli_bot", f.username)
	assert.Len(t, api.calls("getMe"), 1)
}

func TestReply(t *testing.T) {
	f, api := newStartedFrontend(t, map[string]string{
		"sendMessage": `{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":-100,"type":"supergroup"}}}`,
	})
	origin := &chat.Message{ID: "5", ChatID: "-100"}

	id, err := f.Reply(context.Background(), origin, "<b>hi</b>", chat.ReplyOptions{RichFormat: true})
	require.NoError(t, err)
	assert.Equal(t, "77", id)

	_, err = f.Reply(context.Background(), origin, "plain", chat.ReplyOptions{QuoteOriginal: true})
	require.NoError(t, err)

	sent := api.calls("sendMessage")
	require.Len(t, sent, 2)
	assert.Equal(t, "HTML", sent[0]["parse_mode"])
	assert.NotContains(t, sent[0], "reply_parameters")
	assert.NotContains(t, sent[1], "parse_mode")
	assert.Contains(t, sent[1], "reply_parameters")
}

func TestReplyInvalidChatID(t *testing.T) {
	f, _ := newStartedFrontend(t, nil)

	_, err := f.Reply(context.Background(), &chat.Message{ID: "1", ChatID: "not-a-number"}, "x", chat.ReplyOptions{})
	assert.ErrorContains(t, err, "invalid chat ID")
}

func TestDeleteMessage(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		cannot  bool
		wantErr bool
	}{
		{"Deleted", `{"ok":true,"result":true}`, false, false},
		{"Missing rights", `{"ok":false,"error_code":400,"description":"Bad Request: message can't be deleted"}`, true, true},
		{"Kicked", `{"ok":false,"error_code":403,"description":"Forbidden: bot was kicked"}`, true, true},
		{"Server error", `{"ok":false,"error_code":500,"description":"Internal Server Error"}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newStartedFrontend(t, map[string]string{"deleteMessage": tt.answer})

			err := f.DeleteMessage(context.Background(), &chat.Message{ID: "5", ChatID: "-100"})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.cannot, errors.Is(err, chat.ErrCannotDelete))
		})
	}
}

func TestAnswerInlineQuery(t *testing.T) {
	f, api := newStartedFrontend(t, nil)

	err := f.AnswerInlineQuery(context.Background(), &chat.InlineQuery{ID: "q1"}, []chat.InlineResult{{
		ID:           "r1",
		Title:        "Artist - Title",
		Description:  "Deezer | Spotify",
		ThumbnailURL: "http://thumb",
		Text:         "<a href=\"x\">Deezer</a>",
	}})
	require.NoError(t, err)

	calls := api.calls("answerInlineQuery")
	require.Len(t, calls, 1)
	assert.Equal(t, "q1", calls[0]["inline_query_id"])
	assert.Contains(t, fmt.Sprint(calls[0]["results"]), "Artist - Title")
}

func TestHandleUpdate(t *testing.T) {
	var (
		messages []*chat.Message
		queries  []*chat.InlineQuery
	)
	f := NewFrontend(&Config{Enabled: true, FloodLimitPerMinute: 2}, zap.NewNop())
	f.username = "odesli_bot"
	f.handlers = chat.Handlers{
		OnMessage:     func(_ context.Context, m *chat.Message) { messages = append(messages, m) },
		OnInlineQuery: func(_ context.Context, q *chat.InlineQuery) { queries = append(queries, q) },
	}
	ctx := context.Background()

	from := &models.User{ID: 42, FirstName: "Test", LastName: "User", Username: "test_user"}
	group := models.Chat{ID: -100, Type: "supergroup"}

	f.handleUpdate(ctx, nil, &models.Update{Message: &models.Message{ID: 1, From: from, Chat: group, Text: "hello"}})
	f.handleUpdate(ctx, nil, &models.Update{Message: &models.Message{ID: 2, From: from, Chat: group, Caption: "caption"}})
	f.handleUpdate(ctx, nil, &models.Update{Message: &models.Message{ID: 3, From: from, Chat: group, Text: "flood"}})
	f.handleUpdate(ctx, nil, &models.Update{Message: &models.Message{
		ID: 4, From: &models.User{ID: 7, IsBot: true}, Chat: group, Text: "bot",
	}})
	f.handleUpdate(ctx, nil, &models.Update{InlineQuery: &models.InlineQuery{ID: "q", From: from, Query: "song"}})

	require.Len(t, messages, 2)
	assert.Equal(t, &chat.Message{
		ID:             "1",
		ChatID:         "-100",
		SenderID:       "42",
		SenderName:     "Test User",
		SenderUsername: "test_user",
		Text:           "hello",
		IsGroup:        true,
		BotUsername:    "odesli_bot",
		Raw:            messages[0].Raw,
	}, messages[0])
	assert.Equal(t, "caption", messages[1].Text)

	require.Len(t, queries, 1)
	assert.Equal(t, "song", queries[0].Text)
	assert.Equal(t, "test_user", queries[0].SenderUsername)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ann", displayName(&models.User{FirstName: "Ann"}))
	assert.Equal(t, "Ann Lee", displayName(&models.User{FirstName: "Ann", LastName: "Lee"}))
}
