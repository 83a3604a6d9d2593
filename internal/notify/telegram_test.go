package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/phrazzld/taskwatch/internal/config"
	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path   string
	json   map[string]any
	fields map[string]string
	photo  []byte
}

// fakeBotAPI records requests and replies with the given envelope.
func fakeBotAPI(t *testing.T, reply string) (*httptest.Server, func() []capturedRequest) {
	t.Helper()

	var mu sync.Mutex
	var captured []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := capturedRequest{path: r.URL.Path, fields: map[string]string{}}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			for k, v := range r.MultipartForm.Value {
				c.fields[k] = v[0]
			}
			if f, _, err := r.FormFile("photo"); assert.NoError(t, err) {
				c.photo, _ = io.ReadAll(f)
			}
		} else {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&c.json))
		}

		mu.Lock()
		captured = append(captured, c)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), captured...)
	}
}

func newSink(srv *httptest.Server) *notify.TelegramSink {
	return notify.NewTelegramSink(config.TelegramConfig{
		BotToken:       "123:abc",
		ChatID:         -1002265534780,
		ResultsTopicID: 6,
		BillsTopicID:   3,
		APIBaseURL:     srv.URL,
	}, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTelegramSink_SendMessageToTopic(t *testing.T) {
	srv, requests := fakeBotAPI(t, `{"ok":true,"result":{}}`)
	sink := newSink(srv)

	task := &domain.Task{ID: 1, Description: "Stretch"}
	require.NoError(t, sink.Send(context.Background(), notify.ReminderMessage(task)))

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", got[0].path)
	assert.Equal(t, "Reminder: Stretch - Please complete it!", got[0].json["text"])
	assert.Equal(t, float64(-1002265534780), got[0].json["chat_id"])
	assert.Equal(t, float64(6), got[0].json["message_thread_id"])
}

func TestTelegramSink_GeneralTopicHasNoThread(t *testing.T) {
	srv, requests := fakeBotAPI(t, `{"ok":true}`)
	sink := newSink(srv)

	require.NoError(t, sink.Send(context.Background(), notify.Message{Topic: notify.TopicGeneral, Text: "hi"}))

	got := requests()
	require.Len(t, got, 1)
	_, hasThread := got[0].json["message_thread_id"]
	assert.False(t, hasThread)
}

func TestTelegramSink_SendPhoto(t *testing.T) {
	srv, requests := fakeBotAPI(t, `{"ok":true}`)
	sink := newSink(srv)

	png := []byte{0x89, 'P', 'N', 'G'}
	msg := notify.Message{Topic: notify.TopicBills, Text: "Task Response Time Trend", Photo: png, PhotoName: "trend.png"}
	require.NoError(t, sink.Send(context.Background(), msg))

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, "/bot123:abc/sendPhoto", got[0].path)
	assert.Equal(t, "Task Response Time Trend", got[0].fields["caption"])
	assert.Equal(t, "3", got[0].fields["message_thread_id"])
	assert.Equal(t, png, got[0].photo)
}

func TestTelegramSink_LongCaptionSentSeparately(t *testing.T) {
	srv, requests := fakeBotAPI(t, `{"ok":true}`)
	sink := newSink(srv)

	long := strings.Repeat("x", 1500)
	require.NoError(t, sink.Send(context.Background(), notify.Message{Text: long, Photo: []byte{1}}))

	got := requests()
	require.Len(t, got, 2)
	assert.Equal(t, "/bot123:abc/sendPhoto", got[0].path)
	assert.Empty(t, got[0].fields["caption"])
	assert.Equal(t, "/bot123:abc/sendMessage", got[1].path)
	assert.Equal(t, long, got[1].json["text"])
}

func TestTelegramSink_APIError(t *testing.T) {
	srv, _ := fakeBotAPI(t, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	sink := newSink(srv)

	err := sink.Send(context.Background(), notify.Message{Text: "hello"})

	require.ErrorIs(t, err, notify.ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "chat not found")
	assert.NotContains(t, err.Error(), "123:abc", "bot token must not leak into errors")
}

func TestTelegramSink_TransportErrorHidesToken(t *testing.T) {
	srv, _ := fakeBotAPI(t, `{"ok":true}`)
	sink := newSink(srv)
	srv.Close()

	err := sink.Send(context.Background(), notify.Message{Text: "hello"})

	require.ErrorIs(t, err, notify.ErrDeliveryFailed)
	assert.NotContains(t, err.Error(), "123:abc")
}

func TestMessages(t *testing.T) {
	task := &domain.Task{Description: "Run"}
	assert.Equal(t, "Task missed: Run", notify.MissedMessage(task).Text)
	assert.Equal(t, notify.TopicResults, notify.MissedMessage(task).Topic)
	assert.NoError(t, notify.NewLogSink(nil).Send(context.Background(), notify.ReminderMessage(task)))
}
