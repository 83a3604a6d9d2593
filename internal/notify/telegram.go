package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/taskwatch/internal/config"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
)

// Telegram limits captions to 1024 characters; longer text is sent as a
// separate message after the photo.
const maxCaptionLength = 1024

// TelegramSink delivers notifications through the Telegram Bot API.
type TelegramSink struct {
	client  *http.Client
	baseURL string
	chatID  int64
	topics  map[Topic]int
	logger  *slog.Logger
}

// NewTelegramSink creates a sink for the configured bot and chat.
// If client is nil, an http.Client with a 15 second timeout is used.
func NewTelegramSink(cfg config.TelegramConfig, client *http.Client, logger *slog.Logger) *TelegramSink {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	base := cfg.APIBaseURL
	if base == "" {
		base = "https://api.telegram.org"
	}

	return &TelegramSink{
		client:  client,
		baseURL: strings.TrimRight(base, "/") + "/bot" + cfg.BotToken,
		chatID:  cfg.ChatID,
		topics: map[Topic]int{
			TopicResults: cfg.ResultsTopicID,
			TopicBills:   cfg.BillsTopicID,
		},
		logger: logger.With(slog.String("component", "telegram_sink")),
	}
}

var _ Sink = (*TelegramSink)(nil)

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

// Send implements Sink.
func (s *TelegramSink) Send(ctx context.Context, msg Message) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var err error
	if len(msg.Photo) > 0 {
		caption := msg.Text
		if len(caption) > maxCaptionLength {
			caption = ""
		}
		err = s.sendPhoto(ctx, msg, caption)
		if err == nil && caption == "" && msg.Text != "" {
			err = s.sendMessage(ctx, msg)
		}
	} else {
		err = s.sendMessage(ctx, msg)
	}

	if err != nil {
		log.Error("failed to deliver notification",
			slog.String("topic", string(msg.Topic)),
			slog.String("error", err.Error()))
		return err
	}

	log.Debug("notification delivered", slog.String("topic", string(msg.Topic)))
	return nil
}

func (s *TelegramSink) sendMessage(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"chat_id": s.chatID,
		"text":    msg.Text,
	}
	if thread := s.topics[msg.Topic]; thread != 0 {
		payload["message_thread_id"] = thread
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode sendMessage: %v", ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req, "sendMessage")
}

func (s *TelegramSink) sendPhoto(ctx context.Context, msg Message, caption string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	_ = mw.WriteField("chat_id", strconv.FormatInt(s.chatID, 10))
	if thread := s.topics[msg.Topic]; thread != 0 {
		_ = mw.WriteField("message_thread_id", strconv.Itoa(thread))
	}
	if caption != "" {
		_ = mw.WriteField("caption", caption)
	}

	name := msg.PhotoName
	if name == "" {
		name = "image.png"
	}
	part, err := mw.CreateFormFile("photo", name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if _, err := part.Write(msg.Photo); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sendPhoto", &buf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return s.do(req, "sendPhoto")
}

func (s *TelegramSink) do(req *http.Request, method string) error {
	resp, err := s.client.Do(req)
	if err != nil {
		// the URL carries the bot token, so only the method name is reported
		return fmt.Errorf("%w: %s: request failed", ErrDeliveryFailed, method)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %v", ErrDeliveryFailed, method, err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: %s: status %d", ErrDeliveryFailed, method, resp.StatusCode)
	}
	if !parsed.OK {
		return fmt.Errorf("%w: %s: %d %s", ErrDeliveryFailed, method, parsed.ErrorCode, parsed.Description)
	}

	return nil
}
