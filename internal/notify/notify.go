// Package notify содержит исходящие уведомления (Telegram).
//
// Уведомления fire-and-forget: движок не ждёт подтверждения доставки
// и не падает из-за недоступности мессенджера.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Notifier отправляет текстовое уведомление.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Telegram — уведомления через Telegram Bot API.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	baseURL  string
}

// NewTelegram создаёт Telegram-нотификатор.
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  "https://api.telegram.org",
	}
}

// NewTelegramFromEnv создаёт нотификатор из переменных окружения
// TELEGRAM_BOT_TOKEN и TELEGRAM_CHAT_ID. Возвращает nil, если токен не задан.
func NewTelegramFromEnv() *Telegram {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil
	}
	return NewTelegram(token, os.Getenv("TELEGRAM_CHAT_ID"))
}

// Send отправляет сообщение в чат.
func (t *Telegram) Send(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id": t.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("telegram HTTP %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// Nop — нотификатор-заглушка: молча принимает всё.
type Nop struct{}

// Send ничего не делает.
func (Nop) Send(context.Context, string) error { return nil }

// Recorder — нотификатор для тестов: запоминает отправленные сообщения.
type Recorder struct {
	Messages []string
}

// Send запоминает сообщение.
func (r *Recorder) Send(_ context.Context, text string) error {
	r.Messages = append(r.Messages, text)
	return nil
}
