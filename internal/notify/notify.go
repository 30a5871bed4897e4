// Package notify delivers recovery notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clawguard/pkg/logging"
)

// Notifier sends a short human-readable message.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Log writes notifications to the log.
type Log struct {
	log *logging.Logger
}

// NewLog creates a Log notifier.
func NewLog(log *logging.Logger) *Log {
	return &Log{log: log.Named("Notify")}
}

// Notify implements Notifier.
func (l *Log) Notify(_ context.Context, message string) error {
	l.log.Info("%s", message)
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Telegram posts messages through the Bot API sendMessage method.
type Telegram struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegram creates a Telegram notifier. apiBase defaults to the public Bot API.
func NewTelegram(apiBase, token, chatID string, client *http.Client) *Telegram {
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{
		apiBase: strings.TrimRight(apiBase, "/"),
		token:   token,
		chatID:  chatID,
		client:  client,
	}
}

type sendMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify implements Notifier.
func (t *Telegram) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(sendMessage{ChatID: t.chatID, Text: message})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", stripURL(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", stripURL(err))
	}
	defer resp.Body.Close()

	var out apiResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &out); err != nil || !out.OK {
		if out.Description == "" {
			out.Description = resp.Status
		}
		return fmt.Errorf("telegram rejected message: %s", out.Description)
	}
	return nil
}

// stripURL drops the request URL, which carries the bot token, from err.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
