// Package notify consumes the event queue and pushes Telegram notifications
// to users who were offline when something happened.
package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sparkmatch/backend/internal/models"
)

// Sender pushes one event to its recipient. Implementations distinguish
// permanent failures (never retry) by returning a *PermanentError.
type Sender interface {
	Send(ctx context.Context, evt models.Event) error
}

// PermanentError marks a delivery failure that retrying cannot fix, such as
// a recipient who blocked the bot.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is a final delivery failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// TelegramSender delivers through the Bot API.
type TelegramSender struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegramSender(botToken string) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	return &TelegramSender{Bot: bot}, nil
}

func (s *TelegramSender) Send(ctx context.Context, evt models.Event) error {
	text := FormatEvent(evt)
	if text == "" {
		// Unknown kinds are dropped, not retried.
		return &PermanentError{Err: fmt.Errorf("unknown event kind %q", evt.Kind)}
	}

	msg := tgbotapi.NewMessage(evt.RecipientTelegramID, text)
	if _, err := s.Bot.Send(msg); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps Bot API failures onto the retry policy: 4xx (minus 429) is
// final, everything else is worth another attempt.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != 429 {
			return &PermanentError{Err: err}
		}
	}
	return err
}

// FormatEvent renders the push text for an event kind. Empty string means
// the kind is unknown.
func FormatEvent(evt models.Event) string {
	name := evt.ActorName
	if name == "" {
		name = "Someone"
	}
	switch evt.Kind {
	case models.EventMatchCreated:
		return fmt.Sprintf("💜 It's a match! %s liked you back. Open the app to say hi.", name)
	case models.EventMessageSent:
		if evt.Preview != "" {
			return fmt.Sprintf("💬 %s: %s", name, evt.Preview)
		}
		return fmt.Sprintf("💬 New message from %s", name)
	}
	return ""
}
