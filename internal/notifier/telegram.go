package notifier

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// TelegramConfig configures the Telegram sink.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// TelegramSink pushes notifications to a Telegram chat. Useful for failure
// alerts when nobody is watching the daemon's log.
type TelegramSink struct {
	bot  *tele.Bot
	chat tele.Recipient
}

func NewTelegramSink(cfg TelegramConfig) (*TelegramSink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id required")
	}
	// No poller: this sink only sends.
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &TelegramSink{bot: bot, chat: tele.ChatID(cfg.ChatID)}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Send(ctx context.Context, n Notification) error {
	// telebot's Send has no context; bound it coarsely ourselves.
	type result struct{ err error }
	ch := make(chan result, 1)
	go func() {
		_, err := s.bot.Send(s.chat, n.Message, &tele.SendOptions{DisableWebPagePreview: true})
		ch <- result{err: err}
	}()
	select {
	case r := <-ch:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
		return errors.New("telegram send timed out")
	}
}
