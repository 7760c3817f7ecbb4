package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	tele "gopkg.in/telebot.v4"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Bot connects to the Telegram Bot API. It delivers outbound messages through
// its Client and dispatches inbound messages to a Handler.
type Bot struct {
	bot    *tele.Bot
	client *Client
	logger *slog.Logger
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a Telegram bot with the given token. Polling starts with Run.
func New(token string, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("telegram", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	client, err := NewClient(bot)
	if err != nil {
		return nil, err
	}
	return &Bot{bot: bot, client: client, logger: logger}, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Client returns the outbound chat client
func (b *Bot) Client() *Client {
	return b.client
}

// Name returns the bot username
func (b *Bot) Name() string {
	if b.bot.Me == nil {
		return ""
	}
	return b.bot.Me.Username
}

// Run registers the handler and long-polls for updates until the context is
// cancelled
func (b *Bot) Run(ctx context.Context, h *Handler) error {
	if h == nil {
		return relay.ErrBadParameter.With("handler is nil")
	}

	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		return b.onText(ctx, h, c)
	})
	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		return b.onCallback(ctx, h, c)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.bot.Start()
	}()
	b.logger.InfoContext(ctx, "telegram polling started", "bot", b.Name())

	<-ctx.Done()
	b.bot.Stop()
	<-done
	b.logger.InfoContext(ctx, "telegram polling stopped", "bot", b.Name())
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// TELEBOT HANDLERS

func (b *Bot) onText(ctx context.Context, h *Handler, c tele.Context) error {
	if c.Sender() == nil || c.Message() == nil {
		return nil
	}
	key := relay.Key(c.Sender().ID, int64(c.Message().ThreadID))
	reply, err := h.Text(ctx, key, c.Text())
	if reply != "" {
		if err := c.Reply(reply); err != nil {
			b.logger.WarnContext(ctx, "reply", "conversation", key.String(), "error", err)
		}
	}
	return err
}

func (b *Bot) onCallback(ctx context.Context, h *Handler, c tele.Context) error {
	cb := c.Callback()
	if cb == nil || c.Sender() == nil {
		return nil
	}
	var thread int64
	if cb.Message != nil {
		thread = int64(cb.Message.ThreadID)
	}
	key := relay.Key(c.Sender().ID, thread)
	answer, err := h.Callback(ctx, key, cb.Data)
	if rerr := c.Respond(&tele.CallbackResponse{Text: answer}); rerr != nil {
		b.logger.WarnContext(ctx, "callback answer", "conversation", key.String(), "error", rerr)
	}
	return err
}
