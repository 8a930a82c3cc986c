// Package telegram binds the dispatcher to the Telegram Bot API.
package telegram

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/i474232898/weather-bot/internal/conversation"
)

// Submitter accepts inbound events; the dispatcher implements it.
type Submitter interface {
	Submit(ev conversation.Event) error
}

// Config holds the Telegram transport settings.
type Config struct {
	Token    string
	SendRate float64
	// Offline skips the getMe call on construction. Used by tests.
	Offline bool
}

// Bot receives updates by long polling and sends replies. It implements
// dispatcher.Sender.
type Bot struct {
	bot    *tele.Bot
	sender *rateLimitedSender
	menu   *tele.ReplyMarkup
	logger *slog.Logger
	submit Submitter
}

// New creates the bot. Handlers are registered by Attach.
func New(cfg Config, logger *slog.Logger) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		Offline: cfg.Offline,
		OnError: func(err error, c tele.Context) {
			logger.Error("telegram handler error", "error", err)
		},
		// Updates of one chat must reach the dispatcher in arrival order.
		Synchronous: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	menu := optionsKeyboard()
	return &Bot{
		bot:    b,
		sender: newRateLimitedSender(b, menu, cfg.SendRate),
		menu:   menu,
		logger: logger,
	}, nil
}

// optionsKeyboard is the one-time reply keyboard offering the two ways to
// pick a place.
func optionsKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	share := menu.Location(conversation.ButtonShareLocation)
	city := menu.Text(conversation.ButtonTypeCity)
	menu.Reply(menu.Row(share), menu.Row(city))
	return menu
}

// Attach registers the update handlers and routes them to s.
func (b *Bot) Attach(s Submitter) {
	b.submit = s

	for _, cmd := range []string{conversation.CommandStart, conversation.CommandHelp, conversation.CommandCancel} {
		name := cmd
		b.bot.Handle("/"+name, func(c tele.Context) error {
			return b.dispatch(commandEvent(c.Chat().ID, name))
		})
	}

	// Commands without a handler of their own land here too.
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		if name, ok := parseCommand(c.Text()); ok {
			return b.dispatch(commandEvent(c.Chat().ID, name))
		}
		return b.dispatch(textEvent(c.Chat().ID, c.Text()))
	})

	b.bot.Handle(tele.OnLocation, func(c tele.Context) error {
		loc := c.Message().Location
		if loc == nil {
			return nil
		}
		return b.dispatch(locationEvent(c.Chat().ID, loc.Lat, loc.Lng))
	})
}

func (b *Bot) dispatch(ev conversation.Event) error {
	if err := b.submit.Submit(ev); err != nil {
		b.logger.Warn("telegram event rejected", "session_id", ev.SessionID, "error", err)
	}
	return nil
}

// Start polls for updates until Stop is called. It blocks.
func (b *Bot) Start() {
	b.logger.Info("telegram bot polling", "username", b.bot.Me.Username)
	b.bot.Start()
}

// Stop ends polling.
func (b *Bot) Stop() {
	b.bot.Stop()
}

func sessionID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func chatID(sessionID string) (int64, error) {
	id, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session %q is not a telegram chat: %w", sessionID, err)
	}
	return id, nil
}

// parseCommand extracts the lower-cased name from "/name@bot payload".
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.TrimPrefix(strings.Fields(text)[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}

func textEvent(chat int64, text string) conversation.Event {
	return conversation.Event{
		SessionID:  sessionID(chat),
		Kind:       conversation.EventText,
		Text:       text,
		ReceivedAt: time.Now().UTC(),
	}
}

func commandEvent(chat int64, name string) conversation.Event {
	return conversation.Event{
		SessionID:  sessionID(chat),
		Kind:       conversation.EventCommand,
		Command:    name,
		ReceivedAt: time.Now().UTC(),
	}
}

func locationEvent(chat int64, lat, lng float32) conversation.Event {
	return conversation.Event{
		SessionID:  sessionID(chat),
		Kind:       conversation.EventLocation,
		Latitude:   float64(lat),
		Longitude:  float64(lng),
		ReceivedAt: time.Now().UTC(),
	}
}
