package telegram

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/i474232898/weather-bot/internal/conversation"
)

// messageSender is the part of tele.Bot used for delivery.
type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// rateLimitedSender keeps outbound messages under the Bot API's global limit.
type rateLimitedSender struct {
	api     messageSender
	menu    *tele.ReplyMarkup
	limiter *rate.Limiter
}

func newRateLimitedSender(api messageSender, menu *tele.ReplyMarkup, rps float64) *rateLimitedSender {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedSender{
		api:     api,
		menu:    menu,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (s *rateLimitedSender) send(ctx context.Context, sessionID string, r conversation.Reply) error {
	chat, err := chatID(sessionID)
	if err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait canceled: %w", err)
	}

	var opts []interface{}
	if r.Keyboard == conversation.KeyboardOptions {
		opts = append(opts, s.menu)
	}

	if _, err := s.api.Send(tele.ChatID(chat), r.Text, opts...); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chat, err)
	}
	return nil
}

// Send delivers one reply to the chat identified by sessionID.
func (b *Bot) Send(ctx context.Context, sessionID string, r conversation.Reply) error {
	return b.sender.send(ctx, sessionID, r)
}
