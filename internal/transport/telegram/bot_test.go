package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/i474232898/weather-bot/internal/conversation"
	"github.com/i474232898/weather-bot/internal/observability"
)

type sentMessage struct {
	to   string
	text string
	opts []interface{}
}

type fakeAPI struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, sentMessage{to: to.Recipient(), text: what.(string), opts: opts})
	return &tele.Message{}, nil
}

func TestOptionsKeyboard(t *testing.T) {
	menu := optionsKeyboard()

	assert.True(t, menu.ResizeKeyboard)
	assert.True(t, menu.OneTimeKeyboard)
	require.Len(t, menu.ReplyKeyboard, 2)
	assert.Equal(t, conversation.ButtonShareLocation, menu.ReplyKeyboard[0][0].Text)
	assert.True(t, menu.ReplyKeyboard[0][0].Location)
	assert.Equal(t, conversation.ButtonTypeCity, menu.ReplyKeyboard[1][0].Text)
	assert.False(t, menu.ReplyKeyboard[1][0].Location)
}

func TestEventMapping(t *testing.T) {
	ev := textEvent(12345, "Paris")
	assert.Equal(t, "12345", ev.SessionID)
	assert.Equal(t, conversation.EventText, ev.Kind)
	assert.Equal(t, "Paris", ev.Text)

	ev = commandEvent(-100200, conversation.CommandCancel)
	assert.Equal(t, "-100200", ev.SessionID)
	assert.True(t, ev.IsCancel())

	ev = locationEvent(7, 51.5, -0.25)
	assert.Equal(t, conversation.EventLocation, ev.Kind)
	assert.InDelta(t, 51.5, ev.Latitude, 1e-5)
	assert.InDelta(t, -0.25, ev.Longitude, 1e-5)
}

func TestChatID(t *testing.T) {
	id, err := chatID("-42")
	require.NoError(t, err)
	assert.Equal(t, int64(-42), id)

	_, err = chatID("web-session")
	assert.Error(t, err)
}

func TestSend_AttachesKeyboardOnlyForOptions(t *testing.T) {
	api := &fakeAPI{}
	menu := optionsKeyboard()
	s := newRateLimitedSender(api, menu, 100)

	require.NoError(t, s.send(context.Background(), "99", conversation.Reply{Text: "report"}))
	require.NoError(t, s.send(context.Background(), "99", conversation.Reply{
		Text:     "What would you like to do next?",
		Keyboard: conversation.KeyboardOptions,
	}))

	require.Len(t, api.sent, 2)
	assert.Equal(t, "99", api.sent[0].to)
	assert.Empty(t, api.sent[0].opts)
	require.Len(t, api.sent[1].opts, 1)
	assert.Same(t, menu, api.sent[1].opts[0])
}

func TestSend_RejectsNonChatSession(t *testing.T) {
	api := &fakeAPI{}
	s := newRateLimitedSender(api, optionsKeyboard(), 100)

	assert.Error(t, s.send(context.Background(), "http-abc", conversation.Reply{Text: "x"}))
	assert.Empty(t, api.sent)
}

func TestSend_WrapsAPIError(t *testing.T) {
	api := &fakeAPI{err: errors.New("Forbidden: bot was blocked by the user")}
	s := newRateLimitedSender(api, optionsKeyboard(), 100)

	err := s.send(context.Background(), "1", conversation.Reply{Text: "x"})
	assert.ErrorContains(t, err, "blocked")
}

func TestSend_RateLimited(t *testing.T) {
	api := &fakeAPI{}
	s := newRateLimitedSender(api, optionsKeyboard(), 1)

	require.NoError(t, s.send(context.Background(), "1", conversation.Reply{Text: "first"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.send(ctx, "1", conversation.Reply{Text: "second"})
	assert.ErrorContains(t, err, "rate limit")
	assert.Len(t, api.sent, 1)
}

type recordingSubmitter struct {
	mu     sync.Mutex
	events []conversation.Event
}

func (r *recordingSubmitter) Submit(ev conversation.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSubmitter) snapshot() []conversation.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]conversation.Event(nil), r.events...)
}

func newOfflineBot(t *testing.T) (*Bot, *recordingSubmitter) {
	t.Helper()
	b, err := New(Config{Token: "123:abc", SendRate: 30, Offline: true}, observability.DiscardLogger())
	require.NoError(t, err)
	sub := &recordingSubmitter{}
	b.Attach(sub)
	return b, sub
}

func textUpdate(id int, chat int64, text string) tele.Update {
	return tele.Update{
		ID:      id,
		Message: &tele.Message{ID: id, Chat: &tele.Chat{ID: chat}, Text: text},
	}
}

func TestNewOffline(t *testing.T) {
	b, sub := newOfflineBot(t)
	require.NoError(t, b.dispatch(textEvent(5, "hi")))
	assert.Len(t, sub.snapshot(), 1)
}

func TestProcessUpdate_KeepsChatOrder(t *testing.T) {
	b, sub := newOfflineBot(t)

	const rounds = 200
	for i := 0; i < rounds; i++ {
		b.bot.ProcessUpdate(textUpdate(2*i, 7, conversation.ButtonTypeCity))
		b.bot.ProcessUpdate(textUpdate(2*i+1, 7, "London"))
	}

	events := sub.snapshot()
	require.Len(t, events, 2*rounds)
	for i := 0; i < rounds; i++ {
		assert.Equal(t, conversation.ButtonTypeCity, events[2*i].Text, "round %d", i)
		assert.Equal(t, "London", events[2*i+1].Text, "round %d", i)
	}
}

func TestProcessUpdate_Commands(t *testing.T) {
	b, sub := newOfflineBot(t)

	b.bot.ProcessUpdate(textUpdate(1, 7, "/start"))
	b.bot.ProcessUpdate(textUpdate(2, 7, "/forecast"))
	b.bot.ProcessUpdate(textUpdate(3, 7, "/Help"))
	b.bot.ProcessUpdate(textUpdate(4, 7, "Paris"))

	events := sub.snapshot()
	require.Len(t, events, 4)

	assert.Equal(t, conversation.EventCommand, events[0].Kind)
	assert.Equal(t, conversation.CommandStart, events[0].Command)

	assert.Equal(t, conversation.EventCommand, events[1].Kind)
	assert.Equal(t, "forecast", events[1].Command)
	assert.Empty(t, events[1].Text)

	assert.Equal(t, conversation.EventCommand, events[2].Kind)
	assert.Equal(t, conversation.CommandHelp, events[2].Command)

	assert.Equal(t, conversation.EventText, events[3].Kind)
	assert.Equal(t, "Paris", events[3].Text)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		name string
		ok   bool
	}{
		{"/forecast", "forecast", true},
		{"/Forecast@weather_bot tomorrow", "forecast", true},
		{"/cancel@weather_bot", "cancel", true},
		{"/", "", false},
		{"/@weather_bot", "", false},
		{"London", "", false},
		{"Type a city name", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, ok := parseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
		})
	}
}
