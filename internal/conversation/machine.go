// Package conversation holds the per-session state machine that decides which
// input a chat session expects and what to answer.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/i474232898/weather-bot/internal/report"
	"github.com/i474232898/weather-bot/internal/weather"
)

// Button labels of the options keyboard. A text event equal to ButtonTypeCity
// selects the city-name path.
const (
	ButtonShareLocation = "Share my location"
	ButtonTypeCity      = "Type a city name"
)

const (
	welcomeText = "Welcome to the Weather Bot! I can provide current weather information.\n\n" +
		"Please share your location or choose to type a city name."
	choosePrompt   = "Please share your location or choose to type a city name."
	nextPrompt     = "What would you like to do next?"
	cityPrompt     = "Please enter the name of the city:"
	cancelText     = "Operation cancelled. Send /start to begin again."
	locationFailed = "Sorry, I couldn't retrieve weather information for your location."
	cityFailed     = "Sorry, I couldn't find weather information for '%s'."

	helpText = "I am a Weather Bot. I can provide you with current weather information.\n\n" +
		"Commands:\n" +
		"/start - Start interacting with the bot\n" +
		"/help - Show this help message\n" +
		"/cancel - Cancel the current operation"
)

// WeatherSource is what the machine needs from the weather pipeline.
type WeatherSource interface {
	FetchByCoordinates(ctx context.Context, lat, lon float64) (weather.Report, error)
	FetchByCityName(ctx context.Context, name string) (weather.Report, error)
}

// Machine applies events to sessions. It keeps no per-session state of its
// own, so one Machine serves every session concurrently.
type Machine struct {
	source WeatherSource
	logger *slog.Logger
}

func NewMachine(source WeatherSource, logger *slog.Logger) *Machine {
	return &Machine{source: source, logger: logger}
}

// Handle applies ev to s and returns the next session and the replies to send,
// in order. Lookup failures become apologies; Handle never fails.
func (m *Machine) Handle(ctx context.Context, s Session, ev Event) (Session, []Reply) {
	from := s.State
	next, replies := m.handle(ctx, s, ev)

	m.logger.Debug("session transition",
		"session_id", s.ID,
		"event_id", ev.ID,
		"event_kind", ev.Kind,
		"from", from,
		"to", next.State,
	)
	return next, replies
}

func (m *Machine) handle(ctx context.Context, s Session, ev Event) (Session, []Reply) {
	if ev.Kind == EventCommand {
		return m.handleCommand(s, ev)
	}

	switch s.State {
	case StateAwaitingCityName:
		switch ev.Kind {
		case EventLocation:
			return m.lookupCoordinates(ctx, s, ev)
		case EventText:
			if strings.TrimSpace(ev.Text) == "" {
				return s, []Reply{{Text: cityPrompt}}
			}
			return m.lookupCity(ctx, s, ev.Text)
		}

	default:
		// No session yet, or a cancelled one: the conversation restarts at the choice.
		s.State = StateAwaitingChoice

		switch ev.Kind {
		case EventLocation:
			return m.lookupCoordinates(ctx, s, ev)
		case EventText:
			if ev.Text == ButtonTypeCity {
				s.State = StateAwaitingCityName
				return s, []Reply{{Text: cityPrompt}}
			}
			return s, []Reply{{Text: choosePrompt, Keyboard: KeyboardOptions}}
		}
	}

	m.logger.Warn("unsupported event kind", "session_id", s.ID, "event_kind", ev.Kind)
	return s, m.prompt(s.State)
}

func (m *Machine) handleCommand(s Session, ev Event) (Session, []Reply) {
	switch ev.Command {
	case CommandStart:
		s.State = StateAwaitingChoice
		return s, []Reply{{Text: welcomeText, Keyboard: KeyboardOptions}}
	case CommandCancel:
		s.State = StateTerminated
		return s, []Reply{{Text: cancelText}}
	case CommandHelp:
		return s, []Reply{{Text: helpText}}
	}

	if s.State != StateAwaitingCityName {
		s.State = StateAwaitingChoice
	}
	return s, m.prompt(s.State)
}

func (m *Machine) prompt(state State) []Reply {
	if state == StateAwaitingCityName {
		return []Reply{{Text: cityPrompt}}
	}
	return []Reply{{Text: choosePrompt, Keyboard: KeyboardOptions}}
}

func (m *Machine) lookupCoordinates(ctx context.Context, s Session, ev Event) (Session, []Reply) {
	r, err := m.source.FetchByCoordinates(ctx, ev.Latitude, ev.Longitude)
	first := m.render(r, err, locationFailed)
	return m.afterLookup(s, first)
}

func (m *Machine) lookupCity(ctx context.Context, s Session, name string) (Session, []Reply) {
	r, err := m.source.FetchByCityName(ctx, name)
	first := m.render(r, err, fmt.Sprintf(cityFailed, name))
	return m.afterLookup(s, first)
}

func (m *Machine) render(r weather.Report, err error, apology string) Reply {
	if err != nil {
		if !errors.Is(err, weather.ErrNotAvailable) {
			m.logger.Error("weather lookup failed", "error", err)
		}
		return Reply{Text: apology}
	}
	return Reply{Text: report.Format(r)}
}

// Every lookup, served or not, returns the session to the choice.
func (m *Machine) afterLookup(s Session, first Reply) (Session, []Reply) {
	s.State = StateAwaitingChoice
	return s, []Reply{first, {Text: nextPrompt, Keyboard: KeyboardOptions}}
}
