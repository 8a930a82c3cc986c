package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-bot/internal/conversation"
	"github.com/i474232898/weather-bot/internal/dispatcher"
	"github.com/i474232898/weather-bot/internal/report"
	"github.com/i474232898/weather-bot/internal/weather"
)

var validate = validator.New()

// EventProcessor runs one event through its session and returns the replies.
type EventProcessor interface {
	Do(ctx context.Context, ev conversation.Event) ([]conversation.Reply, error)
}

// Deps are the collaborators the routes need.
type Deps struct {
	ServiceName string
	Weather     conversation.WeatherSource
	Events      EventProcessor
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": deps.ServiceName,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q, err := parseCurrentQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var r weather.Report
		if q.Lat != nil {
			r, err = deps.Weather.FetchByCoordinates(c.UserContext(), *q.Lat, *q.Lon)
		} else {
			r, err = deps.Weather.FetchByCityName(c.UserContext(), q.City)
		}
		if err != nil {
			switch {
			case errors.Is(err, weather.ErrInvalidCoordinates):
				return fiber.NewError(fiber.StatusBadRequest, "coordinates out of range")
			case errors.Is(err, weather.ErrNoMatchingPlace):
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested place")
			default:
				return fiber.NewError(fiber.StatusBadGateway, "weather provider unavailable")
			}
		}

		return c.JSON(fiber.Map{
			"report": r,
			"text":   report.Format(r),
		})
	})

	v1.Post("/events", func(c *fiber.Ctx) error {
		var req eventRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		replies, err := deps.Events.Do(c.UserContext(), req.toEvent())
		if err != nil {
			switch {
			case errors.Is(err, dispatcher.ErrCancelled):
				return fiber.NewError(fiber.StatusConflict, "event superseded by cancel")
			case errors.Is(err, dispatcher.ErrClosed):
				return fiber.NewError(fiber.StatusServiceUnavailable, "shutting down")
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "failed to process event")
			}
		}

		out := make([]replyResponse, 0, len(replies))
		for _, r := range replies {
			out = append(out, toReplyResponse(r))
		}
		return c.JSON(fiber.Map{
			"sessionId": req.SessionID,
			"replies":   out,
		})
	})
}

// currentQuery holds query parameters for the direct lookup endpoint.
type currentQuery struct {
	City string   `validate:"required_without=Lat"`
	Lat  *float64 `validate:"required_without=City,required_with=Lon,omitempty,gte=-90,lte=90"`
	Lon  *float64 `validate:"required_with=Lat,omitempty,gte=-180,lte=180"`
}

func parseCurrentQuery(c *fiber.Ctx) (currentQuery, error) {
	var q currentQuery

	q.City = strings.TrimSpace(c.Query("city"))

	var err error
	if q.Lat, err = parseFloatQuery(c, "lat"); err != nil {
		return q, err
	}
	if q.Lon, err = parseFloatQuery(c, "lon"); err != nil {
		return q, err
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func parseFloatQuery(c *fiber.Ctx, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("invalid " + key + "; must be a number")
	}
	return &v, nil
}

// eventRequest is the JSON body of POST /api/v1/events.
type eventRequest struct {
	SessionID string   `json:"sessionId" validate:"required,max=128"`
	Kind      string   `json:"kind" validate:"required,oneof=text location command"`
	Text      string   `json:"text" validate:"max=4096"`
	Command   string   `json:"command" validate:"required_if=Kind command"`
	Latitude  *float64 `json:"latitude" validate:"required_if=Kind location,omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required_if=Kind location,omitempty,gte=-180,lte=180"`
}

func (r eventRequest) toEvent() conversation.Event {
	ev := conversation.Event{
		SessionID: r.SessionID,
		Kind:      conversation.EventKind(r.Kind),
		Text:      r.Text,
		Command:   strings.TrimPrefix(strings.ToLower(r.Command), "/"),
	}
	if r.Latitude != nil && r.Longitude != nil {
		ev.Latitude = *r.Latitude
		ev.Longitude = *r.Longitude
	}
	return ev
}

type replyResponse struct {
	Text     string   `json:"text"`
	Keyboard []string `json:"keyboard,omitempty"`
}

func toReplyResponse(r conversation.Reply) replyResponse {
	out := replyResponse{Text: r.Text}
	if r.Keyboard == conversation.KeyboardOptions {
		out.Keyboard = []string{conversation.ButtonShareLocation, conversation.ButtonTypeCity}
	}
	return out
}
