package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"orario/internal/cache"
	"orario/internal/core"
	"orario/internal/lookup"
	"orario/internal/telegram"
	"orario/internal/timetable"
)

// maxPeriod bounds the period query parameter.
const maxPeriod = 12

// Querier is the part of lookup.Service the HTTP API uses.
type Querier interface {
	Current(ctx context.Context, name string) (*lookup.Result, error)
	Day(ctx context.Context, name string) (*lookup.Result, error)
	At(ctx context.Context, name string, day timetable.Day, period int) (*lookup.Result, error)
	Now() time.Time
	Snapshot() cache.Snapshot
}

// Chat answers one chat message; see bot.Dispatcher.
type Chat interface {
	Handle(ctx context.Context, text string) string
}

// Handler holds the HTTP handlers
type Handler struct {
	q             Querier
	chat          Chat
	sender        telegram.Sender
	webhookSecret string
}

// NewHandler creates a new handler
func NewHandler(q Querier, chat Chat, sender telegram.Sender, webhookSecret string) *Handler {
	return &Handler{
		q:             q,
		chat:          chat,
		sender:        sender,
		webhookSecret: webhookSecret,
	}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"index":  h.q.Snapshot(),
	})
}

// Timetable handles GET /v1/timetable?name=&day=&period=&view=day
//
// Without day the current day is used, and the current period unless view=day
// or a period is given. With day and no period the whole day is returned.
func (h *Handler) Timetable(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.QueryParam("name")
	wholeDay := strings.EqualFold(c.QueryParam("view"), "day")

	period := 0
	if raw := c.QueryParam("period"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 || p > maxPeriod {
			return handleError(c, core.NewInvalidInputError("period must be an integer between 1 and 12"))
		}
		period = p
	}
	if wholeDay {
		period = 0
	}

	var (
		res *lookup.Result
		err error
	)
	switch raw := c.QueryParam("day"); {
	case raw != "":
		day, ok := timetable.ParseDay(raw)
		if !ok {
			return handleError(c, core.NewInvalidInputError("day must be one of LUN, MAR, MER, GIO, VEN, SAB"))
		}
		res, err = h.q.At(ctx, name, day, period)
	case wholeDay:
		res, err = h.q.Day(ctx, name)
	case period > 0:
		day, ok := timetable.DayOf(h.q.Now())
		if !ok {
			return handleError(c, lookup.ErrNoLessonsToday)
		}
		res, err = h.q.At(ctx, name, day, period)
	default:
		res, err = h.q.Current(ctx, name)
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type messageRequest struct {
	Text string `json:"text"`
}

// Message handles POST /v1/messages: the chat dispatcher without a chat transport.
func (h *Handler) Message(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidInputError("invalid request body"))
	}
	if strings.TrimSpace(req.Text) == "" {
		return handleError(c, core.NewInvalidInputError("text is required"))
	}
	return c.JSON(http.StatusOK, map[string]string{
		"reply": h.chat.Handle(c.Request().Context(), req.Text),
	})
}

// TelegramWebhook handles POST /telegram/webhook. Delivery failures are logged
// and still acknowledged so Telegram does not redeliver the update.
func (h *Handler) TelegramWebhook(c echo.Context) error {
	if h.webhookSecret != "" {
		got := c.Request().Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			return authError(c, "invalid webhook secret")
		}
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return handleError(c, core.NewInvalidInputError("reading request body"))
	}
	update, err := telegram.ParseUpdate(body)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	if err := telegram.Reply(ctx, h.sender, h.chat, update); err != nil {
		slog.ErrorContext(ctx, "webhook reply failed", "update_id", update.ID, "error", err)
	}
	return c.NoContent(http.StatusOK)
}

// handleError converts service errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var e *core.Error
	if errors.As(err, &e) {
		if e.HTTPStatusCode() >= http.StatusInternalServerError {
			slog.ErrorContext(c.Request().Context(), "request failed", "error", err)
		}
		return c.JSON(e.HTTPStatusCode(), e.ToJSON())
	}

	slog.ErrorContext(c.Request().Context(), "unexpected error", "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}

// errorHandler renders errors that reach echo (unknown routes, oversized bodies,
// wrong methods) in the same shape as handler errors.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusNotFound {
			_ = handleError(c, core.NewNotFoundError("no route for "+c.Request().Method+" "+c.Request().URL.Path))
			return
		}
		_ = c.JSON(he.Code, map[string]interface{}{
			"error": map[string]interface{}{
				"type":    "request_error",
				"message": fmt.Sprint(he.Message),
			},
		})
		return
	}

	_ = handleError(c, err)
}
