// Package bot turns chat messages into timetable queries and renders the replies.
// It knows nothing about the chat transport.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"orario/internal/core"
	"orario/internal/lookup"
	"orario/internal/timetable"
)

// Reply texts.
const (
	msgStart = "Ciao! Sono il bot dell'orario.\n\n" +
		"Usa:\n" +
		"/oggi 4F\n" +
		"/oggi ROSSI\n" +
		"/oggi AULA 69\n\n" +
		"Oppure scrivi: orario 4F (orario giornaliero)\n\n" +
		"Ti rispondo con la lezione dell'ora attuale."
	msgHelp = "Comandi:\n" +
		"/oggi <classe|prof|aula>\n" +
		"Esempi: /oggi 4F - /oggi Burgio - /oggi AULA 69\n" +
		"Testo libero: orario 4F (orario giornaliero)\n"
	msgUsageCommand  = "Scrivi cosi: /oggi 4F (oppure prof/aula)"
	msgUsageDay      = "Scrivi cosi: orario 4F (oppure prof/aula)"
	msgTooLong       = "Scrivi solo classe/prof/aula, es: 4F oppure ROSSI oppure AULA 69."
	msgSunday        = "Oggi e domenica: non c'e orario."
	msgOutsideHours  = "Fuori fascia orario lezioni (" + timetable.LessonHours + ")."
	msgAmbiguous     = "Ho trovato piu risultati, sii piu preciso:\n"
	msgNotFound      = "Non trovato. Scrivi un nome piu simile a quello sul sito."
	msgTemporary     = "Si e' verificato un errore temporaneo. Riprova."
	msgPageChanged   = "La pagina dell'orario ha un formato che non riconosco. Riprova piu tardi."
	msgSchoolSet     = "Impostato: %s"
	msgSchoolMissing = "URL per questa scuola non configurato."
)

// Querier is the part of lookup.Service the dispatcher uses.
type Querier interface {
	Current(ctx context.Context, name string) (*lookup.Result, error)
	Day(ctx context.Context, name string) (*lookup.Result, error)
	Locate(ctx context.Context, name string) (*lookup.Result, error)
	SwitchSource(keyword string) (string, error)
	IsSchool(text string) bool
}

// Dispatcher routes one incoming message to a reply.
type Dispatcher struct {
	q         Querier
	maxLength int
}

// NewDispatcher creates a dispatcher. maxLength bounds free-text messages;
// zero means lookup.DefaultMaxLength.
func NewDispatcher(q Querier, maxLength int) *Dispatcher {
	if maxLength <= 0 {
		maxLength = lookup.DefaultMaxLength
	}
	return &Dispatcher{q: q, maxLength: maxLength}
}

// Handle returns the reply to text, or "" when the message gets no reply.
func (d *Dispatcher) Handle(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if strings.HasPrefix(text, "/") {
		return d.command(ctx, text)
	}
	return d.freeText(ctx, text)
}

func (d *Dispatcher) command(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	args := strings.Join(fields[1:], " ")

	switch strings.ToLower(name) {
	case "start":
		return msgStart
	case "help":
		return msgHelp
	case "oggi":
		if args == "" {
			return msgUsageCommand
		}
		return d.answer(ctx, "/oggi", func() (*lookup.Result, error) {
			return d.q.Current(ctx, args)
		})
	default:
		return ""
	}
}

func (d *Dispatcher) freeText(ctx context.Context, text string) string {
	if utf8.RuneCountInString(text) > d.maxLength {
		return msgTooLong
	}

	if key := strings.ToLower(text); d.q.IsSchool(key) {
		if _, err := d.q.SwitchSource(key); err != nil {
			return msgSchoolMissing
		}
		return fmt.Sprintf(msgSchoolSet, key)
	}

	words := strings.Fields(text)
	if strings.EqualFold(words[0], "orario") {
		name := strings.Join(words[1:], " ")
		if name == "" {
			return msgUsageDay
		}
		return d.answer(ctx, "orario", func() (*lookup.Result, error) {
			return d.q.Day(ctx, name)
		})
	}

	// free text resolves the name before checking the hour, /oggi does not
	return d.answer(ctx, "text", func() (*lookup.Result, error) {
		return d.q.Locate(ctx, text)
	})
}

// answer runs query and renders its result or error.
func (d *Dispatcher) answer(ctx context.Context, kind string, query func() (*lookup.Result, error)) string {
	res, err := query()
	if err != nil {
		return d.renderError(ctx, kind, err)
	}

	switch res.Outcome {
	case timetable.Found:
		return res.Text
	case timetable.Ambiguous:
		return msgAmbiguous + strings.Join(res.Candidates, "\n")
	default:
		return msgNotFound
	}
}

func (d *Dispatcher) renderError(ctx context.Context, kind string, err error) string {
	switch {
	case errors.Is(err, lookup.ErrNoLessonsToday):
		return msgSunday
	case errors.Is(err, lookup.ErrOutsideLessonHours):
		return msgOutsideHours
	}

	switch core.KindOf(err) {
	case core.KindInvalidInput:
		return msgTooLong
	case core.KindParse, core.KindScheduleNotFound:
		slog.ErrorContext(ctx, "timetable page not readable", "request", kind, "error", err)
		return msgPageChanged
	default:
		slog.ErrorContext(ctx, "query failed", "request", kind, "error", err)
		return msgTemporary
	}
}
