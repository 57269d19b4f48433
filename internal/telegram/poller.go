package telegram

import (
	"context"
	"log/slog"
	"time"
)

// Handler produces the reply to a text message; an empty reply sends nothing.
type Handler interface {
	Handle(ctx context.Context, text string) string
}

// Sender delivers a reply to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Reply runs u through h and sends the answer, if any.
func Reply(ctx context.Context, s Sender, h Handler, u Update) error {
	if !u.HasText() {
		return nil
	}
	reply := h.Handle(ctx, u.Text)
	if reply == "" {
		return nil
	}
	return s.SendMessage(ctx, u.ChatID, reply)
}

// Poller receives updates through getUpdates long polling.
type Poller struct {
	client  *Client
	handler Handler
	timeout time.Duration
	// pause is the wait after a failed getUpdates call.
	pause time.Duration
}

// NewPoller creates a poller. timeout is the server-side long-poll wait.
func NewPoller(client *Client, handler Handler, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Poller{
		client:  client,
		handler: handler,
		timeout: timeout,
		pause:   3 * time.Second,
	}
}

// Run polls until ctx is cancelled. Updates are handled one at a time, in order.
func (p *Poller) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "telegram poller started", "timeout", p.timeout)
	var offset int64
	for {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "telegram poller stopped")
			return nil
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			slog.WarnContext(ctx, "getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(p.pause):
			}
			continue
		}

		for _, u := range updates {
			if u.ID >= offset {
				offset = u.ID + 1
			}
			if err := Reply(ctx, p.client, p.handler, u); err != nil {
				slog.ErrorContext(ctx, "sending reply failed", "update_id", u.ID, "chat_id", u.ChatID, "error", err)
			}
		}
	}
}
