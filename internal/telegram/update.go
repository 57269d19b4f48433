package telegram

import (
	"github.com/tidwall/gjson"

	"orario/internal/core"
)

// Update is the subset of a Bot API update the bot reacts to. ChatID and Text
// are zero when the update carries no text message.
type Update struct {
	ID     int64
	ChatID int64
	Text   string
}

// HasText reports whether the update is a text message that can be answered.
func (u Update) HasText() bool {
	return u.ChatID != 0 && u.Text != ""
}

// ParseUpdate decodes one webhook payload.
func ParseUpdate(body []byte) (Update, error) {
	if !gjson.ValidBytes(body) {
		return Update{}, core.NewInvalidInputError("update is not valid JSON")
	}
	u := gjson.ParseBytes(body)
	if !u.Get("update_id").Exists() {
		return Update{}, core.NewInvalidInputError("update_id is missing")
	}
	return decodeUpdate(u), nil
}

func decodeUpdate(u gjson.Result) Update {
	return Update{
		ID:     u.Get("update_id").Int(),
		ChatID: u.Get("message.chat.id").Int(),
		Text:   u.Get("message.text").String(),
	}
}
