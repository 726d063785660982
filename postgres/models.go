package postgres

import (
	"github.com/uptrace/bun"

	publicchat "github.com/isolophiliabusiness/Public-Chat"
)

// A message is one row of a room's log. The bigserial seq breaks ordering
// ties when two messages share a millisecond timestamp.
type message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID        string              `bun:"id,pk,type:uuid"`
	Seq       int64               `bun:"seq,type:bigserial,nullzero"`
	Room      string              `bun:"room,notnull"`
	Author    string              `bun:"author,notnull"`
	Text      string              `bun:"message_text,notnull"`
	Time      int64               `bun:"time_ms,notnull"`
	Reactions map[string][]string `bun:"reactions,type:jsonb"`
	Status    string              `bun:"status,notnull"`
}

func (m message) chatMessage() publicchat.Message {
	status, err := publicchat.ParseStatus(m.Status)
	if err != nil {
		status = publicchat.StatusServer
	}
	reactions := publicchat.Reactions{}
	for emoji, users := range m.Reactions {
		reactions[emoji] = append([]string(nil), users...)
	}
	return publicchat.Message{
		ID:        m.ID,
		Room:      m.Room,
		Author:    m.Author,
		Text:      m.Text,
		Time:      m.Time,
		Reactions: reactions,
		Status:    status,
	}
}

func rowFrom(msg publicchat.Message) *message {
	return &message{
		ID:        msg.ID,
		Room:      msg.Room,
		Author:    msg.Author,
		Text:      msg.Text,
		Time:      msg.Time,
		Reactions: msg.Reactions,
		Status:    msg.Status.String(),
	}
}
