package publicchat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxTextLen bounds the length of a chat message in runes.
const MaxTextLen = 500

// A Store persists the per-room ordered message log.
type Store interface {
	// Append validates, sanitizes nothing (callers sanitize first), and
	// persists a new message with StatusServer.
	Append(ctx context.Context, room, author, text string, ts int64) (Message, error)
	// Find returns the message with the given id or ErrNotFound.
	Find(ctx context.Context, id string) (Message, error)
	// Page returns up to limit messages strictly older than beforeID,
	// oldest-first. An empty beforeID requests the most recent page. A
	// beforeID that is unknown (for example trimmed away) yields an empty
	// page, never an error.
	Page(ctx context.Context, room, beforeID string, limit int) ([]Message, error)
	// Update persists an in-place mutation of a message. Updates to the
	// same message are serialized by the store.
	Update(ctx context.Context, msg Message) error
}

// A Cache holds the newest page of each room's log so cursorless history
// requests can skip the store. Implementations are write-through and may
// evict beyond one page.
type Cache interface {
	ListRecent(ctx context.Context, room string, limit int) ([]Message, error)
	InsertMessage(ctx context.Context, msg Message) error
	UpdateMessage(ctx context.Context, msg Message) error
}

// ValidateText enforces the message text bounds shared by every Store
// implementation. The returned text is whitespace-trimmed.
func ValidateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ValidationError{Field: "text", Reason: "empty"}
	}
	if utf8.RuneCountInString(text) > MaxTextLen {
		return "", &ValidationError{Field: "text", Reason: "too long"}
	}
	return text, nil
}

var sanitizePolicy = bluemonday.StrictPolicy()

// Sanitize strips all markup from inbound chat text. Stored text never
// contains tags or attributes.
func Sanitize(text string) string {
	return sanitizePolicy.Sanitize(text)
}
