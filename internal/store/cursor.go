package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phrazzld/namegen-api/internal/domain"
)

// Cursor marks the last item of a page. The next page starts strictly after it
// in (CreatedAt DESC, Slug ASC) order.
type Cursor struct {
	CreatedAt time.Time
	Slug      string
}

type cursorWire struct {
	T string `json:"t"`
	S string `json:"s"`
}

// CursorFor returns the cursor positioned after task.
func CursorFor(task *domain.Task) Cursor {
	return Cursor{CreatedAt: task.CreatedAt, Slug: task.Slug}
}

// Encode returns the opaque, URL-safe representation of the cursor.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(cursorWire{
		T: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		S: c.Slug,
	})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// After reports whether task sorts strictly after the cursor position.
func (c Cursor) After(task *domain.Task) bool {
	if task.CreatedAt.Equal(c.CreatedAt) {
		return task.Slug > c.Slug
	}
	return task.CreatedAt.Before(c.CreatedAt)
}

// DecodeCursor parses an encoded cursor. An empty string is the zero cursor
// with ok == false.
func DecodeCursor(encoded string) (cursor Cursor, ok bool, err error) {
	if encoded == "" {
		return Cursor{}, false, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Cursor{}, false, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	var wire cursorWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Cursor{}, false, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	t, err := time.Parse(time.RFC3339Nano, wire.T)
	if err != nil {
		return Cursor{}, false, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if !domain.IsValidSlug(wire.S) {
		return Cursor{}, false, fmt.Errorf("%w: bad slug", ErrInvalidCursor)
	}

	return Cursor{CreatedAt: t.UTC(), Slug: wire.S}, true, nil
}

// Less orders tasks the way every List implementation returns them.
func Less(a, b *domain.Task) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.Slug < b.Slug
	}
	return a.CreatedAt.After(b.CreatedAt)
}
