package store

import (
	"testing"
	"time"

	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 12, 30, 0, 123456000, time.UTC)
	c := Cursor{CreatedAt: at, Slug: "su-ruo-fan-abc12345"}

	decoded, ok, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, decoded.CreatedAt.Equal(at))
	assert.Equal(t, c.Slug, decoded.Slug)
}

func TestDecodeCursorEmpty(t *testing.T) {
	t.Parallel()

	_, ok, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeCursorInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"%%%not-base64",
		// "not-json"
		"bm90LWpzb24",
		// {"t":"yesterday","s":"a"}
		"eyJ0IjoieWVzdGVyZGF5IiwicyI6ImEifQ",
		Cursor{CreatedAt: time.Now(), Slug: "Bad Slug"}.Encode(),
	} {
		_, _, err := DecodeCursor(raw)
		assert.ErrorIs(t, err, ErrInvalidCursor, "cursor %q", raw)
	}
}

func TestCursorAfterAndLess(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	older := &domain.Task{Slug: "b", CreatedAt: base.Add(-time.Second)}
	sameA := &domain.Task{Slug: "a", CreatedAt: base}
	sameC := &domain.Task{Slug: "c", CreatedAt: base}
	newer := &domain.Task{Slug: "z", CreatedAt: base.Add(time.Second)}

	c := Cursor{CreatedAt: base, Slug: "b"}
	assert.True(t, c.After(older))
	assert.True(t, c.After(sameC))
	assert.False(t, c.After(sameA))
	assert.False(t, c.After(newer))

	assert.True(t, Less(newer, sameA))
	assert.True(t, Less(sameA, sameC))
	assert.False(t, Less(older, sameC))
}
