package slug

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slugFormat = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hint string
		want string
	}{
		{"ascii words", "Hello World", "hello-world"},
		{"punctuation runs", "  --Ada__Lovelace!!  ", "ada-lovelace"},
		{"digits kept", "Agent 007", "agent-007"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.hint))
		})
	}
}

func TestNormalizeTransliterates(t *testing.T) {
	t.Parallel()

	got := Normalize("苏若凡")
	assert.NotEmpty(t, got)
	assert.Regexp(t, `^[a-z0-9]+(-[a-z0-9]+)*$`, got)
}

func TestNormalizeTruncates(t *testing.T) {
	t.Parallel()

	got := Normalize(strings.Repeat("abc-", 40))
	assert.LessOrEqual(t, len(got), maxHintLength)
	assert.False(t, strings.HasSuffix(got, "-"))
}

func TestAllocate(t *testing.T) {
	t.Parallel()

	a := NewAllocator()

	s, err := a.Allocate("Ada Lovelace")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "ada-lovelace-"))
	assert.Len(t, s, len("ada-lovelace-")+SuffixLength)
	assert.Regexp(t, slugFormat, s)

	s, err = a.Allocate("")
	require.NoError(t, err)
	assert.Len(t, s, SuffixLength)
	assert.Regexp(t, slugFormat, s)

	s, err = a.Allocate(strings.Repeat("long name ", 20))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(s), MaxLength)
	assert.Regexp(t, slugFormat, s)
}

func TestAllocateIsRandom(t *testing.T) {
	t.Parallel()

	a := NewAllocator()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		s, err := a.Allocate("same")
		require.NoError(t, err)
		assert.False(t, seen[s], "duplicate slug %s", s)
		seen[s] = true
	}
}

func TestAllocateDeterministicReader(t *testing.T) {
	t.Parallel()

	// The same byte stream yields the same slug
	stream := bytes.Repeat([]byte{0x01}, 64)
	first, err := NewAllocatorWithReader(bytes.NewReader(stream)).Allocate("hint")
	require.NoError(t, err)
	second, err := NewAllocatorWithReader(bytes.NewReader(stream)).Allocate("hint")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestAllocateReaderError(t *testing.T) {
	t.Parallel()

	_, err := NewAllocatorWithReader(failingReader{}).Allocate("hint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
}
