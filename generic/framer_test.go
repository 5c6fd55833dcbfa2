package generic

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(f *Framer, p string, lastOnly bool) ([]string, error) {
	var out []string
	_, err := f.Feed([]byte(p), lastOnly, func(rec []byte) {
		out = append(out, string(rec))
	})
	return out, err
}

func TestFramerAllRecords(t *testing.T) {
	f := NewFramer(ResolveSeparator("newline"))

	recs, err := collect(f, "a,1\nb,2\nc,3\nd,", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a,1\n", "b,2\n", "c,3\n"}, recs)
	assert.Equal(t, 2, f.Buffered(), "partial tail stays buffered")

	recs, err = collect(f, "4\n", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"d,4\n"}, recs)
	assert.Equal(t, 0, f.Buffered())
}

func TestFramerLastOnly(t *testing.T) {
	f := NewFramer(ResolveSeparator("newline"))

	recs, err := collect(f, "1\n2\n3\n4", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"3\n"}, recs)
	assert.Equal(t, 1, f.Buffered())
}

func TestFramerNoBoundary(t *testing.T) {
	f := NewFramer(ResolveSeparator("newline"))

	recs, err := collect(f, "120.5,", false)
	assert.ErrorIs(t, err, ErrNoBoundary)
	assert.Empty(t, recs)
	assert.Equal(t, 6, f.Buffered(), "buffer is retained")

	recs, err = collect(f, "1\n", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"120.5,1\n"}, recs)
}

func TestFramerSeparatorSplitAcrossFeeds(t *testing.T) {
	f := NewFramer(ResolveSeparator("\r\n"))

	_, err := collect(f, "abc\r", false)
	assert.ErrorIs(t, err, ErrNoBoundary)

	recs, err := collect(f, "\ndef\r\n", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc\r\n", "def\r\n"}, recs)
}

func TestFramerByteAtATime(t *testing.T) {
	input := "1,2\n3,4\n5,6\n"
	f := NewFramer(ResolveSeparator("newline"))

	var got []string
	for i := 0; i < len(input); i++ {
		recs, _ := collect(f, input[i:i+1], false)
		got = append(got, recs...)
	}
	assert.Equal(t, []string{"1,2\n", "3,4\n", "5,6\n"}, got)
	assert.Zero(t, f.Buffered())
}

func TestFramerOverflow(t *testing.T) {
	f := NewFramer(ResolveSeparator("newline"))

	_, err := collect(f, string(bytes.Repeat([]byte("x"), maxBuffered+1)), false)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Zero(t, f.Buffered())

	recs, err := collect(f, "ok\n", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok\n"}, recs)
}

func TestFramerReset(t *testing.T) {
	f := NewFramer(ResolveSeparator("newline"))
	_, _ = collect(f, "partial", false)
	f.Reset()
	assert.Zero(t, f.Buffered())

	recs, err := collect(f, "fresh\n", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh\n"}, recs)
}
