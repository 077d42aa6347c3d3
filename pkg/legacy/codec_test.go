package legacy

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Send(&buf, Connected(7)))
	require.NoError(t, Send(&buf, Idle(3)))
	require.NoError(t, Send(&buf, Hello("salut")))

	r := NewReader(&buf)

	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Connected(7), got)

	got, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, Idle(3), got)

	got, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, Hello("salut"), got)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderHandlesFinalLineWithoutTrailingNewline(t *testing.T) {
	buf := bytes.NewBufferString(`{"kind":"Ping"}`)
	r := NewReader(buf)

	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Ping(), got)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestMessageString(t *testing.T) {
	assert.Equal(t, "Connect(5)", Connect(5).String())
	assert.Equal(t, "Vote(2)", Vote(2).String())
	assert.Equal(t, `Hello("hi")`, Hello("hi").String())
	assert.Equal(t, "Ping", Ping().String())
}
