package legacy

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loopback struct {
	toClient bytes.Buffer
	toServer bytes.Buffer
}

func (l *loopback) client() io.ReadWriter { return rwPair{read: &l.toClient, write: &l.toServer} }
func (l *loopback) server() io.ReadWriter { return rwPair{read: &l.toServer, write: &l.toClient} }

type rwPair struct {
	read  io.Reader
	write io.Writer
}

func (p rwPair) Read(b []byte) (int, error)  { return p.read.Read(b) }
func (p rwPair) Write(b []byte) (int, error) { return p.write.Write(b) }

func TestHandshakeRoundTrip(t *testing.T) {
	lb := &loopback{}
	require.NoError(t, Accept(lb.server(), 42))

	id, err := Dial(lb.client(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	msg, err := NewReader(&lb.toServer).Next()
	require.NoError(t, err)
	assert.Equal(t, Idle(3), msg)
}
