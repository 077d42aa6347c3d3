package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/cuemby/balthazar/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	want := ManagerRequestMsg{Specs: types.WorkerSpecs{CPUCount: 4, Memory: 1024}}

	env, err := NewEnvelope(KindManagerRequest, want)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteEnvelope(&buf, env))

	got, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, env.Kind, got.Kind)
	assert.Equal(t, env.CorrelationID, got.CorrelationID)

	var msg ManagerRequestMsg
	require.NoError(t, Decode(got, &msg))
	assert.Equal(t, want, msg)
}

func TestReplyEchoesCorrelationID(t *testing.T) {
	req, err := NewEnvelope(KindNodeTypeRequest, NodeTypeRequestMsg{})
	require.NoError(t, err)

	reply, err := Reply(req, KindNodeTypeAnswer, NodeTypeAnswerMsg{NodeType: types.ManagerNodeType()})
	require.NoError(t, err)
	assert.Equal(t, req.CorrelationID, reply.CorrelationID)
}

func TestReadEnvelopeEOFOnEmptyStream(t *testing.T) {
	_, err := ReadEnvelope(bytes.NewReader(nil))
	assert.Equal(t, io.EOF, err)
}

func TestReadEnvelopeRejectsOversizedLength(t *testing.T) {
	var frame [5]byte
	frame[0] = byte(KindTaskStatus)
	frame[1], frame[2], frame[3], frame[4] = 0xff, 0xff, 0xff, 0xff // declares ~4GiB

	_, err := ReadEnvelope(bytes.NewReader(frame[:]))
	require.Error(t, err)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, KindTaskStatus, protoErr.Kind)
}

func TestMultipleFramesOnSameStream(t *testing.T) {
	var buf bytes.Buffer
	first, err := NewEnvelope(KindTaskStatus, TaskStatusMsg{PeerID: "p1"})
	require.NoError(t, err)
	second, err := NewEnvelope(KindTaskStatus, TaskStatusMsg{PeerID: "p2"})
	require.NoError(t, err)

	require.NoError(t, WriteEnvelope(&buf, first))
	require.NoError(t, WriteEnvelope(&buf, second))

	got1, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	var msg1 TaskStatusMsg
	require.NoError(t, Decode(got1, &msg1))
	assert.Equal(t, "p1", msg1.PeerID)

	got2, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	var msg2 TaskStatusMsg
	require.NoError(t, Decode(got2, &msg2))
	assert.Equal(t, "p2", msg2.PeerID)
}
