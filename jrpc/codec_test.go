package jrpc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// fakeReceiver replays a fixed sequence of reads, one []byte chunk per
// call, then returns n=0 (orderly EOF-equivalent) forever after.
type fakeReceiver struct {
	chunks [][]byte
	i      int
}

func (f *fakeReceiver) RecvTimeout(buf []byte, timeoutMs int) (int, error) {
	if f.i >= len(f.chunks) {
		return 0, nil
	}
	chunk := f.chunks[f.i]
	f.i++
	n := copy(buf, chunk)
	return n, nil
}

type fakeSender struct {
	sent []byte
	err  error
}

func (f *fakeSender) SendAll(buf []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, buf...)
	return nil
}

func TestDecode_SingleChunk(t *testing.T) {
	r := &fakeReceiver{chunks: [][]byte{[]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)}}
	raw, err := Decode(r, 1000)
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(raw))
}

func TestDecode_MultipleChunksAssembled(t *testing.T) {
	r := &fakeReceiver{chunks: [][]byte{
		[]byte(`{"jsonrpc":"2.0",`),
		[]byte(`"id":1,"method":"ping"}`),
	}}
	raw, err := Decode(r, 1000)
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(raw))
}

func TestDecode_EmptyReadIsError(t *testing.T) {
	r := &fakeReceiver{chunks: nil}
	_, err := Decode(r, 1000)
	require.ErrorIs(t, err, ErrEmptyRead)
}

func TestDecode_InvalidJSONIsError(t *testing.T) {
	r := &fakeReceiver{chunks: [][]byte{[]byte(`not json at all`)}}
	_, err := Decode(r, 1000)
	require.ErrorIs(t, err, ErrDecode)
}

func TestEncode_RoundTripsThroughSender(t *testing.T) {
	s := &fakeSender{}
	reply := NewResult(Strict, []byte("1"), []byte(`"pong"`))
	require.NoError(t, Encode(s, reply))
	require.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":"pong"}`, string(s.sent))
}

func TestEncode_PropagatesSendFailure(t *testing.T) {
	s := &fakeSender{err: errBoom}
	err := Encode(s, NewResult(Strict, []byte("1"), []byte(`"pong"`)))
	require.ErrorIs(t, err, errBoom)
}
