//go:build linux

package ipsc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestLoop_DispatchesDataEventsAndEchoesBytes(t *testing.T) {
	l, err := Listen(47301, 4)
	require.NoError(t, err)
	defer l.Close()

	loop, err := NewLoop(l, nil)
	require.NoError(t, err)
	defer loop.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan string, 1)
	go func() {
		loop.Run(ctx, func(conn *Connection) error {
			buf := make([]byte, 64)
			n, err := conn.RecvTimeout(buf, 0)
			if err != nil {
				return err
			}
			received <- string(buf[:n])
			return nil
		})
	}()

	// Give the loop a moment to register the listener before dialing.
	time.Sleep(50 * time.Millisecond)

	client, err := Connect(47301)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.SendAll([]byte("hello")))

	select {
	case msg := <-received:
		require.Equal(t, "hello", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event loop to dispatch the data event")
	}
}

func TestLoop_ClosesConnectionOnHandlerError(t *testing.T) {
	l, err := Listen(47302, 4)
	require.NoError(t, err)
	defer l.Close()

	loop, err := NewLoop(l, nil)
	require.NoError(t, err)
	defer loop.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		loop.Run(ctx, func(conn *Connection) error {
			return errBoom
		})
	}()

	time.Sleep(50 * time.Millisecond)

	client, err := Connect(47302)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.SendAll([]byte("x")))

	// The server side closes the connection after the handler errors;
	// eventually the client sees EOF/connection-reset on a read.
	buf := make([]byte, 16)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := client.RecvTimeout(buf, 100)
		if err != nil || n == 0 {
			return
		}
	}
	t.Fatal("expected the connection to be closed after the handler returned an error")
}
