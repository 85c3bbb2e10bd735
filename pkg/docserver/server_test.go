package docserver

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/ubjson/pkg/db/pebble"
	"github.com/eigerco/ubjson/pkg/docstore"
	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

func startServer(t *testing.T) string {
	t.Helper()
	kv, err := pebble.NewKVStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	socketPath := filepath.Join(t.TempDir(), "doc.sock")
	s := NewServer(socketPath, docstore.New(kv), PeerInfo{Name: "docserver", Version: Version{0, 1, 0}})
	require.NoError(t, s.Listen())

	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background()) }()
	t.Cleanup(func() {
		require.NoError(t, s.Stop())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return socketPath
}

func TestServerSession(t *testing.T) {
	socketPath := startServer(t)
	ctx := context.Background()

	c, err := Dial(ctx, socketPath, PeerInfo{Name: "test", Version: Version{1, 0, 0}})
	require.NoError(t, err)
	defer c.Close() //nolint:errcheck

	assert.Equal(t, "docserver", c.Server.Name)
	assert.Equal(t, "0.1.0", c.Server.Version.String())

	doc := ubjson.NewObject(
		ubjson.Entry{Key: "name", Value: ubjson.NewString("ada")},
		ubjson.Entry{Key: "tags", Value: ubjson.NewArray(ubjson.NewChar('x'))},
	)
	require.NoError(t, c.Put(ctx, "users/ada", doc))

	got, err := c.Get(ctx, "users/ada")
	require.NoError(t, err)
	assert.True(t, doc.Equal(got), "got %s", got)

	require.NoError(t, c.Copy(ctx, "users/ada", "users/lovelace"))
	keys, err := c.List(ctx, "users/")
	require.NoError(t, err)
	assert.Equal(t, []string{"users/ada", "users/lovelace"}, keys)

	require.NoError(t, c.Delete(ctx, "users/ada"))
	_, err = c.Get(ctx, "users/ada")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Msg, "not found")

	keys, err = c.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"users/lovelace"}, keys)
}

func TestServerRequiresHandshake(t *testing.T) {
	socketPath := startServer(t)
	ctx := context.Background()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	req, err := ubjson.Marshal(NewMessage(Get("k")))
	require.NoError(t, err)
	require.NoError(t, WriteFrame(ctx, conn, req))

	content, err := ReadFrame(ctx, conn)
	require.NoError(t, err)
	resp := &Message{}
	require.NoError(t, ubjson.Unmarshal(content, resp))
	assert.Equal(t, NewMessage(Error(ErrHandshake.Error())), resp)

	// Garbage is answered with an error, the session stays open.
	require.NoError(t, WriteFrame(ctx, conn, []byte{'[', '#'}))
	content, err = ReadFrame(ctx, conn)
	require.NoError(t, err)
	require.NoError(t, ubjson.Unmarshal(content, resp))
	_, isErr := resp.Get().(Error)
	assert.True(t, isErr)
}

func TestServerStopWithoutListen(t *testing.T) {
	s := NewServer(filepath.Join(t.TempDir(), "x.sock"), nil, PeerInfo{})
	assert.NoError(t, s.Stop())
	assert.Error(t, s.Serve(context.Background()))
}

func TestServerStopClosesIdleSessions(t *testing.T) {
	kv, err := pebble.NewKVStore("")
	require.NoError(t, err)
	defer kv.Close() //nolint:errcheck

	socketPath := filepath.Join(t.TempDir(), "idle.sock")
	s := NewServer(socketPath, docstore.New(kv), PeerInfo{Name: "docserver"})
	require.NoError(t, s.Listen())

	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background()) }()

	ctx := context.Background()
	c, err := Dial(ctx, socketPath, PeerInfo{Name: "idle"})
	require.NoError(t, err)
	defer c.Close() //nolint:errcheck

	require.NoError(t, s.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve still running with an idle session")
	}

	_, err = c.List(ctx, "")
	assert.Error(t, err)
}
