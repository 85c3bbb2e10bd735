package docserver

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowWriter fails or stalls on demand.
type slowWriter struct {
	buffer     bytes.Buffer
	failSize   bool
	failWrite  bool
	writeDelay time.Duration
	writes     int
}

func (m *slowWriter) Write(p []byte) (int, error) {
	m.writes++
	if m.writes == 1 && m.failSize {
		return 0, errors.New("mock size write error")
	}
	if m.writes == 2 && m.failWrite {
		return 0, errors.New("mock content write error")
	}
	if m.writeDelay > 0 {
		time.Sleep(m.writeDelay)
	}
	return m.buffer.Write(p)
}

type slowReader struct {
	buffer    *bytes.Buffer
	readDelay time.Duration
}

func (m *slowReader) Read(p []byte) (int, error) {
	time.Sleep(m.readDelay)
	return m.buffer.Read(p)
}

func TestWriteFrame(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		var buffer bytes.Buffer
		require.NoError(t, WriteFrame(context.Background(), &buffer, []byte("test message")))
		assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(buffer.Bytes()[:4]))
		assert.Equal(t, []byte("test message"), buffer.Bytes()[4:])
	})

	t.Run("write size error", func(t *testing.T) {
		err := WriteFrame(context.Background(), &slowWriter{failSize: true}, []byte("x"))
		assert.ErrorContains(t, err, "failed to write frame size")
	})

	t.Run("write content error", func(t *testing.T) {
		err := WriteFrame(context.Background(), &slowWriter{failWrite: true}, []byte("x"))
		assert.ErrorContains(t, err, "failed to write frame content")
	})

	t.Run("too large", func(t *testing.T) {
		err := WriteFrame(context.Background(), &slowWriter{}, make([]byte, MaxFrameSize+1))
		assert.ErrorIs(t, err, ErrFrameTooLarge)
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		err := WriteFrame(ctx, &slowWriter{writeDelay: 200 * time.Millisecond}, []byte("x"))
		assert.Equal(t, context.Canceled, err)
	})
}

func TestReadFrame(t *testing.T) {
	frame := func(size uint32, content []byte) *bytes.Buffer {
		var buffer bytes.Buffer
		require.NoError(t, binary.Write(&buffer, binary.LittleEndian, size))
		buffer.Write(content)
		return &buffer
	}

	t.Run("successful read", func(t *testing.T) {
		content, err := ReadFrame(context.Background(), frame(4, []byte("test")))
		require.NoError(t, err)
		assert.Equal(t, []byte("test"), content)
	})

	t.Run("zero size", func(t *testing.T) {
		content, err := ReadFrame(context.Background(), frame(0, nil))
		require.NoError(t, err)
		assert.Equal(t, []byte{}, content)
	})

	t.Run("read size error", func(t *testing.T) {
		_, err := ReadFrame(context.Background(), &bytes.Buffer{})
		assert.ErrorContains(t, err, "failed to read frame size")
	})

	t.Run("partial read", func(t *testing.T) {
		_, err := ReadFrame(context.Background(), frame(10, []byte("hello")))
		assert.ErrorContains(t, err, "failed to read frame content")
	})

	t.Run("too large", func(t *testing.T) {
		_, err := ReadFrame(context.Background(), frame(MaxFrameSize+1, nil))
		assert.ErrorIs(t, err, ErrFrameTooLarge)
	})

	t.Run("timeout context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := ReadFrame(ctx, &slowReader{buffer: frame(1, []byte("x")), readDelay: 200 * time.Millisecond})
		assert.Equal(t, context.DeadlineExceeded, err)
	})

	t.Run("multiple frames", func(t *testing.T) {
		var buffer bytes.Buffer
		frames := [][]byte{[]byte("first"), []byte("second"), []byte("third with more")}
		for _, f := range frames {
			require.NoError(t, WriteFrame(context.Background(), &buffer, f))
		}
		for _, f := range frames {
			content, err := ReadFrame(context.Background(), &buffer)
			require.NoError(t, err)
			assert.Equal(t, f, content)
		}
		assert.Equal(t, 0, buffer.Len())
	})
}
