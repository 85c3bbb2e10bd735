package docserver

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds the content of a single frame.
const MaxFrameSize = 16 << 20

// WriteFrame writes content prefixed with its size as a little-endian uint32.
// The write can be cancelled via ctx.
func WriteFrame(ctx context.Context, w io.Writer, content []byte) error {
	if len(content) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(content))
	}
	done := make(chan error, 1)
	go func() {
		size := uint32(len(content))

		if err := binary.Write(w, binary.LittleEndian, size); err != nil {
			done <- fmt.Errorf("failed to write frame size: %w", err)
			return
		}

		if _, err := w.Write(content); err != nil {
			done <- fmt.Errorf("failed to write frame content: %w", err)
			return
		}

		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type frameResult struct {
	content []byte
	err     error
}

// ReadFrame reads one frame written by WriteFrame. The read can be cancelled
// via ctx.
func ReadFrame(ctx context.Context, r io.Reader) ([]byte, error) {
	done := make(chan frameResult, 1)

	go func() {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			done <- frameResult{err: fmt.Errorf("failed to read frame size: %w", err)}
			return
		}
		if size > MaxFrameSize {
			done <- frameResult{err: fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)}
			return
		}

		content := make([]byte, size)
		if _, err := io.ReadFull(r, content); err != nil {
			done <- frameResult{err: fmt.Errorf("failed to read frame content: %w", err)}
			return
		}
		done <- frameResult{content: content}
	}()

	select {
	case result := <-done:
		return result.content, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
