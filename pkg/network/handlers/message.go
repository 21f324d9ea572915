package handlers

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize caps the content length a peer may announce. Commands are
// bounded by the field limits and stay far below it.
const MaxMessageSize = 1 << 16

var ErrMessageTooLarge = errors.New("message too large")

// Message is one framed protocol message: a little-endian uint32 size
// followed by that many content bytes.
type Message struct {
	Size    uint32
	Content []byte
}

// WriteMessageWithContext writes content as one framed message. The write
// is abandoned when ctx is cancelled.
func WriteMessageWithContext(ctx context.Context, w io.Writer, content []byte) error {
	if len(content) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(content))
	}

	done := make(chan error, 1)
	go func() {
		var size [4]byte
		binary.LittleEndian.PutUint32(size[:], uint32(len(content)))
		if _, err := w.Write(size[:]); err != nil {
			done <- fmt.Errorf("failed to write message size: %w", err)
			return
		}
		if _, err := w.Write(content); err != nil {
			done <- fmt.Errorf("failed to write message content: %w", err)
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

type readResult struct {
	msg *Message
	err error
}

// ReadMessageWithContext reads one framed message. Sizes above
// MaxMessageSize are rejected before any content is read.
func ReadMessageWithContext(ctx context.Context, r io.Reader) (*Message, error) {
	done := make(chan readResult, 1)
	go func() {
		var size [4]byte
		if _, err := io.ReadFull(r, size[:]); err != nil {
			done <- readResult{err: fmt.Errorf("failed to read message size: %w", err)}
			return
		}
		n := binary.LittleEndian.Uint32(size[:])
		if n > MaxMessageSize {
			done <- readResult{err: fmt.Errorf("%w: peer announced %d bytes", ErrMessageTooLarge, n)}
			return
		}

		content := make([]byte, n)
		if _, err := io.ReadFull(r, content); err != nil {
			done <- readResult{err: fmt.Errorf("failed to read message content: %w", err)}
			return
		}
		done <- readResult{msg: &Message{Size: n, Content: content}}
	}()

	select {
	case res := <-done:
		return res.msg, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
