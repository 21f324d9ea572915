package testutils

import (
	"bytes"
	"context"
	"time"

	"github.com/quic-go/quic-go"
)

// MockStream is an in-memory quic.Stream. Reads drain In, writes append to Out.
type MockStream struct {
	In            *bytes.Buffer
	Out           *bytes.Buffer
	CloseCalled   bool
	CanceledRead  bool
	CanceledWrite bool
	Deadline      time.Time
}

// NewMockStream returns a stream whose reads return input.
func NewMockStream(input []byte) *MockStream {
	return &MockStream{
		In:  bytes.NewBuffer(input),
		Out: new(bytes.Buffer),
	}
}

func (s *MockStream) StreamID() quic.StreamID {
	return 1
}

func (s *MockStream) Read(p []byte) (int, error) {
	return s.In.Read(p)
}

func (s *MockStream) Write(p []byte) (int, error) {
	return s.Out.Write(p)
}

func (s *MockStream) Close() error {
	s.CloseCalled = true
	return nil
}

func (s *MockStream) CancelRead(quic.StreamErrorCode) {
	s.CanceledRead = true
}

func (s *MockStream) CancelWrite(quic.StreamErrorCode) {
	s.CanceledWrite = true
}

func (s *MockStream) Context() context.Context {
	return context.Background()
}

func (s *MockStream) SetDeadline(t time.Time) error {
	s.Deadline = t
	return nil
}

func (s *MockStream) SetReadDeadline(t time.Time) error {
	s.Deadline = t
	return nil
}

func (s *MockStream) SetWriteDeadline(t time.Time) error {
	s.Deadline = t
	return nil
}
