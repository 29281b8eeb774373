// Package nativemsg implements the browser native-messaging framing: every
// message is JSON preceded by its length as a 32-bit little-endian integer.
package nativemsg

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.lsp.dev/jsonrpc2"
)

const (
	// MaxOutbound is the largest message a host may send to the browser.
	MaxOutbound = 1 << 20
	// MaxInbound caps messages accepted from the browser.
	MaxInbound = 64 << 20
)

// ErrMessageTooLarge indicates a frame exceeds the size limit.
var ErrMessageTooLarge = errors.New("native message too large")

// ReadFrame reads one length-prefixed frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if size > MaxInbound {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return data, nil
}

// WriteFrame writes data as one length-prefixed frame.
func WriteFrame(w io.Writer, data []byte) (int64, error) {
	if len(data) > MaxOutbound {
		return 0, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}
	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(data)))
	copy(buf[4:], data)
	n, err := w.Write(buf)
	return int64(n), err
}

type stream struct {
	in     *bufio.Reader
	out    io.Writer
	closer io.Closer
	wmu    sync.Mutex
}

// NewStream returns a jsonrpc2 stream using native-messaging framing.
func NewStream(rwc io.ReadWriteCloser) jsonrpc2.Stream {
	return &stream{
		in:     bufio.NewReader(rwc),
		out:    rwc,
		closer: rwc,
	}
}

func (s *stream) Read(ctx context.Context) (jsonrpc2.Message, int64, error) {
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	default:
	}
	data, err := ReadFrame(s.in)
	if err != nil {
		return nil, 0, err
	}
	msg, err := jsonrpc2.DecodeMessage(data)
	return msg, int64(len(data)) + 4, err
}

func (s *stream) Write(ctx context.Context, msg jsonrpc2.Message) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("marshaling message: %w", err)
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return WriteFrame(s.out, data)
}

func (s *stream) Close() error {
	return s.closer.Close()
}

// Stdio joins a reader and writer into the ReadWriteCloser NewStream expects.
// Close is a no-op so the process streams stay open.
func Stdio(r io.Reader, w io.Writer) io.ReadWriteCloser {
	return &stdio{read: r, write: w}
}

type stdio struct {
	read  io.Reader
	write io.Writer
}

func (s *stdio) Read(p []byte) (int, error) {
	return s.read.Read(p)
}

func (s *stdio) Write(p []byte) (int, error) {
	return s.write.Write(p)
}

func (s *stdio) Close() error {
	return nil
}
