package link

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcplink/pkg/slip"
)

type testStream struct {
	reader  *io.PipeReader
	feeder  *io.PipeWriter
	writeCh chan byte
}

func newTestStream() *testStream {
	r, w := io.Pipe()
	return &testStream{reader: r, feeder: w, writeCh: make(chan byte, 1024)}
}

func (s *testStream) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *testStream) Write(p []byte) (int, error) {
	for _, b := range p {
		s.writeCh <- b
	}
	return len(p), nil
}

func (s *testStream) inject(t *testing.T, p []byte) {
	_, err := s.feeder.Write(p)
	require.NoError(t, err)
}

func (s *testStream) expect(t *testing.T, expect []byte) {
	for n := range expect {
		select {
		case b := <-s.writeCh:
			require.Equalf(t, expect[n], b, "expect[%d] mismatch", n)
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("expect[%d] timeout", n)
		}
	}
}

func TestLinkRun(t *testing.T) {
	stream := newTestStream()
	l := New(stream, DispatchFunc(func(req, resp []byte) (int, error) {
		if req[0] == 0x00 {
			return 0, ErrUnknownCommand
		}
		return copy(resp, req), nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	stream.inject(t, []byte{0x13, 0x37})
	stream.inject(t, reply(0x41, 0x42))
	stream.expect(t, reply(0x41, 0x42))

	// frame split across reads.
	frame := reply(0x01, slip.END, 0x02)
	stream.inject(t, frame[:4])
	stream.inject(t, frame[4:])
	stream.expect(t, frame)

	stream.inject(t, reply(0x00))
	stream.expect(t, errorFrame(CodeDispatchFailed))

	stream.inject(t, []byte{slip.END, 0x41, 0x42, 0x00, slip.END})
	stream.expect(t, errorFrame(CodeBadChecksum))

	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("Run doesn't stop")
	}
	require.Equal(t, uint64(4), l.Decoder().Stats().Frames)
}

func TestLinkRunEOF(t *testing.T) {
	stream := newTestStream()
	l := New(stream, DispatchFunc(func(req, resp []byte) (int, error) { return 0, nil }))
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(context.Background()) }()
	stream.feeder.Close()
	select {
	case err := <-errCh:
		require.Equal(t, io.EOF, err)
	case <-time.After(time.Second):
		t.Fatal("Run doesn't stop")
	}
}

type timeoutError struct{}

func (timeoutError) Error() string { return "timeout" }
func (timeoutError) Timeout() bool { return true }

type pollStream struct {
	lock   sync.Mutex
	chunks [][]byte
	out    []byte
	polls  int
}

func (s *pollStream) Read(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.polls++
	if len(s.chunks) == 0 {
		if s.polls%2 == 0 {
			return 0, timeoutError{}
		}
		return 0, nil
	}
	n := copy(p, s.chunks[0])
	s.chunks = s.chunks[1:]
	return n, nil
}

func (s *pollStream) Write(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.out = append(s.out, p...)
	return len(p), nil
}

func (s *pollStream) output() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]byte(nil), s.out...)
}

func TestLinkRunReadTimeout(t *testing.T) {
	stream := &pollStream{chunks: [][]byte{reply(0x41), reply(0x42)}}
	l := New(stream, DispatchFunc(func(req, resp []byte) (int, error) {
		resp[0] = req[0] + 1
		return 1, nil
	}))
	l.ReadTimeout = true

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	expect := append(reply(0x42), reply(0x43)...)
	require.Eventually(t, func() bool {
		return len(stream.output()) >= len(expect)
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, expect, stream.output())

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

type brokenWriter struct {
	io.Reader
}

var errBroken = errors.New("broken")

func (brokenWriter) Write([]byte) (int, error) { return 0, errBroken }

func TestLinkFeedWriteError(t *testing.T) {
	l := New(brokenWriter{}, DispatchFunc(func(req, resp []byte) (int, error) { return 0, nil }))
	require.Equal(t, errBroken, l.Feed(reply(0x01)))
	l.Reset()
	require.Equal(t, slip.StateIdle, l.Decoder().State())
	require.NoError(t, l.Feed([]byte{slip.END, 0x01}))
}

type lastChunkStream struct {
	chunk []byte
	out   bytes.Buffer
}

func (s *lastChunkStream) Read(p []byte) (int, error) {
	n := copy(p, s.chunk)
	s.chunk = s.chunk[n:]
	return n, io.EOF
}

func (s *lastChunkStream) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func TestLinkRunAnswersFrameBeforeEOF(t *testing.T) {
	for _, readTimeout := range []bool{false, true} {
		stream := &lastChunkStream{chunk: reply(0x41)}
		l := New(stream, DispatchFunc(func(req, resp []byte) (int, error) {
			resp[0] = req[0] + 1
			return 1, nil
		}))
		l.ReadTimeout = readTimeout
		require.Equal(t, io.EOF, l.Run(context.Background()), "ReadTimeout=%v", readTimeout)
		require.Equal(t, reply(0x42), stream.out.Bytes(), "ReadTimeout=%v", readTimeout)
	}
}
