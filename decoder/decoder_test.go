package decoder

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-thermo-serial/reading"
)

// scriptTransport replays chunks, then returns err (or times out forever when err is nil).
type scriptTransport struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
	closed bool
}

func (s *scriptTransport) ReadTimeout(p []byte, d time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) > 0 {
		n := copy(p, s.chunks[0])
		if n < len(s.chunks[0]) {
			s.chunks[0] = s.chunks[0][n:]
		} else {
			s.chunks = s.chunks[1:]
		}
		return n, nil
	}
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Unlock()
	time.Sleep(d)
	s.mu.Lock()
	return 0, nil
}

func (s *scriptTransport) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *scriptTransport) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

type recorder struct {
	mu       sync.Mutex
	readings []reading.Reading
	lines    []string
	ends     []error
	starts   int
}

func (r *recorder) HandleStart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
}

func (r *recorder) HandleReading(rd reading.Reading, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, rd)
	r.lines = append(r.lines, line)
}

func (r *recorder) HandleEnd(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends = append(r.ends, err)
}

func chunks(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestRun_EndOfStream(t *testing.T) {
	tr := &scriptTransport{chunks: chunks(record[:10], record[10:]+"\r", "\n"), err: io.EOF}
	rec := &recorder{}
	stats := &Stats{}
	d := &Decoder{ReadTimeout: 10 * time.Millisecond, Stats: stats}

	err := d.Run(context.Background(), tr, rec)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, []string{record}, rec.lines)
	require.Equal(t, 18.0, rec.readings[0].Temperature)
	require.Equal(t, 1, rec.starts)
	require.Len(t, rec.ends, 1)
	require.ErrorIs(t, rec.ends[0], io.EOF)

	snap := stats.Snapshot()
	require.Equal(t, uint64(len(record)+2), snap.Bytes)
	require.Equal(t, uint64(1), snap.Lines)
	require.Equal(t, uint64(1), snap.Readings)
	require.Zero(t, snap.Malformed)
}

func TestRun_MalformedLineIsSkipped(t *testing.T) {
	tr := &scriptTransport{
		chunks: chunks(record+"\n", `{"T":1,"RH":`+"\n", "garbage\r\n", record+"\n"),
		err:    io.EOF,
	}
	rec := &recorder{}
	stats := &Stats{}
	d := &Decoder{ReadTimeout: 10 * time.Millisecond, Stats: stats}

	require.Error(t, d.Run(context.Background(), tr, rec))
	require.Len(t, rec.readings, 2)
	require.Equal(t, uint64(2), stats.Snapshot().Malformed)
	require.Equal(t, uint64(4), stats.Snapshot().Lines)
}

func TestRun_InvalidUTF8IsSkipped(t *testing.T) {
	tr := &scriptTransport{chunks: [][]byte{{'{', 0xc3}, {'}', '\n'}, []byte(record + "\n")}, err: io.EOF}
	rec := &recorder{}

	require.Error(t, (&Decoder{}).Run(context.Background(), tr, rec))
	require.Equal(t, []string{record}, rec.lines)
}

func TestRun_SmallChunkSize(t *testing.T) {
	tr := &scriptTransport{chunks: chunks(record + "\n" + record + "\n"), err: io.EOF}
	rec := &recorder{}

	require.Error(t, (&Decoder{ChunkSize: 3}).Run(context.Background(), tr, rec))
	require.Equal(t, []string{record, record}, rec.lines)
}

func TestRun_PartialTrailingLineNotEmitted(t *testing.T) {
	tr := &scriptTransport{chunks: chunks(record), err: errors.New("device gone")}
	rec := &recorder{}

	err := (&Decoder{}).Run(context.Background(), tr, rec)
	require.EqualError(t, err, "read: device gone")
	require.Empty(t, rec.lines)
	require.Len(t, rec.ends, 1)
}

func TestRun_Cancellation(t *testing.T) {
	tr := &scriptTransport{}
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- (&Decoder{ReadTimeout: 20 * time.Millisecond}).Run(ctx, tr, rec) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.Equal(t, 1, rec.starts)
	require.Len(t, rec.ends, 1)
	require.ErrorIs(t, rec.ends[0], context.Canceled)
}

func TestRun_TransportClosed(t *testing.T) {
	tr := &scriptTransport{}
	rec := &recorder{}

	done := make(chan error, 1)
	go func() { done <- (&Decoder{ReadTimeout: 10 * time.Millisecond}).Run(context.Background(), tr, rec) }()

	time.Sleep(20 * time.Millisecond)
	tr.Close()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrTransportClosed)
	case <-time.After(time.Second):
		t.Fatal("Run did not notice closed transport")
	}
}
