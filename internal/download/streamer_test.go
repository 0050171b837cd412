package download_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/bandcamp-free-downloader/internal/download"
)

// chunkedBody returns its data n bytes per Read.
type chunkedBody struct {
	data []byte
	n    int
	err  error
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if len(b.data) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[:min(b.n, len(b.data))])
	b.data = b.data[n:]
	return n, nil
}

func (b *chunkedBody) Close() error { return nil }

type fakeOpener struct {
	resp  *http.Response
	err   error
	calls int
}

func (o *fakeOpener) Open(context.Context, string) (*http.Response, error) {
	o.calls++
	return o.resp, o.err
}

func okResponse(body io.ReadCloser, length int64) *http.Response {
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		ContentLength: length,
		Body:          body,
	}
}

func TestStreamer_Stream(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("0123456789"), 100)
	opener := &fakeOpener{resp: okResponse(&chunkedBody{data: bytes.Clone(data), n: 100}, int64(len(data)))}
	dest := filepath.Join(t.TempDir(), "a.flac")

	var progress []int64
	err := download.NewStreamer(opener, download.WithQueueSize(2)).Stream(context.Background(), "https://cdn/a", dest, func(received, total int64) {
		assert.Equal(t, int64(1000), total)
		progress = append(progress, received)
	})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	assert.Equal(t, []int64{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000}, progress)
}

func TestStreamer_ProgressCappedAtTotal(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{resp: okResponse(&chunkedBody{data: make([]byte, 300), n: 100}, 250)}
	dest := filepath.Join(t.TempDir(), "a.flac")

	var progress []int64
	err := download.NewStreamer(opener).Stream(context.Background(), "https://cdn/a", dest, func(received, _ int64) {
		progress = append(progress, received)
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200, 250}, progress)
}

func TestStreamer_ExistingDestination(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "a.zip")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))
	opener := &fakeOpener{}

	err := download.NewStreamer(opener).Stream(context.Background(), "https://cdn/a", dest, nil)

	assert.ErrorIs(t, err, download.ErrAlreadyExists)
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Zero(t, opener.calls)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestStreamer_PreTransferFailuresRemoveFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		opener *fakeOpener
		want   error
	}{
		{
			name:   "unknown length",
			opener: &fakeOpener{resp: okResponse(io.NopCloser(strings.NewReader("abc")), -1)},
			want:   download.ErrMissingContentLength,
		},
		{
			name: "not found",
			opener: &fakeOpener{resp: &http.Response{
				StatusCode: http.StatusNotFound,
				Status:     "404 Not Found",
				Body:       io.NopCloser(strings.NewReader("")),
			}},
			want: download.ErrUnexpectedStatus,
		},
		{
			name:   "transport error",
			opener: &fakeOpener{err: errors.New("dial tcp: refused")},
			want:   download.ErrTransfer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dest := filepath.Join(t.TempDir(), "a.zip")
			err := download.NewStreamer(tt.opener).Stream(context.Background(), "https://cdn/a", dest, nil)

			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, download.ErrTransfer)
			assert.NoFileExists(t, dest)
		})
	}
}

func TestStreamer_MidTransferFailureKeepsPartialFile(t *testing.T) {
	t.Parallel()

	body := &chunkedBody{data: make([]byte, 200), n: 100, err: errors.New("connection reset")}
	opener := &fakeOpener{resp: okResponse(body, 1000)}
	dest := filepath.Join(t.TempDir(), "a.zip")

	err := download.NewStreamer(opener).Stream(context.Background(), "https://cdn/a", dest, nil)
	assert.ErrorIs(t, err, download.ErrTransfer)
	assert.ErrorContains(t, err, "connection reset")
	assert.NotErrorIs(t, err, download.ErrShortTransfer)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, int64(200), info.Size())
}

func TestStreamer_ShortBody(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{resp: okResponse(&chunkedBody{data: make([]byte, 500), n: 100}, 1000)}
	dest := filepath.Join(t.TempDir(), "a.zip")

	err := download.NewStreamer(opener).Stream(context.Background(), "https://cdn/a", dest, nil)
	assert.ErrorIs(t, err, download.ErrShortTransfer)
	assert.FileExists(t, dest)
}

func TestStreamer_CancelledIsNotTransferError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opener := &fakeOpener{err: context.Canceled}
	dest := filepath.Join(t.TempDir(), "a.zip")

	err := download.NewStreamer(opener).Stream(ctx, "https://cdn/a", dest, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, download.ErrTransfer)
	assert.NoFileExists(t, dest)
}

// countingBody serves size bytes chunk bytes per Read and counts the reads
// that returned data.
type countingBody struct {
	size  int
	chunk int
	reads atomic.Int32
}

func (b *countingBody) Read(p []byte) (int, error) {
	if b.size == 0 {
		return 0, io.EOF
	}
	n := min(len(p), b.chunk, b.size)
	for i := range n {
		p[i] = 'x'
	}
	b.size -= n
	b.reads.Add(1)
	return n, nil
}

// gatedWriter blocks every Write until release is closed.
type gatedWriter struct {
	release chan struct{}
	mu      sync.Mutex
	buf     bytes.Buffer
}

func (w *gatedWriter) Write(p []byte) (int, error) {
	<-w.release
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *gatedWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Len()
}

func TestStreamer_QueueBoundsReadAhead(t *testing.T) {
	t.Parallel()

	const queueSize = 1
	body := &countingBody{size: 200, chunk: 10}
	w := &gatedWriter{release: make(chan struct{})}
	s := download.NewStreamer(nil, download.WithQueueSize(queueSize), download.WithChunkSize(10))

	done := make(chan error, 1)
	go func() {
		done <- s.TransferTo(context.Background(), body, w, 200, nil)
	}()

	// One chunk held by the blocked writer, queueSize queued, one waiting to
	// be queued.
	limit := int32(queueSize + 2)
	require.Eventually(t, func() bool { return body.reads.Load() == limit }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, limit, body.reads.Load())
	assert.Zero(t, w.Len())

	close(w.release)
	require.NoError(t, <-done)
	assert.Equal(t, 200, w.Len())
	assert.Equal(t, int32(20), body.reads.Load())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("no space left on device") }

func TestStreamer_WriteFailure(t *testing.T) {
	t.Parallel()

	body := &countingBody{size: 100, chunk: 10}
	err := download.NewStreamer(nil, download.WithChunkSize(10)).TransferTo(context.Background(), body, failingWriter{}, 100, nil)

	assert.ErrorIs(t, err, download.ErrTransfer)
	assert.ErrorContains(t, err, "no space left on device")
}
