package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	ioutils "github.com/handiism/bandcamp-free-downloader/internal/io"
)

const (
	// DefaultQueueSize is the number of chunks buffered between the network
	// and the disk.
	DefaultQueueSize = 16

	// DefaultChunkSize is the largest chunk read from the network at once.
	DefaultChunkSize = 32 * 1024
)

// Opener issues a streaming GET request.
type Opener interface {
	Open(ctx context.Context, rawURL string) (*http.Response, error)
}

// Streamer writes a remote asset to a new file.
//
// One goroutine reads the response body and one writes to disk. They are
// connected by a bounded queue, so a slow disk throttles the download
// instead of buffering it in memory.
//
// Example:
//
//	streamer := NewStreamer(httpClient)
//	err := streamer.Stream(ctx, assetURL, "/music/Label/2022-01-30 - Artist - Name.zip",
//	    func(received, total int64) {
//	        fmt.Printf("%d / %d bytes\n", received, total)
//	    })
//	if errors.Is(err, ErrAlreadyExists) {
//	    // nothing was requested
//	}
type Streamer struct {
	http      Opener
	queueSize int
	chunkSize int
	logger    zerolog.Logger
}

// StreamerOption configures a Streamer.
type StreamerOption func(*Streamer)

// WithQueueSize sets the number of chunks buffered between the reader and
// the writer.
func WithQueueSize(n int) StreamerOption {
	return func(s *Streamer) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithChunkSize sets the read buffer size.
func WithChunkSize(n int) StreamerOption {
	return func(s *Streamer) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithStreamerLogger sets the logger.
func WithStreamerLogger(logger zerolog.Logger) StreamerOption {
	return func(s *Streamer) { s.logger = logger }
}

// NewStreamer creates a Streamer requesting assets through http.
func NewStreamer(http Opener, opts ...StreamerOption) *Streamer {
	s := &Streamer{
		http:      http,
		queueSize: DefaultQueueSize,
		chunkSize: DefaultChunkSize,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream downloads assetURL into dest, which must not exist.
//
// The destination is created before any request is made; if it is taken the
// error wraps ErrAlreadyExists and nothing is requested. If the server
// refuses the request or does not announce a length, the empty file is
// removed again. Once bytes have been written, a failure leaves the partial
// file in place.
//
// Network and disk failures wrap ErrTransfer like every other failure past
// the existence check, unless ctx was cancelled.
//
// onProgress, if not nil, is called after every chunk with the bytes
// received so far and the announced total.
func (s *Streamer) Stream(ctx context.Context, assetURL, dest string, onProgress func(received, total int64)) error {
	f, err := ioutils.CreateExclusive(dest)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &fs.PathError{Op: "create", Path: dest, Err: ErrAlreadyExists}
		}
		return transferError(ctx, "create artifact", err)
	}

	resp, err := s.open(ctx, assetURL)
	if err != nil {
		return errors.Join(err, f.Close(), os.Remove(dest))
	}
	defer resp.Body.Close()

	total := resp.ContentLength
	s.logger.Debug().Str("path", dest).Int64("total", total).Msg("Streaming artifact")

	if err := s.transfer(ctx, resp.Body, f, total, onProgress); err != nil {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return err
	}

	if err := f.Close(); err != nil {
		return transferError(ctx, "close artifact", err)
	}

	return nil
}

func (s *Streamer) open(ctx context.Context, assetURL string) (*http.Response, error) {
	resp, err := s.http.Open(ctx, assetURL)
	if err != nil {
		return nil, transferError(ctx, "request asset", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	if resp.ContentLength < 0 {
		resp.Body.Close()
		return nil, ErrMissingContentLength
	}

	return resp, nil
}

// syncer is implemented by destinations that can flush to stable storage.
type syncer interface {
	Sync() error
}

// transfer runs the receive loop and the write loop. The receive loop owns
// the queue and closes it at the end of the body; the write loop drains it
// into w and syncs w if it can.
func (s *Streamer) transfer(ctx context.Context, body io.Reader, w io.Writer, total int64, onProgress func(received, total int64)) error {
	chunks := make(chan []byte, s.queueSize)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for chunk := range chunks {
			if _, err := w.Write(chunk); err != nil {
				return transferError(ctx, "write artifact", err)
			}
		}
		if f, ok := w.(syncer); ok {
			if err := f.Sync(); err != nil {
				return transferError(ctx, "sync artifact", err)
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(chunks)

		var read, reported int64
		for {
			buf := make([]byte, s.chunkSize)
			n, err := body.Read(buf)
			if n > 0 {
				select {
				case chunks <- buf[:n]:
				case <-gctx.Done():
					return gctx.Err()
				}

				read += int64(n)
				reported = min(read, total)
				if onProgress != nil {
					onProgress(reported, total)
				}
			}

			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return transferError(ctx, "read asset", err)
			}
		}

		if read < total {
			return fmt.Errorf("%w: got %d of %d bytes", ErrShortTransfer, read, total)
		}
		return nil
	})

	return g.Wait()
}
