package download

import (
	"context"
	"io"
)

// TransferTo exposes the receive and write loops with an arbitrary writer.
func (s *Streamer) TransferTo(ctx context.Context, body io.Reader, w io.Writer, total int64, onProgress func(received, total int64)) error {
	return s.transfer(ctx, body, w, total, onProgress)
}
