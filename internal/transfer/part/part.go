// Package part drives one upload stream by writing bounded chunks of a payload
// until a byte range is exhausted.
package part

import (
	"fmt"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/transfer/plan"
)

// Observer is told how many bytes the sink accepted after each write.
type Observer func(accepted int64)

// WriteRange writes payload[start:end] to sink in chunks of at most chunkSize
// bytes and returns the number of bytes written.
//
// The sink may accept fewer bytes than offered; the loop advances by the
// accepted count and offers the remainder again.
func WriteRange(sink io.Writer, payload []byte, start, end, chunkSize int64, observe Observer) (int64, error) {
	if start < 0 || end < start || end > int64(len(payload)) {
		return 0, errors.NewError("writeRange", errors.ErrInvalidRange).
			WithMessage(fmt.Sprintf("range [%d, %d) outside payload of %d bytes", start, end, len(payload)))
	}

	uploaded := start
	for {
		remaining := end - uploaded
		if remaining <= 0 {
			break
		}

		n := plan.ChunkLen(chunkSize, remaining)
		accepted, err := sink.Write(payload[uploaded : uploaded+n])
		if accepted < 0 || int64(accepted) > n {
			return uploaded - start, errors.NewError("writeRange", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("sink accepted %d of %d bytes", accepted, n))
		}
		uploaded += int64(accepted)
		if accepted > 0 && observe != nil {
			observe(int64(accepted))
		}
		if err != nil {
			return uploaded - start, err
		}
		if accepted == 0 {
			return uploaded - start, io.ErrShortWrite
		}
	}

	return uploaded - start, nil
}
