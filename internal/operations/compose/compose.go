// Package compose concatenates existing objects into a new object.
//
// Every source is downloaded in full, in the order given, before anything is
// written to the destination, so a failing source leaves the destination untouched.
package compose

import (
	"context"
	"fmt"
	"maps"

	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/metadata"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// Composer handles compose operations
type Composer struct {
	reader   *download.Reader
	uploader *upload.Uploader
}

// NewComposer creates a new compose operation handler
func NewComposer(reader *download.Reader, uploader *upload.Uploader) *Composer {
	return &Composer{
		reader:   reader,
		uploader: uploader,
	}
}

// Compose uploads the concatenation of sources to bucket/dest through the
// normal upload path. When req.Metadata carries no content type, one is
// detected from the concatenated bytes.
func (c *Composer) Compose(
	ctx context.Context,
	bucket string,
	sources []string,
	dest string,
	req upload.Request,
) (*storjtypes.UploadResult, error) {
	if len(sources) == 0 {
		return nil, errors.NewObjectError("compose", bucket, dest, errors.ErrInvalidInput).
			WithMessage("at least one source key is required")
	}

	parts := make([][]byte, len(sources))
	var total int
	for i, key := range sources {
		data, err := c.reader.Read(ctx, bucket, key, nil, nil)
		if err != nil {
			return nil, errors.NewObjectError("compose", bucket, dest, err).
				WithMessage(fmt.Sprintf("source %d (%s)", i, key))
		}
		parts[i] = data
		total += len(data)
	}

	combined := make([]byte, 0, total)
	for _, data := range parts {
		combined = append(combined, data...)
	}

	if req.Metadata[storjtypes.MetadataContentType] == "" {
		md := maps.Clone(req.Metadata)
		if md == nil {
			md = make(map[string]string, 1)
		}
		md[storjtypes.MetadataContentType] = metadata.DetectContentType(dest, combined)
		req.Metadata = md
	}

	return c.uploader.Upload(ctx, bucket, dest, combined, req)
}
