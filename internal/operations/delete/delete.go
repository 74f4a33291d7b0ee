// Package delete handles object deletion, singly and by key prefix.
// Deleting an object that does not exist succeeds.
package delete

import (
	"context"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// Deleter handles delete operations.
type Deleter struct {
	backend backend.Backend
}

// New creates a new Deleter.
func New(b backend.Backend) *Deleter {
	return &Deleter{backend: b}
}

// Delete removes bucket/key. A missing object is not an error.
func (d *Deleter) Delete(ctx context.Context, bucket, key string) error {
	if err := d.backend.DeleteObject(ctx, bucket, key); err != nil && !errors.IsObjectNotFound(err) {
		return errors.NewObjectError("delete", bucket, key, err)
	}
	return nil
}

// DeletePrefixed removes every object whose key starts with prefix.
// The listing is taken first; objects that vanish before their turn are skipped.
func (d *Deleter) DeletePrefixed(ctx context.Context, bucket, prefix string) (*storjtypes.DeleteResult, error) {
	startTime := time.Now()

	var keys []string
	it := d.backend.ListObjects(ctx, bucket, prefix)
	for it.Next() {
		keys = append(keys, it.Item().Key)
	}
	if err := it.Err(); err != nil {
		return nil, errors.NewError("deletePrefixed", err).WithBucket(bucket).
			WithMessage("listing " + prefix)
	}

	result := &storjtypes.DeleteResult{Deleted: make([]string, 0, len(keys))}
	for _, key := range keys {
		err := d.backend.DeleteObject(ctx, bucket, key)
		switch {
		case err == nil:
			result.Deleted = append(result.Deleted, key)
		case errors.IsObjectNotFound(err):
		default:
			result.Duration = time.Since(startTime)
			return result, errors.NewObjectError("deletePrefixed", bucket, key, err)
		}
	}

	result.Duration = time.Since(startTime)
	return result, nil
}
