package storj

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
)

// instrument starts timing op and returns the function that logs its outcome.
// Successful operations log at debug level, failures at warn with their error code.
func (c *Client) instrument(op, key string, fields logrus.Fields) func(err error) {
	start := time.Now()
	return func(err error) {
		entry := c.log.WithFields(logrus.Fields{
			"op":       op,
			"bucket":   c.bucket,
			"duration": time.Since(start),
		})
		if key != "" {
			entry = entry.WithField("key", key)
		}
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}

		if err != nil {
			entry.WithError(err).WithField("code", errors.CodeOf(err)).Warn("storj operation failed")
			return
		}
		entry.Debug("storj operation completed")
	}
}
