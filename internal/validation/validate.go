// Package validation provides centralized input validation logic.
// This includes bucket names, object keys, byte ranges, custom metadata and
// payload checksums.
//
// All caller inputs are validated before any backend session is opened.
package validation

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// MaxObjectKeyLength is the longest object key accepted, in bytes.
const MaxObjectKeyLength = 1024

// ValidateBucketName validates that a bucket name is DNS-compliant.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return errors.NewError("validateBucketName", errors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}

	if len(bucket) < 3 || len(bucket) > 63 {
		return errors.NewError("validateBucketName", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name must be between 3 and 63 characters long")
	}

	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.NewError("validateBucketName", errors.ErrInvalidInput).
				WithBucket(bucket).
				WithMessage("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	if bucket[0] == '-' || bucket[0] == '.' || bucket[len(bucket)-1] == '-' || bucket[len(bucket)-1] == '.' {
		return errors.NewError("validateBucketName", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name cannot start or end with a hyphen or dot")
	}

	if strings.Contains(bucket, "..") {
		return errors.NewError("validateBucketName", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain two adjacent periods")
	}

	if isIPAddress(bucket) {
		return errors.NewError("validateBucketName", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name cannot be formatted as an IP address")
	}

	return nil
}

// ValidateObjectKey validates that an object key is non-empty, bounded and
// free of control characters.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithMessage("object key cannot be empty")
	}

	if len(key) > MaxObjectKeyLength {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key[:32] + "...").
			WithMessage(fmt.Sprintf("object key cannot exceed %d bytes", MaxObjectKeyLength))
	}

	for _, char := range key {
		if unicode.IsControl(char) {
			return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
				WithKey(key).
				WithMessage("object key cannot contain control characters")
		}
	}

	return nil
}

// ValidateRange checks that rng has a non-negative offset and length.
// The upper bound is checked by the backend against the object size.
func ValidateRange(rng *storjtypes.ByteRange) error {
	if rng == nil {
		return nil
	}
	if rng.Offset < 0 || rng.Length < 0 {
		return errors.NewError("validateRange", errors.ErrInvalidRange).
			WithMessage(fmt.Sprintf("offset %d and length %d must not be negative", rng.Offset, rng.Length))
	}
	return nil
}

// ValidateMetadata validates custom metadata keys and values.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if key == "" {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata key cannot be empty")
		}
		for _, char := range key {
			if char <= ' ' || char > '~' {
				return errors.NewError("validateMetadata", errors.ErrInvalidInput).
					WithMessage(fmt.Sprintf("metadata key %q can only contain printable ASCII characters", key))
			}
		}
		for _, char := range value {
			if !unicode.IsPrint(char) && char != '\t' {
				return errors.NewError("validateMetadata", errors.ErrInvalidInput).
					WithMessage(fmt.Sprintf("metadata value for %q can only contain printable characters", key))
			}
		}
	}
	return nil
}

// ValidateChunkSize rejects negative sizes. Zero means unbounded.
func ValidateChunkSize(name string, size int64) error {
	if size < 0 {
		return errors.NewError("validateChunkSize", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("%s cannot be negative", name))
	}
	return nil
}

// Checksum returns the base64-encoded MD5 digest of data.
func Checksum(data []byte) string {
	sum := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// VerifyChecksum compares the declared base64 MD5 checksum with data.
// An empty declaration is not checked.
func VerifyChecksum(data []byte, declared string) error {
	if declared == "" {
		return nil
	}
	if actual := Checksum(data); actual != declared {
		return errors.NewError("verifyChecksum", errors.ErrIntegrity).
			WithMessage(fmt.Sprintf("declared %s, computed %s", declared, actual))
	}
	return nil
}

// isValidBucketChar checks if a character is valid in a bucket name
func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// isIPAddress checks if a string is formatted as an IPv4 address
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}

	return true
}
