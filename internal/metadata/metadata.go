// Package metadata builds the custom metadata and headers stored with objects.
package metadata

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// DefaultContentType is used when the content type cannot be detected.
const DefaultContentType = "application/octet-stream"

// Merge returns a new map holding every key of custom plus the reserved
// content-type and content-disposition keys. Reserved keys always win; empty
// values are left out.
func Merge(custom map[string]string, contentType, contentDisposition string) map[string]string {
	merged := make(map[string]string, len(custom)+2)
	for k, v := range custom {
		merged[k] = v
	}

	delete(merged, storjtypes.MetadataContentType)
	delete(merged, storjtypes.MetadataContentDisposition)
	if contentType != "" {
		merged[storjtypes.MetadataContentType] = contentType
	}
	if contentDisposition != "" {
		merged[storjtypes.MetadataContentDisposition] = contentDisposition
	}

	return merged
}

// ContentDisposition formats a Content-Disposition value with an ASCII
// fallback filename and an RFC 5987 encoded one. It returns "" when kind or
// filename is empty.
func ContentDisposition(kind storjtypes.Disposition, filename string) string {
	if kind == "" || filename == "" {
		return ""
	}
	return fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`,
		kind,
		percentEscape(asciiFallback(filename), isTraditionalSafe),
		percentEscape(filename, isRFC5987Safe),
	)
}

// DirectUploadHeaders returns the headers a client must send when uploading
// directly to a pre-signed URL. Empty standard headers are left out.
func DirectUploadHeaders(contentType, checksum, contentDisposition string, custom map[string]string) map[string]string {
	headers := make(map[string]string, len(custom)+3)
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	if checksum != "" {
		headers["Content-MD5"] = checksum
	}
	if contentDisposition != "" {
		headers["Content-Disposition"] = contentDisposition
	}
	for k, v := range custom {
		headers["x-amz-meta-"+k] = v
	}
	return headers
}

// DetectContentType sniffs data and falls back to the extension of key when
// the bytes are not recognized.
func DetectContentType(key string, data []byte) string {
	if len(data) > 0 {
		if mt := mimetype.Detect(data); mt != nil && !mt.Is(DefaultContentType) {
			return mt.String()
		}
	}

	if ext := strings.ToLower(path.Ext(key)); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}

	return DefaultContentType
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// asciiFallback drops diacritics and replaces what is left outside ASCII with '?'.
func asciiFallback(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return '?'
		}
		return r
	}, stripped)
}

func isTraditionalSafe(b byte) bool {
	return b == ' ' || isRFC5987Safe(b) && b != '&'
}

func isRFC5987Safe(b byte) bool {
	switch {
	case 'A' <= b && b <= 'Z', 'a' <= b && b <= 'z', '0' <= b && b <= '9':
		return true
	}
	return strings.IndexByte("!#$&+.^_`|~-", b) >= 0
}

func percentEscape(s string, safe func(byte) bool) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		if safe(b) {
			sb.WriteByte(b)
			continue
		}
		fmt.Fprintf(&sb, "%%%02X", b)
	}
	return sb.String()
}
