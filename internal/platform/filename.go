package platform

import (
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MaxFileNameLength caps the sanitized base name, in characters
const MaxFileNameLength = 50

// ContentExtension is appended to every content file
const ContentExtension = ".mp4"

// FallbackBaseName is used when neither the title nor the key yield a name
const FallbackBaseName = "video"

// UnsafeFileNameChars are removed from every filename
const UnsafeFileNameChars = `<>:"/\|?*`

// SafeFileName builds the content filename for a download. The display title
// is preferred; the last segment of contentKey is used when the title
// sanitizes to nothing.
func SafeFileName(contentKey, displayTitle string) string {
	base := sanitize(displayTitle)
	if base == "" {
		base = sanitize(keyBaseName(contentKey))
	}
	if base == "" {
		base = FallbackBaseName
	}
	return base + ContentExtension
}

// KeyFileName builds the filename derived from the content key only
func KeyFileName(contentKey string) string {
	return SafeFileName(contentKey, "")
}

// KeyedFileName tags name with a stable short id of contentKey, for keys whose
// plain filename is already taken by another key
func KeyedFileName(name, contentKey string) string {
	tag := uuid.NewSHA1(uuid.NameSpaceURL, []byte(contentKey)).String()[:8]
	return strings.TrimSuffix(name, ContentExtension) + "-" + tag + ContentExtension
}

// keyBaseName returns the last path segment of key without query or extension
func keyBaseName(key string) string {
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	key = strings.TrimRight(strings.ReplaceAll(key, `\`, "/"), "/")
	if key == "" {
		return ""
	}
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

func sanitize(name string) string {
	var b strings.Builder
	inSpace := false
	count := 0

	for _, r := range strings.TrimSpace(name) {
		if count >= MaxFileNameLength {
			break
		}
		switch {
		case strings.ContainsRune(UnsafeFileNameChars, r), unicode.IsControl(r) && !unicode.IsSpace(r):
			continue
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteRune('_')
				count++
			}
			inSpace = true
			continue
		case r == unicode.ReplacementChar:
			continue
		}
		inSpace = false
		b.WriteRune(r)
		count++
	}

	return strings.Trim(b.String(), ".")
}
