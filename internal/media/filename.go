package media

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const maxFilenameLen = 100

var illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFilename strips characters that are illegal on common filesystems
// and collapses whitespace/underscore runs.
func SanitizeFilename(name string) string {
	name = illegalFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	name = strings.TrimRight(name, ".")
	name = regexp.MustCompile(`\s+`).ReplaceAllString(name, "_")
	name = regexp.MustCompile(`_+`).ReplaceAllString(name, "_")
	return strings.Trim(name, "_ ")
}

// TransportFilename generates a name for media received from the transport,
// e.g. "WA_IMG_1716891234567_3EB0A9C1.jpg". messageID may be empty.
func TransportFilename(mime, messageID string) string {
	var tag string
	switch CategoryOf(mime) {
	case CategoryImage, CategorySticker:
		tag = "IMG"
	case CategoryVideo:
		tag = "VID"
	case CategoryAudio:
		tag = "AUD"
	default:
		tag = "DOC"
	}

	id := messageID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	}

	return fmt.Sprintf("WA_%s_%d_%s.%s", tag, time.Now().UnixMilli(), id, ExtensionFor(mime))
}

// PlatformFilename generates a name for an attachment downloaded from the
// ticketing platform, preserving the original base name when present.
func PlatformFilename(originalName, mime string) string {
	base := originalName
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	base = SanitizeFilename(base)
	if base == "" {
		base = "attachment"
	}

	name := fmt.Sprintf("CW_%s_%d.%s", base, time.Now().UnixMilli(), ExtensionFor(mime))
	if len(name) > maxFilenameLen {
		ext := ExtensionFor(mime)
		name = name[:maxFilenameLen-len(ext)-1] + "." + ext
	}
	return name
}
