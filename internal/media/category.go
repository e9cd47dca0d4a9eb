package media

import "strings"

// Category is the semantic attachment class used for transport dispatch.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
	CategorySticker  Category = "sticker"
)

// CategoryOf maps a MIME type to its semantic category. WebP images are
// WhatsApp stickers; everything that is not image/video/audio is a document.
func CategoryOf(mime string) Category {
	switch {
	case mime == "image/webp":
		return CategorySticker
	case strings.HasPrefix(mime, "image/"):
		return CategoryImage
	case strings.HasPrefix(mime, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mime, "audio/"):
		return CategoryAudio
	default:
		return CategoryDocument
	}
}

var mimeExtensions = map[string]string{
	// Images
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",

	// Videos
	"video/mp4":       "mp4",
	"video/mpeg":      "mpeg",
	"video/quicktime": "mov",
	"video/webm":      "webm",
	"video/3gpp":      "3gp",

	// Audio
	"audio/mpeg": "mp3",
	"audio/mp3":  "mp3",
	"audio/wav":  "wav",
	"audio/ogg":  "ogg",
	"audio/aac":  "aac",
	"audio/amr":  "amr",
	"audio/flac": "flac",

	// Documents
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.ms-excel": "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xlsx",
	"application/vnd.ms-powerpoint":                                     "ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"text/plain":      "txt",
	"text/csv":        "csv",
	"application/zip": "zip",
}

// ExtensionFor returns the file extension (without dot) for a MIME type,
// falling back to "bin" for anything unmapped.
func ExtensionFor(mime string) string {
	if ext, ok := mimeExtensions[mime]; ok {
		return ext
	}
	return "bin"
}

// supportedMimes is the allowlist for platform-sourced attachments. Matches
// what both remote systems accept without transcoding.
var supportedMimes = map[string]bool{
	"image/jpeg": true, "image/jpg": true, "image/png": true,
	"image/gif": true, "image/webp": true,
	"video/mp4": true, "video/mpeg": true, "video/quicktime": true,
	"video/webm": true, "video/3gpp": true,
	"audio/mpeg": true, "audio/mp3": true, "audio/wav": true,
	"audio/ogg": true, "audio/aac": true, "audio/amr": true,
	"application/pdf": true, "application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/plain": true, "text/csv": true,
}

// IsSupported reports whether a MIME type is on the default allowlist.
func IsSupported(mime string) bool {
	return supportedMimes[mime]
}
