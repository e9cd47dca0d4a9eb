package media

import "bytes"

// DetectMime determines a MIME type from the leading bytes of a file.
// Returns "application/octet-stream" when no known signature matches.
func DetectMime(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}

	// Image formats
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	if bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}) {
		return "image/png"
	}
	if bytes.HasPrefix(data, []byte("GIF8")) {
		return "image/gif"
	}
	if isRIFF(data, "WEBP") {
		return "image/webp"
	}

	// Video formats
	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) {
		return "video/mp4"
	}
	if bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}) {
		return "video/webm"
	}

	// Audio formats
	if bytes.HasPrefix(data, []byte("ID3")) || (data[0] == 0xFF && data[1]&0xE0 == 0xE0) {
		return "audio/mpeg"
	}
	if bytes.HasPrefix(data, []byte("OggS")) {
		return "audio/ogg"
	}
	if isRIFF(data, "WAVE") {
		return "audio/wav"
	}
	if bytes.HasPrefix(data, []byte("fLaC")) {
		return "audio/flac"
	}

	// Document formats
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return "application/pdf"
	}
	if data[0] == 'P' && data[1] == 'K' && (data[2] == 0x03 || data[2] == 0x05) {
		return sniffZip(data)
	}

	return "application/octet-stream"
}

func isRIFF(data []byte, kind string) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte(kind))
}

// sniffZip distinguishes OOXML documents from plain zip archives by
// looking for the well-known part prefixes near the start of the archive.
func sniffZip(data []byte) string {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	switch {
	case bytes.Contains(head, []byte("word/")):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case bytes.Contains(head, []byte("xl/")):
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case bytes.Contains(head, []byte("ppt/")):
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	}
	return "application/zip"
}

// genericMimes are reported types that carry no real information. Chatwoot
// in particular buckets unknown attachments as "file".
var genericMimes = map[string]bool{
	"":                         true,
	"file":                     true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// IsGenericMime reports whether a reported MIME type should be replaced by
// the byte-sniffed one.
func IsGenericMime(mime string) bool {
	return genericMimes[mime]
}
