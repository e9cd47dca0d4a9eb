// Package media converts attachments between the transport's media messages
// and the ticketing platform's attachment conventions: byte-level MIME
// sniffing, semantic categories, normalized filenames and size limits.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

const (
	// MaxAttachmentSize bounds attachments in both directions.
	MaxAttachmentSize = 50 * 1024 * 1024

	downloadTimeout = 30 * time.Second

	// maxImageDimension is the bound above which outbound images are
	// downscaled before upload; WhatsApp rejects very large images.
	maxImageDimension = 2560
)

// Attachment is a fully transcoded attachment ready for either remote system.
type Attachment struct {
	Data     []byte
	Filename string
	Mime     string
	Category Category
}

// Transcoder normalizes raw attachment bytes. The zero value is usable;
// Client overrides the HTTP client used for platform downloads.
type Transcoder struct {
	Client *http.Client
}

// ProcessBuffer validates and normalizes raw bytes into an Attachment.
// reportedMime is untrusted: when it is generic or missing, the byte-sniffed
// type takes over. Types outside the allowlist are rejected rather than sent
// as opaque documents. originalName may be empty.
func (t *Transcoder) ProcessBuffer(data []byte, reportedMime, originalName string) (*Attachment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty attachment")
	}
	if len(data) > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds limit %d", len(data), MaxAttachmentSize)
	}

	mime := reportedMime
	if IsGenericMime(mime) {
		mime = DetectMime(data)
	}
	if !IsSupported(mime) {
		return nil, fmt.Errorf("unsupported media type %s", mime)
	}

	var filename string
	if originalName != "" {
		filename = PlatformFilename(originalName, mime)
	} else {
		filename = TransportFilename(mime, "")
	}

	return &Attachment{
		Data:     data,
		Filename: filename,
		Mime:     mime,
		Category: CategoryOf(mime),
	}, nil
}

// ProcessTransportMedia normalizes media downloaded from the transport.
// The transport reports a trustworthy mimetype, so it is kept unless empty.
func (t *Transcoder) ProcessTransportMedia(data []byte, mime, messageID string) (*Attachment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty media payload")
	}
	if len(data) > MaxAttachmentSize {
		return nil, fmt.Errorf("media size %d exceeds limit %d", len(data), MaxAttachmentSize)
	}
	if mime == "" {
		mime = DetectMime(data)
	}
	return &Attachment{
		Data:     data,
		Filename: TransportFilename(mime, messageID),
		Mime:     mime,
		Category: CategoryOf(mime),
	}, nil
}

// Download fetches an attachment from the platform's data URL and runs it
// through ProcessBuffer.
func (t *Transcoder) Download(ctx context.Context, url, reportedMime, originalName string) (*Attachment, error) {
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: downloadTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download attachment: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAttachmentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment body: %w", err)
	}

	if IsGenericMime(reportedMime) {
		if ct := resp.Header.Get("Content-Type"); !IsGenericMime(ct) {
			reportedMime = ct
		}
	}

	return t.ProcessBuffer(data, reportedMime, originalName)
}

// DownscaleImage re-encodes an image as JPEG when either dimension exceeds
// maxImageDimension. Non-decodable input is returned unchanged: the transport
// will reject it itself if it is truly malformed.
func DownscaleImage(data []byte) []byte {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxImageDimension && bounds.Dy() <= maxImageDimension {
		return data
	}

	resized := imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return data
	}
	return buf.Bytes()
}
