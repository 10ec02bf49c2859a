// ABOUTME: Converts uploaded files into self-contained data URIs stored inside documents
// ABOUTME: Also caps upload size so a single attachment cannot bloat a document unbounded

package features

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// MaxAttachmentSize caps a single attachment before encoding.
const MaxAttachmentSize = 5 << 20

// Attachment is a file embedded in a note or table entry.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// DataURI encodes data as a base64 data URI. An empty mime type is sniffed
// from the content.
func DataURI(mime string, data []byte) string {
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// NewAttachment builds an attachment from raw file bytes.
func NewAttachment(name, mime string, data []byte) (Attachment, error) {
	name, err := requireName(name)
	if err != nil {
		return Attachment{}, err
	}
	if len(data) == 0 {
		return Attachment{}, fmt.Errorf("%w: empty file", ErrInvalidArgument)
	}
	if len(data) > MaxAttachmentSize {
		return Attachment{}, fmt.Errorf("%w: file is %d bytes, limit %d", ErrInvalidArgument, len(data), MaxAttachmentSize)
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return Attachment{ID: newID(), Name: name, URL: DataURI(mime, data), Type: mime}, nil
}

// IsImage reports whether the attachment is an image.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.Type, "image/")
}
