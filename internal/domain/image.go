package domain

import (
	"bytes"
	"io"
)

// SourceImage is the user supplied photo. It is never mutated after selection.
type SourceImage struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Reader returns a fresh reader over the image bytes.
func (s SourceImage) Reader() io.Reader {
	return bytes.NewReader(s.Data)
}

// Size returns the payload length in bytes.
func (s SourceImage) Size() int {
	return len(s.Data)
}

// EncodedImage is the base64 text form of image bytes used on the wire.
type EncodedImage string

func (e EncodedImage) String() string {
	return string(e)
}

func (e EncodedImage) IsZero() bool {
	return e == ""
}
