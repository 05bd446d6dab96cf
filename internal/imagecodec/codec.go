// Package imagecodec converts image payloads to and from the base64 text
// form exchanged with the image model and rendered back as data URIs.
package imagecodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"passportphoto/internal/domain"
)

const dataURIPrefix = "data:"

// Encode reads all of r and returns the standard base64 encoding.
func Encode(r io.Reader) (domain.EncodedImage, error) {
	if r == nil {
		return "", domain.ReadError("Failed to read file as base64 string.", errors.New("nil reader"))
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", domain.ReadError("Failed to read file as base64 string.", err)
	}
	if len(data) == 0 {
		return "", domain.ReadError("Failed to read file as base64 string.", errors.New("empty image"))
	}
	return EncodeBytes(data), nil
}

// EncodeBytes encodes already loaded bytes.
func EncodeBytes(data []byte) domain.EncodedImage {
	return domain.EncodedImage(base64.StdEncoding.EncodeToString(data))
}

// Decode returns the original bytes of an encoded image.
func Decode(e domain.EncodedImage) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(string(e))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}

// DataURI builds a self contained reference that browsers can display.
func DataURI(mimeType string, e domain.EncodedImage) string {
	var b strings.Builder
	b.Grow(len(dataURIPrefix) + len(mimeType) + len(";base64,") + len(e))
	b.WriteString(dataURIPrefix)
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(string(e))
	return b.String()
}

// ParseDataURI splits a base64 data URI into its MIME type and decoded bytes.
func ParseDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return "", nil, errors.New("imagecodec: not a data uri")
	}
	header, payload, ok := strings.Cut(uri[len(dataURIPrefix):], ",")
	if !ok {
		return "", nil, errors.New("imagecodec: data uri has no payload")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, errors.New("imagecodec: data uri is not base64")
	}
	data, err := Decode(domain.EncodedImage(payload))
	if err != nil {
		return "", nil, err
	}
	return mimeType, data, nil
}

// ReadSource loads an uploaded file into a SourceImage. A positive limit caps
// the accepted size.
func ReadSource(r io.Reader, name, mimeType string, limit int64) (domain.SourceImage, error) {
	if r == nil {
		return domain.SourceImage{}, domain.ReadError("Failed to read the selected file.", errors.New("nil reader"))
	}
	reader := r
	if limit > 0 {
		reader = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return domain.SourceImage{}, domain.ReadError("Failed to read the selected file.", err)
	}
	if len(data) == 0 {
		return domain.SourceImage{}, domain.ReadError("The selected file is empty.", nil)
	}
	if limit > 0 && int64(len(data)) > limit {
		return domain.SourceImage{}, domain.ReadError(fmt.Sprintf("The selected file exceeds the %d byte limit.", limit), nil)
	}
	return domain.SourceImage{
		Name:     name,
		MIMEType: NormalizeMIME(mimeType),
		Data:     data,
	}, nil
}

// NormalizeMIME strips parameters and lowercases a media type.
func NormalizeMIME(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(value); err == nil {
		return mt
	}
	return strings.ToLower(value)
}

// IsImageMIME reports whether the media type is an image/* type.
func IsImageMIME(value string) bool {
	mt := NormalizeMIME(value)
	return strings.HasPrefix(mt, "image/") && len(mt) > len("image/")
}
