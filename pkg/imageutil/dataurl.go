// Package imageutil converts between data URLs, raw bytes and decoded images.
package imageutil

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var (
	ErrNotDataURL = errors.New("not a base64 data URL")

	imagePrefix = regexp.MustCompile(`^data:image/\w+;base64,`)
)

// Strip removes a leading data:image/...;base64, prefix. Strings without one are returned unchanged.
func Strip(s string) string {
	return imagePrefix.ReplaceAllString(s, "")
}

// Wrap builds a data URL from a MIME type and a base64 payload.
func Wrap(mimeType, payload string) string {
	return "data:" + mimeType + ";base64," + payload
}

// Parse splits a data URL into its MIME type and base64 payload.
func Parse(dataURL string) (mimeType, payload string, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", "", ErrNotDataURL
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", ErrNotDataURL
	}
	mimeType, ok = strings.CutSuffix(header, ";base64")
	if !ok || mimeType == "" {
		return "", "", ErrNotDataURL
	}
	return mimeType, payload, nil
}

// Decode returns the bytes and MIME type carried by a data URL.
func Decode(dataURL string) ([]byte, string, error) {
	mimeType, payload, err := Parse(dataURL)
	if err != nil {
		return nil, "", err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return data, mimeType, nil
}

// Encode wraps raw bytes as a data URL.
func Encode(mimeType string, data []byte) string {
	return Wrap(mimeType, base64.StdEncoding.EncodeToString(data))
}

// ReadFile loads a file as a data URL, sniffing its content type.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return Encode(mimeType, data), nil
}

// WriteFile stores the payload of a data URL at path.
func WriteFile(path, dataURL string) error {
	data, _, err := Decode(dataURL)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
