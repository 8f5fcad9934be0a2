// Package qrcode renders the public review page URL as a printable QR code.
package qrcode

import (
	"fmt"

	qr "github.com/skip2/go-qrcode"
)

const (
	defaultSize = 512
	maxSize     = 2048
)

// GeneratePNG renders the given URL as a PNG QR code. Size is clamped to a
// printable range; zero picks the default.
func GeneratePNG(url string, size int) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("qrcode: url is empty")
	}
	if size <= 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	png, err := qr.Encode(url, qr.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode failed: %w", err)
	}
	return png, nil
}
