package lib

import (
	"bytes"
	"fmt"

	"github.com/yeqown/go-qrcode"
)

// RenderQRCode encodes payload as a JPEG QR image.
func RenderQRCode(payload string) ([]byte, error) {
	qrc, err := qrcode.New(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return nil, fmt.Errorf("rendering qr code: %w", err)
	}
	return buf.Bytes(), nil
}
