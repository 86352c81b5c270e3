package helpers

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/skip2/go-qrcode"
)

const QRCodeSize = 256

var ErrEmptyPaymentCode = errors.New("empty payment code")

// PaymentQRCode renders a PIX copy-and-paste code as a PNG.
func PaymentQRCode(paymentCode string) ([]byte, error) {
	if paymentCode == "" {
		return nil, ErrEmptyPaymentCode
	}
	return qrcode.Encode(paymentCode, qrcode.Medium, QRCodeSize)
}

// DecodeInlineImage decodes the base64 image the events API may send with an
// order. A data URI prefix is accepted.
func DecodeInlineImage(b64 string) ([]byte, error) {
	if i := strings.Index(b64, ","); strings.HasPrefix(b64, "data:") && i >= 0 {
		b64 = b64[i+1:]
	}
	return base64.StdEncoding.DecodeString(b64)
}
