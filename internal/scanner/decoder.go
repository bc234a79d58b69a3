package scanner

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder finds a visual code in a frame.
type Decoder interface {
	Decode(img image.Image) (string, bool)
}

// QRDecoder decodes QR codes with gozxing, retrying on the inverted image
// for light-on-dark codes.
type QRDecoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewQRDecoder creates a QR decoder in try-harder mode.
func NewQRDecoder() *QRDecoder {
	return &QRDecoder{hints: map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}}
}

// Decode returns the text of the first QR code found in img.
func (d *QRDecoder) Decode(img image.Image) (string, bool) {
	if img == nil {
		return "", false
	}
	src := gozxing.NewLuminanceSourceFromImage(img)
	if text, ok := d.decode(src); ok {
		return text, true
	}
	return d.decode(src.Invert())
}

func (d *QRDecoder) decode(src gozxing.LuminanceSource) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(src))
	if err != nil {
		return "", false
	}
	res, err := zxqr.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", false
	}
	return res.GetText(), true
}
