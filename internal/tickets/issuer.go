package tickets

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/eventide/backend/internal/models"
)

// DefaultQRSize is the rendered PNG edge length in pixels.
const DefaultQRSize = 300

const dataURLPrefix = "data:image/png;base64,"

// Ticket is a rendered ticket: the payload, its canonical text and the QR image.
type Ticket struct {
	Payload models.TicketPayload `json:"payload"`
	Text    string               `json:"-"`
	PNG     []byte               `json:"-"`
	DataURL string               `json:"qrCodeUrl"`
}

// Issuer renders ticket payloads as QR codes. Nothing is persisted.
type Issuer struct {
	size  int
	level qrcode.RecoveryLevel
}

// NewIssuer creates an issuer rendering size x size PNGs at the highest
// error-correction level (~30% recovery), which tolerates glare and partial occlusion.
func NewIssuer(size int) *Issuer {
	if size <= 0 {
		size = DefaultQRSize
	}
	return &Issuer{size: size, level: qrcode.Highest}
}

// Issue encodes the payload and renders it. Errors wrap models.ErrEncoding.
func (i *Issuer) Issue(p models.TicketPayload) (*Ticket, error) {
	text, err := Encode(p)
	if err != nil {
		return nil, err
	}
	q, err := qrcode.New(string(text), i.level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEncoding, err)
	}
	png, err := q.PNG(i.size)
	if err != nil {
		return nil, fmt.Errorf("%w: render png: %v", models.ErrEncoding, err)
	}
	p.RegistrationDate = p.RegistrationDate.UTC()
	return &Ticket{
		Payload: p,
		Text:    string(text),
		PNG:     png,
		DataURL: dataURLPrefix + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// DecodeDataURL returns the PNG bytes of a data URL produced by Issue.
func DecodeDataURL(url string) ([]byte, error) {
	if len(url) < len(dataURLPrefix) || url[:len(dataURLPrefix)] != dataURLPrefix {
		return nil, fmt.Errorf("not a png data url")
	}
	return base64.StdEncoding.DecodeString(url[len(dataURLPrefix):])
}
