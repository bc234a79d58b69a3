package tickets

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventide/backend/internal/models"
)

func TestIssuerIssue(t *testing.T) {
	t.Parallel()

	ticket, err := NewIssuer(0).Issue(samplePayload())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ticket.DataURL, "data:image/png;base64,"))
	raw, err := DecodeDataURL(ticket.DataURL)
	require.NoError(t, err)
	assert.Equal(t, ticket.PNG, raw)

	img, err := png.Decode(bytes.NewReader(ticket.PNG))
	require.NoError(t, err)
	assert.Equal(t, DefaultQRSize, img.Bounds().Dx())

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)
	res, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	require.NoError(t, err)
	assert.Equal(t, ticket.Text, res.GetText())

	decoded, err := Decode(res.GetText())
	require.NoError(t, err)
	assert.Equal(t, "U1", decoded.UserID)
	assert.Equal(t, "Demo Talk", decoded.EventTitle)
}

func TestIssuerIssueTooLarge(t *testing.T) {
	t.Parallel()

	p := samplePayload()
	p.EventTitle = strings.Repeat("x", 4000)
	_, err := NewIssuer(0).Issue(p)
	assert.ErrorIs(t, err, models.ErrEncoding)
}

func TestDecodeDataURLRejectsOtherSchemes(t *testing.T) {
	t.Parallel()

	_, err := DecodeDataURL("https://example.com/qr.png")
	assert.Error(t, err)
}

func TestRenderPDF(t *testing.T) {
	t.Parallel()

	ticket, err := NewIssuer(0).Issue(samplePayload())
	require.NoError(t, err)
	ev := &models.Event{
		ID:          "E1",
		Title:       "Demo Talk",
		Description: "An introduction.",
		Location:    "Hall A",
		Date:        time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Time:        "3:00 PM - 5:00 PM",
		TicketPrice: 250,
	}

	out, err := RenderPDF(ticket, ev)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = RenderPDF(nil, ev)
	assert.ErrorIs(t, err, models.ErrEncoding)
}
