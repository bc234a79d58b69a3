package tickets

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/eventide/backend/internal/models"
)

// RenderPDF lays out a single-page A4 eTicket with the QR code, the attendee and the event details.
func RenderPDF(t *Ticket, ev *models.Event) ([]byte, error) {
	if t == nil || ev == nil {
		return nil, fmt.Errorf("%w: ticket and event required", models.ErrEncoding)
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(0, 15, "EVENT eTICKET")
	pdf.Ln(20)

	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 120, 55, "F")

	pdf.SetXY(20, yStart+7)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "ATTENDEE")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Name: %s", t.Payload.UserName))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("User ID: %s", t.Payload.UserID))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Registered: %s", t.Payload.RegistrationDate.Format("02 Jan 2006 15:04 MST")))
	pdf.Ln(6)
	if ev.IsPaid() {
		pdf.Cell(0, 8, fmt.Sprintf("Ticket price: %.2f", ev.TicketPrice))
	}

	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(t.PNG))
	pdf.ImageOptions("qr", 140, yStart, 55, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetY(yStart + 63)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, "Show this QR code at the entrance.")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 9, "EVENT DETAILS", "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Title: %s", ev.Title))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Date: %s  %s", ev.Date.Format("Mon, 02 Jan 2006"), ev.Time))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Location: %s", ev.Location))
	pdf.Ln(8)
	if ev.Description != "" {
		pdf.MultiCell(0, 6, ev.Description, "", "", false)
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(15, 285, 195, 285)
	pdf.SetY(288)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 8, "Ticket ID: "+ev.ID+"/"+t.Payload.UserID, "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: pdf output: %v", models.ErrEncoding, err)
	}
	return buf.Bytes(), nil
}
