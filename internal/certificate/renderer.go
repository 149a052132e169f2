// Package certificate renders registration certificates as PDF documents.
// Rendering is a pure function of its input: no network, no storage, and
// deterministic output for a fixed issue date.
package certificate

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// ErrMissingField indicates a required certificate field was absent.
var ErrMissingField = errors.New("missing required field")

// Data carries the registration attributes printed on a certificate.
type Data struct {
	RegistrationNumber string
	DogName            string
	OwnerName          string
	Breed              string
	Color              string
	Description        string
	IssuedAt           time.Time // zero value defaults to render time
}

// Renderer produces certificate PDFs.
type Renderer struct{}

// NewRenderer creates a certificate renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces an A4 landscape certificate: title block, registration
// number line, detail fields in fixed order, signature block. The PDF
// creation and modification dates are pinned to IssuedAt so output is
// byte-identical for identical input.
func (r *Renderer) Render(d Data) ([]byte, error) {
	if d.RegistrationNumber == "" {
		return nil, fmt.Errorf("%w: registration number", ErrMissingField)
	}
	if d.DogName == "" {
		return nil, fmt.Errorf("%w: dog name", ErrMissingField)
	}
	if d.OwnerName == "" {
		return nil, fmt.Errorf("%w: owner name", ErrMissingField)
	}
	issued := d.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	issued = issued.UTC()

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("WCU Registration Certificate "+d.RegistrationNumber, true)
	pdf.SetCreationDate(issued)
	pdf.SetModificationDate(issued)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()

	// Double border frame
	pdf.SetDrawColor(30, 60, 110)
	pdf.SetLineWidth(1.2)
	pdf.Rect(8, 8, pageW-16, pageH-16, "D")
	pdf.SetLineWidth(0.3)
	pdf.Rect(11, 11, pageW-22, pageH-22, "D")

	// Title block
	pdf.SetY(24)
	pdf.SetFont("Times", "B", 30)
	pdf.SetTextColor(30, 60, 110)
	pdf.CellFormat(0, 14, "World Canine Union", "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "", 16)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(0, 9, "Certificate of Registration", "", 1, "C", false, 0, "")

	// Identification line
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, "Registration No. "+d.RegistrationNumber, "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Times", "I", 13)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 7, "This certifies that the dog named below is recorded in the World Canine Union registry.", "", 1, "C", false, 0, "")

	// Detail fields, fixed order
	fields := []struct {
		label string
		value string
	}{
		{"Name", d.DogName},
		{"Breed", d.Breed},
		{"Color", d.Color},
		{"Owner", d.OwnerName},
		{"Notes", d.Description},
		{"Date Issued", issued.Format("January 2, 2006")},
	}
	pdf.Ln(6)
	labelW := 50.0
	valueW := pageW - 16 - 2*labelW
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		pdf.SetX(labelW)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(34, 8, f.label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(valueW, 8, f.value, "", 1, "L", false, 0, "")
	}

	// Signature block
	sigY := pageH - 44
	pdf.SetY(sigY)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	pdf.Line(40, sigY, 110, sigY)
	pdf.Line(pageW-110, sigY, pageW-40, sigY)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.SetXY(40, sigY+2)
	pdf.CellFormat(70, 6, "Registrar", "", 0, "C", false, 0, "")
	pdf.SetXY(pageW-110, sigY+2)
	pdf.CellFormat(70, 6, "Date", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
