package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Section is one titled table of a PDF report. When BarColumn is set every row also gets
// a horizontal bar sized by that column's value relative to BarMax.
type Section struct {
	Title     string
	Data      Dataset
	BarColumn string
	BarMax    float64
}

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderReport creates a PDF document with a title and one table per section.
func (e *PDFExporter) RenderReport(title string, sections ...Section) ([]byte, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("pdf requires at least one section")
	}
	for _, s := range sections {
		if len(s.Data.Headers) == 0 {
			return nil, fmt.Errorf("pdf requires at least one header")
		}
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetCreationDate(reportEpoch)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, fold(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	for _, section := range sections {
		writeSection(pdf, section)
		pdf.Ln(6)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSection(pdf *gofpdf.Fpdf, section Section) {
	if section.Title != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, fold(section.Title), "", 1, "L", false, 0, "")
	}

	tableWidth := 190.0
	barWidth := 0.0
	if section.BarColumn != "" && section.BarMax > 0 {
		tableWidth = 110.0
		barWidth = 80.0
	}
	colWidth := tableWidth / float64(len(section.Data.Headers))

	pdf.SetFont("Arial", "B", 10)
	for _, header := range section.Data.Headers {
		pdf.CellFormat(colWidth, 8, fold(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetFillColor(70, 130, 180)
	for _, row := range section.Data.Rows {
		for _, header := range section.Data.Headers {
			pdf.CellFormat(colWidth, 7, fold(row[header]), "1", 0, "", false, 0, "")
		}
		if barWidth > 0 {
			value, err := strconv.ParseFloat(row[section.BarColumn], 64)
			if err == nil && value > 0 {
				width := barWidth * value / section.BarMax
				if width > barWidth {
					width = barWidth
				}
				x, y := pdf.GetXY()
				pdf.Rect(x+2, y+1, width, 5, "F")
			}
		}
		pdf.Ln(-1)
	}
}

// reportEpoch pins the document creation date so identical input renders identical bytes.
var reportEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// fold strips diacritics, the core PDF fonts only cover Latin-1.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
