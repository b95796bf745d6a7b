package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Sheet geometry. Eight card artifacts per A4 page in a 2x4 grid. The
// inter-cell gap is negative on purpose: the card templates carry a
// built-in margin, and overlapping the cells by this calibrated amount
// makes adjacent cards visually abut on the cut sheet.
const (
	MaxBadgesPerSheet = 8

	sheetCols = 2
	sheetRows = 4

	cellWidthMM  = 95.0
	cellHeightMM = 65.0
	cellGapMM    = -1.5
)

// SheetExporter arranges rendered badge artifacts onto printable A4
// sheets.
type SheetExporter struct{}

// NewSheetExporter constructs a sheet exporter.
func NewSheetExporter() *SheetExporter {
	return &SheetExporter{}
}

// Render lays out up to 8 PNG artifacts into the 2x4 grid and returns
// the PDF document. Artifacts are pre-sized to the physical card
// dimensions, so each is stretched to fill its cell exactly rather
// than letterboxed.
func (e *SheetExporter) Render(artifacts [][]byte) ([]byte, error) {
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("sheet requires at least one artifact")
	}
	if len(artifacts) > MaxBadgesPerSheet {
		return nil, fmt.Errorf("sheet holds at most %d artifacts, got %d", MaxBadgesPerSheet, len(artifacts))
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	gridW := sheetCols*cellWidthMM + (sheetCols-1)*cellGapMM
	gridH := sheetRows*cellHeightMM + (sheetRows-1)*cellGapMM
	originX := (pageW - gridW) / 2
	originY := (pageH - gridH) / 2

	for i, artifact := range artifacts {
		name := fmt.Sprintf("badge_%d", i)
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(artifact))
		if pdf.Err() {
			return nil, fmt.Errorf("register artifact %d: %s", i, pdf.Error())
		}

		col := i % sheetCols
		row := i / sheetCols
		x := originX + float64(col)*(cellWidthMM+cellGapMM)
		y := originY + float64(row)*(cellHeightMM+cellGapMM)

		pdf.ImageOptions(name, x, y, cellWidthMM, cellHeightMM, false, opts, 0, "")
		if pdf.Err() {
			return nil, fmt.Errorf("place artifact %d: %s", i, pdf.Error())
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render sheet pdf: %w", err)
	}
	return buf.Bytes(), nil
}
