package render

import (
	"image"
	"strings"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/noah-isme/badge-issuance-api/internal/models"
)

// Layout constants, in pixels on the 1122x768 card templates. Tuned
// against the printed card stock; do not derive them from image size.
const (
	photoX      = 20
	photoY      = 20
	photoWidth  = 300
	photoHeight = 400

	numberRightX = 40
	numberY      = 30

	nameLine1X = 30
	nameLine2X = 60

	positionBaselineX = 510

	workDateX = 450
)

// Font point sizes matching the card templates.
const (
	sizeBold      = 60
	sizeZoneLong  = 96
	sizeZoneShort = 120
)

// positionOffsets maps known role phrases to a tuned x offset for the
// position line. Longer phrases start further left so they stay on the
// card. Unrecognized text keeps the baseline offset; this mirrors how
// cards have always been laid out and is not a defect.
var positionOffsets = []struct {
	phrase string
	x      float64
}{
	{"รักษาความปลอดภัย", 430},
	{"ผู้อำนวยการ", 470},
	{"หัวหน้า", 490},
}

// colorHidesName marks categories whose cards omit the subject name.
var colorHidesName = map[models.ColorKey]bool{
	models.ColorGreen: true,
}

// Subject carries the fields of a staff profile the card displays.
type Subject struct {
	Title       string
	FirstName   string
	LastName    string
	DisplayName string
	Position    string
	ZoneCode    string
}

// Input is everything Compose needs. WorkDate is the pre-formatted
// Thai date string, empty when no work date is configured; rendering
// never consults the wall clock so identical inputs yield identical
// pixels.
type Input struct {
	Subject  Subject
	Number   string
	Color    models.ColorKey
	Photo    image.Image
	WorkDate string
}

// Renderer composites badge artifacts from template, photo and text
// layers.
type Renderer struct {
	assets *Assets
}

// New returns a renderer over the given assets.
func New(assets *Assets) *Renderer {
	return &Renderer{assets: assets}
}

// Compose builds the badge image. Layers are drawn in a fixed order:
// background template, photo, badge number, zone code, name, position,
// work date. The signatory block is applied separately (see
// ApplySignature).
func (r *Renderer) Compose(in Input) (image.Image, error) {
	template, err := r.assets.Template(in.Color)
	if err != nil {
		return nil, err
	}

	bounds := template.Bounds()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	dc.DrawImage(template, 0, 0)

	if in.Color.RequiresPhoto() && in.Photo != nil {
		dc.DrawImage(scaleTo(in.Photo, photoWidth, photoHeight), photoX, photoY)
	}

	dc.SetRGB(0, 0, 0)

	// Badge number, Thai numerals, right-aligned in the top corner.
	dc.SetFontFace(r.assets.Face(true, sizeBold))
	dc.DrawStringAnchored("หมายเลข "+numberNumeral(in.Number), w-numberRightX, numberY, 1, 1)

	if in.Subject.ZoneCode != "" {
		r.drawZone(dc, w, in.Subject.ZoneCode)
	}

	if !colorHidesName[in.Color] {
		line1, line2 := nameLines(in.Subject)
		dc.SetRGB(0, 0, 0)
		dc.SetFontFace(r.assets.Face(true, sizeBold))
		dc.DrawStringAnchored(line1, nameLine1X, h-330, 0, 1)
		if line2 != "" {
			dc.DrawStringAnchored(line2, nameLine2X, h-270, 0, 1)
		}
	}

	if in.Subject.Position != "" {
		dc.SetRGB(0, 0, 0)
		dc.SetFontFace(r.assets.Face(true, sizeBold))
		dc.DrawStringAnchored(in.Subject.Position, positionX(in.Subject.Position), h-280, 0, 1)
	}

	if in.WorkDate != "" {
		dc.SetRGB(0, 0, 0)
		dc.SetFontFace(r.assets.Face(true, sizeBold))
		dc.DrawStringAnchored("วันที่ "+in.WorkDate, workDateX, h-220, 0, 1)
	}

	return dc.Image(), nil
}

// drawZone draws the zone code in a red outline box at the bottom
// right. Single-character codes use a larger face and sit further
// right than longer codes so the box stays visually centered.
func (r *Renderer) drawZone(dc *gg.Context, w float64, code string) {
	size := float64(sizeZoneShort)
	textX := w - 170
	if len([]rune(code)) > 1 {
		size = sizeZoneLong
		textX = w - 230
	}
	textY := 620.0

	dc.SetFontFace(r.assets.Face(true, size))
	tw, th := dc.MeasureString(code)

	boxX := textX + 10
	boxY := 655.0
	dc.SetRGB255(255, 0, 0)
	dc.SetLineWidth(4)
	dc.DrawRectangle(boxX-60, boxY-20, tw+120, th+50)
	dc.Stroke()

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(code, textX, textY, 0, 1)
}

// nameLines derives the two printed name lines. A display name with an
// embedded line break wins; otherwise the lines are built from the
// structured name fields.
func nameLines(s Subject) (string, string) {
	if s.DisplayName != "" && strings.Contains(s.DisplayName, "\n") {
		parts := strings.SplitN(s.DisplayName, "\n", 2)
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(s.Title + " " + s.FirstName), s.LastName
}

func positionX(position string) float64 {
	for _, entry := range positionOffsets {
		if strings.Contains(position, entry.phrase) {
			return entry.x
		}
	}
	return positionBaselineX
}

// numberNumeral extracts the numeral suffix from a full badge number
// such as "pink-๐๐๑".
func numberNumeral(number string) string {
	if i := strings.LastIndex(number, "-"); i >= 0 {
		return number[i+1:]
	}
	return number
}

// scaleTo resizes src to exactly w x h.
func scaleTo(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
