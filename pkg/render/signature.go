package render

import (
	"image"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/noah-isme/badge-issuance-api/internal/models"
)

// Signatory block geometry. The text block is pinned to the reserved
// region height rather than the signature bitmap's actual height, so
// the name and position lines sit at the same place in both modes.
const (
	signatureX        = 30
	signatureYFromBot = 200
	signatureReserved = 80
	signatureMaxW     = 200
	signatureMaxH     = 80
	signatureTextGap  = 5
	signatureLineGap  = 40
)

// Signer carries the signatory fields the overlay draws.
type Signer struct {
	Rank      string
	FirstName string
	LastName  string
	Position  string
	Signature image.Image
}

// ApplySignature composites the signatory block onto an already
// rendered badge. Manual mode leaves the reserved region blank for a
// wet signature; electronic mode pastes the signature thumbnail above
// the same text block.
func (r *Renderer) ApplySignature(badge image.Image, signer Signer, mode models.SignatureMode) image.Image {
	bounds := badge.Bounds()
	h := float64(bounds.Dy())

	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	dc.DrawImage(badge, 0, 0)

	sigY := h - signatureYFromBot

	if mode == models.SignatureElectronic && signer.Signature != nil {
		thumb := thumbnail(signer.Signature, signatureMaxW, signatureMaxH)
		dc.DrawImage(thumb, signatureX, int(sigY))
	}

	dc.SetRGB(0, 0, 0)
	dc.SetFontFace(r.assets.Face(true, sizeBold))

	textY := sigY + signatureReserved + signatureTextGap
	name := signer.FirstName + " " + signer.LastName
	if signer.Rank != "" {
		name = signer.Rank + " " + name
	}
	dc.DrawStringAnchored(name, signatureX, textY, 0, 1)
	if signer.Position != "" {
		dc.DrawStringAnchored(signer.Position, signatureX, textY+signatureLineGap, 0, 1)
	}

	return dc.Image()
}

// thumbnail resizes src to fit inside maxW x maxH preserving aspect.
func thumbnail(src image.Image, maxW, maxH int) image.Image {
	sw := src.Bounds().Dx()
	sh := src.Bounds().Dy()
	if sw <= maxW && sh <= maxH {
		return src
	}

	scaleW := float64(maxW) / float64(sw)
	scaleH := float64(maxH) / float64(sh)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	dw := int(float64(sw) * scale)
	dh := int(float64(sh) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
