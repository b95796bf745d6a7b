package render

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/noah-isme/badge-issuance-api/internal/models"
	"github.com/noah-isme/badge-issuance-api/pkg/config"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
)

// Assets resolves the static inputs for badge rendering: per-color
// background templates and the TH Sarabun font files. Templates and
// parsed fonts are cached after first load.
type Assets struct {
	templateDir string
	fontRegular string
	fontBold    string
	logger      *zap.Logger

	mu        sync.Mutex
	templates map[models.ColorKey]image.Image
	regular   *truetype.Font
	bold      *truetype.Font
	fontsOnce sync.Once
}

// LoadAssets builds an asset resolver from configuration.
func LoadAssets(cfg config.AssetsConfig, logger *zap.Logger) *Assets {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assets{
		templateDir: cfg.TemplateDir,
		fontRegular: cfg.FontRegular,
		fontBold:    cfg.FontBold,
		logger:      logger,
		templates:   make(map[models.ColorKey]image.Image),
	}
}

// Template returns the background image for a badge color. A missing
// template is a configuration error, not a user error.
func (a *Assets) Template(color models.ColorKey) (image.Image, error) {
	if !color.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTemplateMissing, fmt.Sprintf("unknown badge color %q", color))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if img, ok := a.templates[color]; ok {
		return img, nil
	}

	path := filepath.Join(a.templateDir, string(color)+".png")
	f, err := os.Open(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTemplateMissing.Code, appErrors.ErrTemplateMissing.Status,
			fmt.Sprintf("template file not found: %s", path))
	}
	defer f.Close() //nolint:errcheck

	img, err := png.Decode(f)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTemplateMissing.Code, appErrors.ErrTemplateMissing.Status,
			fmt.Sprintf("template file unreadable: %s", path))
	}

	a.templates[color] = img
	return img, nil
}

// Face returns a font face at the requested point size. When the TTF
// assets cannot be read the built-in face is used instead; rendering
// must never abort on a missing font.
func (a *Assets) Face(bold bool, size float64) font.Face {
	a.fontsOnce.Do(func() {
		a.regular = a.parseFont(a.fontRegular)
		a.bold = a.parseFont(a.fontBold)
	})

	f := a.regular
	if bold {
		f = a.bold
	}
	if f == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(f, &truetype.Options{Size: size})
}

func (a *Assets) parseFont(path string) *truetype.Font {
	data, err := os.ReadFile(path)
	if err != nil {
		a.logger.Warn("font asset missing, using fallback face",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	f, err := truetype.Parse(data)
	if err != nil {
		a.logger.Warn("font asset unreadable, using fallback face",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	return f
}
