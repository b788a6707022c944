//go:build gosseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

func init() {
	registerEngine("gosseract", func(_ Runner, cfg Config, _ EngineConfig) (Engine, error) {
		return NewGosseractEngine(cfg), nil
	})
}

// GosseractEngine calls libtesseract in-process. Built only with -tags gosseract.
type GosseractEngine struct {
	lang string
}

func NewGosseractEngine(cfg Config) *GosseractEngine {
	lang := cfg.TesseractLang
	if lang == "" {
		lang = "eng"
	}
	return &GosseractEngine{lang: lang}
}

func (g *GosseractEngine) Recognize(ctx context.Context, img image.Image, opts RecognizeOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(g.lang); err != nil {
		return "", err
	}
	if opts.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
			return "", err
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", err
	}
	return client.Text()
}
