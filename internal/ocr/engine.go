package ocr

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// RecognizeOptions carries per-call engine hints. PSM 0 leaves the engine default.
type RecognizeOptions struct {
	PSM int
}

// Engine recognizes the text in one image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, opts RecognizeOptions) (string, error)
}

// EngineConfig selects and configures an Engine.
type EngineConfig struct {
	Name          string // "tesseract" (default) | "azure" | "gosseract"
	AzureEndpoint string
	AzureKey      string
}

type engineFactory func(r Runner, cfg Config, ec EngineConfig) (Engine, error)

var (
	enginesMu sync.RWMutex
	engines   = map[string]engineFactory{
		"tesseract": func(r Runner, cfg Config, _ EngineConfig) (Engine, error) {
			return NewTesseractEngine(r, cfg), nil
		},
		"azure": func(_ Runner, _ Config, ec EngineConfig) (Engine, error) {
			return NewAzureEngine(ec.AzureEndpoint, ec.AzureKey)
		},
	}
)

func registerEngine(name string, f engineFactory) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[name] = f
}

// NewEngine builds the engine named by ec.Name. Engines behind build tags
// report an error when the binary was built without them.
func NewEngine(r Runner, cfg Config, ec EngineConfig) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(ec.Name))
	if name == "" {
		name = "tesseract"
	}
	enginesMu.RLock()
	f, ok := engines[name]
	known := make([]string, 0, len(engines))
	for k := range engines {
		known = append(known, k)
	}
	enginesMu.RUnlock()
	if !ok {
		sort.Strings(known)
		return nil, fmt.Errorf("ocr engine %q not available (have: %s)", name, strings.Join(known, ", "))
	}
	return f(r, cfg, ec)
}

// TesseractEngine runs the tesseract CLI on a temporary PNG.
type TesseractEngine struct {
	runner      Runner
	bin         string
	lang        string
	tessdataDir string
	oem         int
}

func NewTesseractEngine(r Runner, cfg Config) *TesseractEngine {
	bin, lang := cfg.Tesseract, cfg.TesseractLang
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	return &TesseractEngine{runner: r, bin: bin, lang: lang, tessdataDir: cfg.TessdataDir, oem: cfg.OEM}
}

func (t *TesseractEngine) Recognize(ctx context.Context, img image.Image, opts RecognizeOptions) (string, error) {
	path, cleanup, err := writeTemp(nil, "page.png")
	if err != nil {
		return "", err
	}
	defer cleanup()
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("write page image: %w", err)
	}

	// tesseract <file> stdout -l <lang> [--psm N] [--oem N] [--tessdata-dir D]
	args := []string{path, "stdout", "-l", t.lang}
	if opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PSM))
	}
	if t.oem > 0 {
		args = append(args, "--oem", strconv.Itoa(t.oem))
	}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return "", toolError("tesseract", err, errb)
	}
	return string(out), nil
}
