package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/app"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/ingest"
)

func main() {
	var (
		dumpDir = flag.String("dump", "", "acquire every document in this directory and write <name>.txt dumps")
		outDir  = flag.String("out", "", "directory for -dump output (defaults to the -dump directory)")
	)
	flag.Parse()

	logger := app.NewLogger()
	cfg := common.LoadConfig()

	ext, err := app.NewExtractor(cfg.OCR, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}

	if *dumpDir != "" {
		out := *outDir
		if out == "" {
			out = *dumpDir
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		written, err := ingest.DumpText(ctx, ext, *dumpDir, out, logger)
		if err != nil {
			logger.Error("text dump failed", "dir", *dumpDir, "error", err)
			os.Exit(1)
		}
		logger.Info("text dump complete", "dir", *dumpDir, "out", out, "written", len(written))
		return
	}

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr <file> | runocr -dump <dir> [-out <dir>]")
		os.Exit(2)
	}
	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "file", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.DocumentTimeout)
	defer cancel()

	res := ext.Acquire(ctx, data, constants.KindFromName(path))
	if res.Err != nil && res.Text == "" {
		logger.Error("text extraction failed",
			"file", path, "method", res.Method, "error", res.Err, "duration_ms", res.Duration.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"file", path,
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	fmt.Println(res.Text)
}
