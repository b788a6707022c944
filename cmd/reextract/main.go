package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joseph-ayodele/invoice-intake/internal/app"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/ingest"
	"github.com/joseph-ayodele/invoice-intake/internal/parse"
	"github.com/joseph-ayodele/invoice-intake/internal/tenant"
)

func main() {
	var (
		dir        = flag.String("dir", "", "folder of <name>.txt text dumps (required)")
		tenantName = flag.String("tenant", "local", "tenant whose CSV log is rewritten")
		out        = flag.String("csv", "", "CSV to rewrite (defaults to the tenant's CSV log)")
	)
	flag.Parse()
	if *dir == "" {
		fmt.Fprintln(os.Stderr, "Error: --dir is required")
		os.Exit(2)
	}

	logger := app.NewLogger()
	cfg := common.LoadConfig()

	csvPath := *out
	if csvPath == "" {
		if err := tenant.ValidateName(*tenantName); err != nil {
			logger.Error("invalid tenant", "tenant", *tenantName, "error", err)
			os.Exit(2)
		}
		csvPath = tenant.Expand(cfg.Storage.CSVPath, *tenantName)
	}

	invs, err := ingest.Reextract(*dir, csvPath, parse.New(nil), logger)
	if err != nil {
		logger.Error("re-extraction failed", "dir", *dir, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Rewrote %s with %d rows\n", csvPath, len(invs))
}
