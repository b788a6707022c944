package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/invoice-intake/internal/auth"
	"github.com/joseph-ayodele/invoice-intake/internal/export"
	"github.com/joseph-ayodele/invoice-intake/internal/generate"
	"github.com/joseph-ayodele/invoice-intake/internal/pipeline"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// DefaultMaxUploadBytes caps one multipart upload request.
const DefaultMaxUploadBytes int64 = 64 << 20

// TenantResolver maps a tenant name to its storage handle. *tenant.Registry satisfies it.
type TenantResolver interface {
	Resolve(ctx context.Context, name string) (repository.Handle, error)
}

// BatchRunner is satisfied by *pipeline.Batch.
type BatchRunner interface {
	Run(ctx context.Context, h repository.Handle, docs []pipeline.Document) pipeline.Report
}

// InvoiceCreator is satisfied by *generate.Service.
type InvoiceCreator interface {
	Create(ctx context.Context, h repository.Handle, in generate.Input) (generate.Created, error)
}

// Deps wires the HTTP API to the pipeline.
type Deps struct {
	Auth           auth.Authenticator
	Tenants        TenantResolver
	Batch          BatchRunner
	Invoices       InvoiceCreator
	Export         *export.Service
	Gatherer       prometheus.Gatherer // nil serves the default registry
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type api struct {
	Deps
	logger *slog.Logger
}

// NewRouter builds the gin engine. Tenant routes require HTTP basic auth and
// the authenticated user must own the tenant in the path.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if d.Export == nil {
		d.Export = export.NewService(logger)
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	a := &api{Deps: d, logger: logger}

	r := gin.New()
	r.Use(requestID(), accessLog(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/auth/register", a.register)

	t := v1.Group("/tenants/:tenant", a.basicAuth(), a.resolveTenant())
	t.POST("/uploads", a.upload)
	t.POST("/invoices", a.createInvoice)
	t.GET("/invoices", a.listInvoices)
	t.GET("/export.xlsx", a.exportXLSX)

	return r
}
