package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/export"
	"github.com/joseph-ayodele/invoice-intake/internal/generate"
	"github.com/joseph-ayodele/invoice-intake/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type documentResult struct {
	File    string            `json:"file"`
	Kind    string            `json:"kind"`
	Outcome constants.Outcome `json:"outcome"`
	Message string            `json:"message"`
	Warning string            `json:"warning,omitempty"`
	Invoice *entity.Invoice   `json:"invoice,omitempty"`
}

type uploadResponse struct {
	BatchID string                    `json:"batch_id"`
	Status  string                    `json:"status"`
	Counts  map[constants.Outcome]int `json:"counts"`
	Results []documentResult          `json:"results"`
}

type createResponse struct {
	Invoice entity.Invoice `json:"invoice"`
	PDF     string         `json:"pdf"`
	Warning string         `json:"warning,omitempty"`
}

func (a *api) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	created, err := a.Auth.Register(req.Username, req.Password)
	if err != nil {
		a.logger.Warn("server.register.failed", "tenant", req.Username, "error", err)
		abortError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": req.Username})
}

// upload runs every file of the multipart "files" field through one batch.
// Per-document failures are reported in the body; the request itself succeeds.
func (a *api) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected a multipart form"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}

	docs := make([]pipeline.Document, 0, len(files))
	for _, fh := range files {
		doc, err := readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		docs = append(docs, doc)
	}

	rep := a.Batch.Run(c.Request.Context(), handleFrom(c), docs)
	resp := uploadResponse{
		BatchID: rep.ID,
		Status:  rep.Status(),
		Counts:  rep.Counts(),
		Results: make([]documentResult, 0, len(rep.Results)),
	}
	for _, res := range rep.Results {
		o := res.Outcome
		item := documentResult{
			File:    o.File,
			Kind:    string(o.Kind),
			Outcome: o.Code,
			Message: o.Message,
			Warning: o.Warning,
		}
		if o.OK() {
			inv := res.Invoice
			item.Invoice = &inv
		}
		resp.Results = append(resp.Results, item)
	}
	c.JSON(http.StatusOK, resp)
}

func readUpload(fh *multipart.FileHeader) (pipeline.Document, error) {
	name := filepath.Base(fh.Filename)
	f, err := fh.Open()
	if err != nil {
		return pipeline.Document{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return pipeline.Document{}, fmt.Errorf("read %s: %w", name, err)
	}
	return pipeline.Document{Name: name, Data: data}, nil
}

func (a *api) createInvoice(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	in, err := generate.DecodeInput(body)
	if err != nil {
		abortError(c, err)
		return
	}
	created, err := a.Invoices.Create(c.Request.Context(), handleFrom(c), in)
	if err != nil {
		a.logger.Error("server.invoice.create.failed", "tenant", handleFrom(c).Tenant, "error", err)
		abortError(c, err)
		return
	}
	resp := createResponse{Invoice: created.Invoice, PDF: filepath.Base(created.PDFPath)}
	if created.InsertErr != nil {
		resp.Warning = fmt.Sprintf("⚠️ DB insert warning for %s: %v", created.Invoice.SourceFile, created.InsertErr)
	}
	c.JSON(http.StatusCreated, resp)
}

func (a *api) listInvoices(c *gin.Context) {
	src, err := sourceFor(c)
	if err != nil {
		abortError(c, err)
		return
	}
	invs, err := src.List(c.Request.Context())
	if err != nil {
		a.logger.Error("server.invoices.list.failed", "tenant", handleFrom(c).Tenant, "error", err)
		abortError(c, err)
		return
	}
	if invs == nil {
		invs = []entity.Invoice{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(invs), "invoices": invs})
}

func (a *api) exportXLSX(c *gin.Context) {
	src, err := sourceFor(c)
	if err != nil {
		abortError(c, err)
		return
	}
	h := handleFrom(c)
	data, err := a.Export.InvoicesXLSX(c.Request.Context(), h.Tenant, src)
	if err != nil {
		a.logger.Error("export.xlsx.failed", "tenant", h.Tenant, "error", err)
		abortError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-invoices.xlsx"`, h.Tenant))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// sourceFor reads ?source=csv (default) or ?source=db.
func sourceFor(c *gin.Context) (export.Source, error) {
	h := handleFrom(c)
	switch c.DefaultQuery("source", "csv") {
	case "csv":
		return export.CSVSource(h.CSVPath), nil
	case "db":
		if h.Invoices == nil {
			return nil, common.NewAppError("NO_DATABASE", "no database configured for tenant", common.ErrInvalidInput)
		}
		return h.Invoices, nil
	default:
		return nil, common.NewAppError("INVALID_SOURCE", "source must be csv or db", common.ErrInvalidInput)
	}
}
