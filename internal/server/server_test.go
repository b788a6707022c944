package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/auth"
	"github.com/joseph-ayodele/invoice-intake/internal/export"
	"github.com/joseph-ayodele/invoice-intake/internal/generate"
	"github.com/joseph-ayodele/invoice-intake/internal/metrics"
	"github.com/joseph-ayodele/invoice-intake/internal/ocr"
	"github.com/joseph-ayodele/invoice-intake/internal/parse"
	"github.com/joseph-ayodele/invoice-intake/internal/pipeline"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
	"github.com/joseph-ayodele/invoice-intake/internal/tenant"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const invoiceText = `TAX INVOICE
Invoice No: INV/2025/0099
Date: 12/05/2024
Buyer Name: Asha Traders
Item: Power Bank Qty: 2 Rate: 500
Total Amount: ₹1,180.00`

func init() { gin.SetMode(gin.TestMode) }

func clock() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }

// textAcquirer treats the upload bytes as already extracted text.
type textAcquirer struct{}

func (textAcquirer) Acquire(_ context.Context, data []byte, _ constants.Kind) ocr.Result {
	return ocr.Result{Text: string(data), Method: "stub"}
}

type testAPI struct {
	router  *gin.Engine
	dir     string
	reg     *prometheus.Registry
	tenants *tenant.Registry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dir := t.TempDir()

	store := auth.NewFileStore(filepath.Join(dir, "users.json"), quietLogger).WithCost(bcrypt.MinCost)
	_, err := store.Register("alice", "secret1")
	require.NoError(t, err)

	tenants := tenant.NewRegistry(tenant.Config{
		CSVPath: filepath.Join(dir, "users", tenant.Placeholder, "invoices.csv"),
		DB: repository.Config{
			Driver: "sqlite",
			DSN:    filepath.Join(dir, "users", tenant.Placeholder, "invoices.db"),
		},
	}, quietLogger)
	t.Cleanup(tenants.Close)

	reg := prometheus.NewRegistry()
	sink := repository.NewSink(quietLogger)
	proc := pipeline.NewProcessor(textAcquirer{}, parse.New(nil, parse.WithClock(clock)), sink, quietLogger,
		pipeline.WithMetrics(metrics.NewPipeline(reg)))

	router := NewRouter(Deps{
		Auth:     store,
		Tenants:  tenants,
		Batch:    pipeline.NewBatch(proc, quietLogger),
		Invoices: generate.NewService(sink, filepath.Join(dir, "generated"), quietLogger, generate.WithClock(clock)),
		Export:   export.NewService(quietLogger),
		Gatherer: reg,
		Logger:   quietLogger,
	})
	return &testAPI{router: router, dir: dir, reg: reg, tenants: tenants}
}

func (a *testAPI) do(t *testing.T, req *http.Request, user, pass string) *httptest.ResponseRecorder {
	t.Helper()
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, path string, files map[string]string, order []string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range order {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	// Upload one document so the counters have samples.
	req := uploadRequest(t, "/v1/tenants/alice/uploads", map[string]string{"inv.pdf": invoiceText}, []string{"inv.pdf"})
	require.Equal(t, http.StatusOK, api.do(t, req, "alice", "secret1").Code)

	w = api.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "invoice_intake_documents_total")
}

func TestRegister(t *testing.T) {
	api := newTestAPI(t)
	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return api.do(t, req, "", "")
	}

	assert.Equal(t, http.StatusCreated, post(`{"username":"bob","password":"hunter22"}`).Code)
	assert.Equal(t, http.StatusConflict, post(`{"username":"bob","password":"hunter22"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"username":"bob"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"username":"../etc","password":"hunter22"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)
}

func TestTenantRoutesRequireOwner(t *testing.T) {
	api := newTestAPI(t)
	list := func(path, user, pass string) *httptest.ResponseRecorder {
		return api.do(t, httptest.NewRequest(http.MethodGet, path, nil), user, pass)
	}

	w := list("/v1/tenants/alice/invoices", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")

	assert.Equal(t, http.StatusUnauthorized, list("/v1/tenants/alice/invoices", "alice", "wrong").Code)
	assert.Equal(t, http.StatusForbidden, list("/v1/tenants/bob/invoices", "alice", "secret1").Code)
	assert.Equal(t, http.StatusOK, list("/v1/tenants/alice/invoices", "alice", "secret1").Code)

	_, opened := api.tenants.DB("bob")
	assert.False(t, opened, "storage of other tenants is never opened")
}

func TestUploadBatch(t *testing.T) {
	api := newTestAPI(t)
	files := map[string]string{
		"inv.pdf":    invoiceText,
		"notes.docx": "whatever",
		"blank.png":  "",
	}
	req := uploadRequest(t, "/v1/tenants/alice/uploads", files, []string{"inv.pdf", "notes.docx", "blank.png"})
	w := api.do(t, req, "alice", "secret1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp uploadResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.BatchID)
	assert.Equal(t, "✅ Parsed and saved: inv.pdf\n\n"+
		"❌ Unsupported file type: notes.docx\n\n"+
		"⚠️ OCR returned empty text for blank.png", resp.Status)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, constants.OutcomeSaved, resp.Results[0].Outcome)
	require.NotNil(t, resp.Results[0].Invoice)
	assert.Equal(t, "INV/2025/0099", resp.Results[0].Invoice.InvoiceNo)
	assert.Equal(t, "inv.pdf", resp.Results[0].Invoice.SourceFile)
	assert.Nil(t, resp.Results[1].Invoice)
	assert.Equal(t, constants.OutcomeUnsupported, resp.Results[1].Outcome)
	assert.Equal(t, constants.OutcomeNoText, resp.Results[2].Outcome)
	assert.Equal(t, 1, resp.Counts[constants.OutcomeSaved])

	for _, source := range []string{"", "?source=csv", "?source=db"} {
		t.Run("list"+source, func(t *testing.T) {
			w := api.do(t, httptest.NewRequest(http.MethodGet, "/v1/tenants/alice/invoices"+source, nil), "alice", "secret1")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var body struct {
				Count    int              `json:"count"`
				Invoices []map[string]any `json:"invoices"`
			}
			decode(t, w, &body)
			require.Equal(t, 1, body.Count)
			assert.Equal(t, "INV/2025/0099", body.Invoices[0]["Invoice_No"])
			assert.EqualValues(t, 1180, body.Invoices[0]["Total"])
		})
	}

	w = api.do(t, httptest.NewRequest(http.MethodGet, "/v1/tenants/alice/invoices?source=ftp", nil), "alice", "secret1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsEmptyForm(t *testing.T) {
	api := newTestAPI(t)

	req := uploadRequest(t, "/v1/tenants/alice/uploads", nil, nil)
	assert.Equal(t, http.StatusBadRequest, api.do(t, req, "alice", "secret1").Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/tenants/alice/uploads", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, api.do(t, req, "alice", "secret1").Code)
}

func TestCreateInvoice(t *testing.T) {
	api := newTestAPI(t)
	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/tenants/alice/invoices", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return api.do(t, req, "alice", "secret1")
	}

	w := post(`{"buyer_name":"Asha Traders","qty":2,"rate":500}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Invoice map[string]any `json:"invoice"`
		PDF     string         `json:"pdf"`
		Warning string         `json:"warning"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "INV_2025_089019.pdf", resp.PDF)
	assert.Empty(t, resp.Warning)
	assert.Equal(t, "Asha Traders", resp.Invoice["Buyer_Name"])
	assert.EqualValues(t, 1000, resp.Invoice["Amount"])
	assert.EqualValues(t, 90, resp.Invoice["CGST"])
	assert.EqualValues(t, 1180, resp.Invoice["Total"])
	assert.Equal(t, "INV/2025/089019.pdf", resp.Invoice["Source_File"])
	assert.FileExists(t, filepath.Join(api.dir, "generated", "alice", "INV_2025_089019.pdf"))

	rows, err := repository.ReadCSV(filepath.Join(api.dir, "users", "alice", "invoices.csv"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, http.StatusBadRequest, post(`{"qty":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"colour":"red"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{`).Code)
}

func TestExportXLSX(t *testing.T) {
	api := newTestAPI(t)
	req := uploadRequest(t, "/v1/tenants/alice/uploads", map[string]string{"inv.pdf": invoiceText}, []string{"inv.pdf"})
	require.Equal(t, http.StatusOK, api.do(t, req, "alice", "secret1").Code)

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/v1/tenants/alice/export.xlsx", nil), "alice", "secret1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "alice-invoices.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.Sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "INV/2025/0099", rows[1][0])
}

func TestServeHTTPAndHealth(t *testing.T) {
	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(newTestAPI(t).router, quietLogger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, httpLis, grpcLis) }()

	resp, err := http.Get("http://" + httpLis.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	conn, err := grpc.NewClient(grpcLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	checkCtx, checkCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer checkCancel()
	hc, err := grpc_health_v1.NewHealthClient(conn).Check(checkCtx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, hc.GetStatus())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
}
