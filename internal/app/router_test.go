package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rxdesk/rxdesk/internal/auth"
	"github.com/rxdesk/rxdesk/internal/observability"
	"github.com/rxdesk/rxdesk/internal/receipt"
	receipthttp "github.com/rxdesk/rxdesk/internal/receipt/http"
	"github.com/rxdesk/rxdesk/internal/shared"
	"github.com/rxdesk/rxdesk/report"
	_ "github.com/rxdesk/rxdesk/testing"
)

type okPrinter struct{}

func (okPrinter) PrintSale(context.Context, receipt.PrintRequest) (receipt.Printed, error) {
	return receipt.Printed{Artifact: report.Artifact{ContentType: "text/html; charset=utf-8", Body: []byte("<html><script>window.print()</script></html>")}}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *auth.Verifier) {
	t.Helper()
	verifier := auth.NewVerifier("test-secret", "rxdesk")
	mw := auth.Middleware{Verifier: verifier}
	router := NewRouter(RouterParams{
		Logger:         NewLogger(&Config{LogFormat: "json"}),
		Config:         &Config{AppEnv: "test"},
		Auth:           mw,
		Metrics:        observability.NewMetrics(),
		ReceiptHandler: receipthttp.NewHandler(nil, okPrinter{}, nil, mw),
	})
	return router, verifier
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "default-src 'self'", rr.Header().Get("Content-Security-Policy"))
}

func TestPrintRoutesRequireBearer(t *testing.T) {
	router, verifier := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/print/sales/s1/receipt", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := verifier.Issue(shared.Scope{Subject: "u1", BranchID: "b1", Permissions: []string{shared.PermPrintReceipt}}, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/print/sales/s1/receipt", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, printDocumentCSP, rr.Header().Get("Content-Security-Policy"))
	require.Contains(t, rr.Body.String(), "window.print()")
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `rxdesk_http_requests_total{code="200",route="/healthz"}`)
}

func TestInTestMode(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}
