package report

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rxdesk/rxdesk/internal/printing/escpos"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/render"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
	"github.com/rxdesk/rxdesk/internal/printing/tokens"
)

func sampleDoc() render.Document {
	return render.Document{
		HTML:        "<!doctype html><html><body><div id=\"paper\"></div></body></html>",
		DocType:     schema.DocSale,
		Paper:       layout.Paper80,
		Orientation: layout.Portrait,
		MarginMm:    4,
	}
}

func printThrough(t *testing.T, s Surface) (Artifact, error) {
	t.Helper()
	out, err := s.Open(context.Background())
	if err != nil {
		return Artifact{}, err
	}
	require.NoError(t, out.Write(sampleDoc()))
	return out.Print(context.Background())
}

func TestBrowserSurfaceSchedulesPrintDialog(t *testing.T) {
	art, err := printThrough(t, BrowserSurface{})
	require.NoError(t, err)
	body := string(art.Body)
	require.Contains(t, body, "setTimeout(function(){window.print();},50)")
	require.Less(t, strings.Index(body, "<script>"), strings.Index(body, "</body>"))
	require.Equal(t, "sale.html", art.Filename)
}

func TestBrowserSurfaceRequiresDocument(t *testing.T) {
	out, err := BrowserSurface{}.Open(context.Background())
	require.NoError(t, err)
	_, err = out.Print(context.Background())
	require.Error(t, err)
}

func TestPDFSurfaceUnavailableWhenConverterDown(t *testing.T) {
	stub := &gotenbergStub{}
	_, err := printThrough(t, PDFSurface{Client: NewClient(stub.server(t).URL)})
	require.ErrorIs(t, err, ErrSurfaceUnavailable)

	_, err = PDFSurface{}.Open(context.Background())
	require.ErrorIs(t, err, ErrSurfaceUnavailable)
}

func TestPDFSurfaceConverts(t *testing.T) {
	stub := &gotenbergStub{healthy: true}
	art, err := printThrough(t, PDFSurface{Client: NewClient(stub.server(t).URL)})
	require.NoError(t, err)
	require.Equal(t, "application/pdf", art.ContentType)
	require.Equal(t, "80mm", stub.fields["paperWidth"])
}

func listenPrinter(t *testing.T) (string, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		raw, _ := io.ReadAll(conn)
		_ = conn.Close()
		received <- raw
	}()
	return ln.Addr().String(), received
}

func TestPrinterSurfaceSendsESCPOSForThermalPaper(t *testing.T) {
	addr, received := listenPrinter(t)
	doc := render.NewRenderer(render.Options{}).Render(render.FallbackTemplate(schema.DocSale, layout.Paper58), tokens.Context{BranchName: "Downtown"}, render.ModePrint, 4)

	out, err := PrinterSurface{Type: "network", Addr: addr}.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, out.Write(doc))
	art, err := out.Print(context.Background())
	require.NoError(t, err)

	require.Equal(t, addr, art.Destination)
	require.Equal(t, ContentTypeESCPOS, art.ContentType)
	require.Equal(t, "sale.bin", art.Filename)
	raw := <-received
	require.Equal(t, art.Body, raw)
	require.True(t, bytes.HasPrefix(raw, []byte{escpos.ESC, '@'}))
	require.Contains(t, string(raw), "Downtown")
	require.NotContains(t, string(raw), "%PDF")
}

func TestPrinterSurfaceSendsPDFForA4(t *testing.T) {
	stub := &gotenbergStub{healthy: true}
	addr, received := listenPrinter(t)
	doc := sampleDoc()
	doc.Paper = layout.PaperA4

	out, err := PrinterSurface{Client: NewClient(stub.server(t).URL), Type: "network", Addr: addr}.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, out.Write(doc))
	art, err := out.Print(context.Background())
	require.NoError(t, err)
	require.Equal(t, "application/pdf", art.ContentType)
	require.Equal(t, "%PDF-1.7 stub", string(<-received))
}

func TestPrinterSurfaceNoneIsUnavailable(t *testing.T) {
	stub := &gotenbergStub{healthy: true}
	surfaces := NewSurfaces(NewClient(stub.server(t).URL), PrinterSurface{Type: "none"})
	_, err := surfaces[FormatPrinter].Open(context.Background())
	require.ErrorIs(t, err, ErrSurfaceUnavailable)
}

func TestPingRoute(t *testing.T) {
	for _, healthy := range []bool{false, true} {
		stub := &gotenbergStub{healthy: healthy}
		r := chi.NewRouter()
		NewHandler(NewClient(stub.server(t).URL), nil).MountRoutes(r)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/surfaces/pdf/ping", nil))
		if healthy {
			require.Equal(t, http.StatusOK, rr.Code)
		} else {
			require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		}
	}
}
