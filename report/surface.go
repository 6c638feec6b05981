package report

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/escpos"
	"github.com/rxdesk/rxdesk/internal/printing/render"
)

// ErrSurfaceUnavailable is returned when a print surface cannot be opened.
var ErrSurfaceUnavailable = fmt.Errorf("print surface: %w", httpx.ErrUnavailable)

var errNoDocument = errors.New("print surface: no document written")

// printDelay is the pause between load and the print dialog.
const printDelay = 50 * time.Millisecond

// Surface hands rendered documents to an output device.
type Surface interface {
	Open(ctx context.Context) (Output, error)
}

// Output is one opened print job.
type Output interface {
	Write(doc render.Document) error
	Print(ctx context.Context) (Artifact, error)
}

// Artifact is what a surface produced for the caller.
type Artifact struct {
	ContentType string
	Filename    string
	Body        []byte
	// Destination is set when the artifact was sent to a device.
	Destination string
}

// Surfaces maps output formats to surfaces.
type Surfaces map[string]Surface

// ContentTypeESCPOS labels raw ESC/POS streams.
const ContentTypeESCPOS = "application/vnd.escpos"

// Surface formats.
const (
	FormatHTML    = "html"
	FormatPDF     = "pdf"
	FormatPrinter = "printer"
)

// NewSurfaces builds the surfaces available to the print pipeline. The
// printer surface fails to open unless a network printer is configured.
func NewSurfaces(client *Client, printer PrinterSurface) Surfaces {
	if printer.Client == nil {
		printer.Client = client
	}
	return Surfaces{
		FormatHTML:    BrowserSurface{},
		FormatPDF:     PDFSurface{Client: client},
		FormatPrinter: printer,
	}
}

// BrowserSurface returns the HTML document with a script that opens the
// print dialog shortly after load.
type BrowserSurface struct{}

// Open implements Surface.
func (BrowserSurface) Open(context.Context) (Output, error) {
	return &browserOutput{}, nil
}

type browserOutput struct {
	doc *render.Document
}

func (o *browserOutput) Write(doc render.Document) error {
	o.doc = &doc
	return nil
}

func (o *browserOutput) Print(context.Context) (Artifact, error) {
	if o.doc == nil {
		return Artifact{}, errNoDocument
	}
	return Artifact{
		ContentType: "text/html; charset=utf-8",
		Filename:    filename(*o.doc, "html"),
		Body:        []byte(withPrintScript(o.doc.HTML)),
	}, nil
}

func withPrintScript(html string) string {
	script := fmt.Sprintf(`<script>window.addEventListener("load",function(){setTimeout(function(){window.print();},%d);});</script>`, printDelay.Milliseconds())
	if i := strings.LastIndex(html, "</body>"); i >= 0 {
		return html[:i] + script + html[i:]
	}
	return html + script
}

// PDFSurface converts documents to PDF through Gotenberg.
type PDFSurface struct {
	Client *Client
}

// Open implements Surface. The converter is health-checked up front.
func (s PDFSurface) Open(ctx context.Context) (Output, error) {
	if s.Client == nil {
		return nil, ErrSurfaceUnavailable
	}
	if err := s.Client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	return &pdfOutput{client: s.Client}, nil
}

type pdfOutput struct {
	client *Client
	doc    *render.Document
}

func (o *pdfOutput) Write(doc render.Document) error {
	o.doc = &doc
	return nil
}

func (o *pdfOutput) Print(ctx context.Context) (Artifact, error) {
	if o.doc == nil {
		return Artifact{}, errNoDocument
	}
	pdf, err := o.client.RenderHTML(ctx, o.doc.HTML, PageFor(*o.doc))
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{ContentType: "application/pdf", Filename: filename(*o.doc, "pdf"), Body: pdf}, nil
}

// PrinterSurface sends documents to a raw network printer (port 9100).
// Thermal papers are encoded as ESC/POS. A4 documents are converted to PDF
// through Gotenberg, so A4 needs a printer that accepts PDF on its raw port.
type PrinterSurface struct {
	Client *Client
	// Type is "network" or "none".
	Type string
	// Addr is host:port; the port defaults to 9100.
	Addr        string
	Encoder     escpos.Encoder
	DialTimeout time.Duration
}

// Open implements Surface.
func (s PrinterSurface) Open(ctx context.Context) (Output, error) {
	if s.Type != "network" || strings.TrimSpace(s.Addr) == "" {
		return nil, ErrSurfaceUnavailable
	}
	addr := s.Addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "9100")
	}
	timeout := s.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	return &printerOutput{client: s.Client, encoder: s.Encoder, conn: conn, addr: addr}, nil
}

type printerOutput struct {
	client  *Client
	encoder escpos.Encoder
	conn    net.Conn
	addr    string
	doc     *render.Document
}

func (o *printerOutput) Write(doc render.Document) error {
	o.doc = &doc
	return nil
}

func (o *printerOutput) Print(ctx context.Context) (Artifact, error) {
	defer func() {
		_ = o.conn.Close()
	}()
	if o.doc == nil {
		return Artifact{}, errNoDocument
	}
	art, err := o.payload(ctx)
	if err != nil {
		return Artifact{}, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = o.conn.SetWriteDeadline(deadline)
	}
	if _, err := o.conn.Write(art.Body); err != nil {
		return Artifact{}, fmt.Errorf("send to printer %s: %w", o.addr, err)
	}
	art.Destination = o.addr
	return art, nil
}

func (o *printerOutput) payload(ctx context.Context) (Artifact, error) {
	if o.doc.Paper.Thermal() {
		return Artifact{ContentType: ContentTypeESCPOS, Filename: filename(*o.doc, "bin"), Body: o.encoder.Encode(*o.doc)}, nil
	}
	if o.client == nil {
		return Artifact{}, fmt.Errorf("%w: no PDF converter for %s paper", ErrSurfaceUnavailable, o.doc.Paper)
	}
	pdf, err := o.client.RenderHTML(ctx, o.doc.HTML, PageFor(*o.doc))
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{ContentType: "application/pdf", Filename: filename(*o.doc, "pdf"), Body: pdf}, nil
}

func filename(doc render.Document, ext string) string {
	name := string(doc.DocType)
	if name == "" {
		name = "document"
	}
	return name + "." + ext
}
