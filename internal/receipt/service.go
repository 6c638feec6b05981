package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/render"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
	"github.com/rxdesk/rxdesk/internal/printing/templates"
	"github.com/rxdesk/rxdesk/internal/printing/tokens"
	"github.com/rxdesk/rxdesk/report"
)

// Source provides the sale data a receipt prints.
type Source interface {
	BranchName(ctx context.Context, branchID string) (string, error)
	SaleHeader(ctx context.Context, saleID string) (SaleHeader, error)
	SaleItems(ctx context.Context, saleID string) ([]SaleItem, error)
}

// TemplateResolver finds the effective template for a lookup.
type TemplateResolver interface {
	Effective(ctx context.Context, lookup templates.Lookup) (templates.Template, error)
}

// Recorder observes renders and print failures.
type Recorder interface {
	ObserveRender(docType, mode string)
	ObserveFailure(stage string)
}

// Options tunes a Service.
type Options struct {
	// Location is the zone receipt dates are printed in. Defaults to UTC.
	Location        *time.Location
	DefaultMarginMm float64
	Recorder        Recorder
	Logger          *slog.Logger
}

// Service runs the receipt print pipeline.
type Service struct {
	source    Source
	templates TemplateResolver
	renderer  *render.Renderer
	surfaces  report.Surfaces
	opts      Options
}

// NewService constructs a Service.
func NewService(source Source, tpls TemplateResolver, renderer *render.Renderer, surfaces report.Surfaces, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultMarginMm < 0 {
		opts.DefaultMarginMm = layout.DefaultMarginMm
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{source: source, templates: tpls, renderer: renderer, surfaces: surfaces, opts: opts}
}

type printInputs struct {
	branchName string
	template   schema.Schema
	header     SaleHeader
	items      []SaleItem
}

// PrintSale renders a sale receipt and hands it to the requested surface.
// Any data error aborts the job before output is produced.
func (s *Service) PrintSale(ctx context.Context, req PrintRequest) (Printed, error) {
	req.BranchID = strings.TrimSpace(req.BranchID)
	req.SaleID = strings.TrimSpace(req.SaleID)
	if req.BranchID == "" || req.SaleID == "" {
		return Printed{}, ErrMissingIDs
	}
	req.Paper = layout.ParsePaper(string(req.Paper))
	if req.MarginMm < 0 {
		req.MarginMm = s.opts.DefaultMarginMm
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = report.FormatHTML
	}
	surface, ok := s.surfaces[format]
	if !ok {
		return Printed{}, fmt.Errorf("%w: unknown format %q", httpx.ErrValidation, req.Format)
	}

	in, err := s.fetch(ctx, req)
	if err != nil {
		s.failure("data")
		return Printed{}, err
	}
	if in.header.BranchID != req.BranchID {
		return Printed{}, ErrSaleNotFound
	}

	doc := s.renderer.Render(in.template, s.dataContext(in), render.ModePrint, req.MarginMm)
	if s.opts.Recorder != nil {
		s.opts.Recorder.ObserveRender(string(doc.DocType), render.ModePrint.String())
	}

	out, err := surface.Open(ctx)
	if err != nil {
		s.failure("surface")
		return Printed{}, err
	}
	if err := out.Write(doc); err != nil {
		s.failure("surface")
		return Printed{}, err
	}
	art, err := out.Print(ctx)
	if err != nil {
		s.failure("surface")
		return Printed{}, err
	}
	s.opts.Logger.Info("receipt printed",
		slog.String("sale_id", req.SaleID),
		slog.String("branch_id", req.BranchID),
		slog.String("format", format),
		slog.String("paper", string(doc.Paper)),
	)
	return Printed{Document: doc, Artifact: art}, nil
}

func (s *Service) fetch(ctx context.Context, req PrintRequest) (printInputs, error) {
	var in printInputs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, err := s.source.BranchName(gctx, req.BranchID)
		if err != nil {
			return fmt.Errorf("branch name: %w", err)
		}
		in.branchName = name
		return nil
	})
	g.Go(func() error {
		tpl, err := s.templates.Effective(gctx, templates.Lookup{BranchID: req.BranchID, DocType: schema.DocSale, PaperSize: req.Paper})
		switch {
		case errors.Is(err, templates.ErrTemplateNotFound):
			in.template = render.FallbackTemplate(schema.DocSale, req.Paper)
		case err != nil:
			return fmt.Errorf("effective template: %w", err)
		case len(tpl.Schema.Elements) == 0:
			in.template = render.FallbackTemplate(schema.DocSale, req.Paper)
		default:
			in.template = tpl.PrintSchema(req.Paper)
		}
		return nil
	})
	g.Go(func() error {
		header, err := s.source.SaleHeader(gctx, req.SaleID)
		if err != nil {
			return err
		}
		in.header = header
		return nil
	})
	g.Go(func() error {
		items, err := s.source.SaleItems(gctx, req.SaleID)
		if err != nil {
			return fmt.Errorf("sale items: %w", err)
		}
		in.items = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return printInputs{}, err
	}
	if strings.TrimSpace(in.branchName) == "" {
		in.branchName = DefaultBranchName
	}
	return in, nil
}

func (s *Service) dataContext(in printInputs) tokens.Context {
	items := make([]tokens.Item, 0, len(in.items))
	for _, it := range in.items {
		items = append(items, tokens.Item{Name: it.DisplayName(), Qty: it.Qty.String(), Total: tokens.Money(it.LineTotal)})
	}
	return tokens.Context{
		BranchName: in.branchName,
		ListRef:    in.header.ListRef,
		Date:       in.header.CreatedAt.In(s.opts.Location).Format(DateLayout),
		Customer:   in.header.CustomerName,
		Subtotal:   tokens.Money(in.header.Subtotal),
		Discount:   tokens.Money(in.header.Discount()),
		GrandTotal: tokens.Money(in.header.GrandTotal),
		Items:      items,
	}
}

func (s *Service) failure(stage string) {
	if s.opts.Recorder != nil {
		s.opts.Recorder.ObserveFailure(stage)
	}
}
