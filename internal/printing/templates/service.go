package templates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
)

// DefaultName is used when the operator saves without naming the template.
const DefaultName = "Template"

// Store is the persistence contract used by Service.
type Store interface {
	List(ctx context.Context, branchID string, filter ListFilter) ([]Template, error)
	Get(ctx context.Context, branchID, id string) (Template, error)
	FindEffective(ctx context.Context, lookup Lookup) (Template, error)
	Insert(ctx context.Context, tpl Template) (Template, error)
	Update(ctx context.Context, tpl Template) (Template, error)
	Delete(ctx context.Context, branchID, id string) error
	SetDefault(ctx context.Context, branchID, id string) (Template, error)
}

// Service validates template writes and caches effective-template lookups.
type Service struct {
	store    Store
	cache    *Cache
	validate *validator.Validate
	group    singleflight.Group
	logger   *slog.Logger
}

// NewService constructs a Service. cache may be nil.
func NewService(store Store, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cache != nil && cache.logger == nil {
		cache.logger = logger
	}
	return &Service{
		store:    store,
		cache:    cache,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// List returns the branch's templates.
func (s *Service) List(ctx context.Context, branchID string, filter ListFilter) ([]Template, error) {
	if strings.TrimSpace(branchID) == "" {
		return nil, fmt.Errorf("%w: branch required", httpx.ErrValidation)
	}
	if filter.PaperSize != "" {
		filter.PaperSize = layout.ParsePaper(string(filter.PaperSize))
	}
	return s.store.List(ctx, branchID, filter)
}

// Get loads one template.
func (s *Service) Get(ctx context.Context, branchID, id string) (Template, error) {
	if err := s.validate.Var(id, "required,uuid"); err != nil {
		return Template{}, fmt.Errorf("%w: template id", httpx.ErrValidation)
	}
	return s.store.Get(ctx, branchID, id)
}

// Save inserts or updates a template from the designer. Saved templates are
// never marked default; SetDefault does that explicitly.
func (s *Service) Save(ctx context.Context, in SaveInput) (Template, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		in.Name = DefaultName
	}
	if err := s.validate.Struct(in); err != nil {
		return Template{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	in.Meta.Name = in.Name
	sc := schema.Schema{Meta: in.Meta, Elements: in.Elements}
	if sc.Elements == nil {
		sc.Elements = []schema.Element{}
	}
	if err := sc.Validate(); err != nil {
		return Template{}, err
	}
	tpl := Template{
		ID:          in.ID,
		BranchID:    in.BranchID,
		Name:        in.Name,
		DocType:     in.Meta.DocType,
		PaperSize:   in.Meta.PaperSize,
		Orientation: in.Meta.Orientation,
		Schema:      sc,
	}
	var (
		saved Template
		err   error
	)
	if tpl.ID != "" {
		saved, err = s.store.Update(ctx, tpl)
	} else {
		saved, err = s.store.Insert(ctx, tpl)
	}
	if err != nil {
		return Template{}, err
	}
	s.invalidate(ctx)
	return saved, nil
}

// Delete removes a template.
func (s *Service) Delete(ctx context.Context, branchID, id string) error {
	if err := s.validate.Var(id, "required,uuid"); err != nil {
		return fmt.Errorf("%w: template id", httpx.ErrValidation)
	}
	if err := s.store.Delete(ctx, branchID, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// SetDefault marks a template as the branch default for its document and paper.
func (s *Service) SetDefault(ctx context.Context, branchID, id string) (Template, error) {
	if err := s.validate.Var(id, "required,uuid"); err != nil {
		return Template{}, fmt.Errorf("%w: template id", httpx.ErrValidation)
	}
	tpl, err := s.store.SetDefault(ctx, branchID, id)
	if err != nil {
		return Template{}, err
	}
	s.invalidate(ctx)
	return tpl, nil
}

type effectiveEntry struct {
	Found    bool      `json:"found"`
	Template *Template `json:"template,omitempty"`
}

// Effective resolves the template a print job should use. It returns
// ErrTemplateNotFound when the branch has none for the lookup.
func (s *Service) Effective(ctx context.Context, lookup Lookup) (Template, error) {
	lookup.PaperSize = layout.ParsePaper(string(lookup.PaperSize))
	if lookup.DocType == "" {
		lookup.DocType = schema.DocSale
	}
	key, err := s.cache.BuildKey(ctx, lookup.key()...)
	if err != nil {
		s.logger.Warn("template cache key", slog.Any("error", err))
		key = strings.Join(lookup.key(), ":")
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var entry effectiveEntry
		err := s.cache.FetchJSON(ctx, key, &entry, func(ctx context.Context) (any, error) {
			tpl, err := s.store.FindEffective(ctx, lookup)
			if errors.Is(err, ErrTemplateNotFound) {
				return effectiveEntry{}, nil
			}
			if err != nil {
				return nil, err
			}
			return effectiveEntry{Found: true, Template: &tpl}, nil
		})
		return entry, err
	})
	if err != nil {
		return Template{}, err
	}
	entry := v.(effectiveEntry)
	if !entry.Found || entry.Template == nil {
		return Template{}, ErrTemplateNotFound
	}
	return *entry.Template, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("template cache bump", slog.Any("error", err))
	}
}
