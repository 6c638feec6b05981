package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rxdesk/rxdesk/internal/platform/db"
	"github.com/rxdesk/rxdesk/internal/printing/schema"
)

// Repository persists templates in the print_templates table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const templateColumns = `id::text, branch_id::text, name, doc_type, paper_size, orientation, template_json, is_default, created_at, updated_at`

// List returns branch templates, defaults first then newest.
func (r *Repository) List(ctx context.Context, branchID string, filter ListFilter) ([]Template, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("templates: repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	query := `SELECT ` + templateColumns + `
FROM print_templates
WHERE branch_id = $1::uuid
  AND ($2::text = '' OR doc_type = $2)
  AND ($3::text = '' OR paper_size = $3)
ORDER BY is_default DESC, created_at DESC
LIMIT $4`
	rows, err := r.pool.Query(ctx, query, branchID, string(filter.DocType), string(filter.PaperSize), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

// Get loads a template by id within a branch.
func (r *Repository) Get(ctx context.Context, branchID, id string) (Template, error) {
	if r == nil || r.pool == nil {
		return Template{}, fmt.Errorf("templates: repository not initialised")
	}
	query := `SELECT ` + templateColumns + ` FROM print_templates WHERE id = $1::uuid AND branch_id = $2::uuid`
	tpl, err := scanTemplate(r.pool.QueryRow(ctx, query, id, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, err
	}
	return tpl, nil
}

// FindEffective returns the template a print job should use: the default
// one if flagged, otherwise the most recently created.
func (r *Repository) FindEffective(ctx context.Context, lookup Lookup) (Template, error) {
	if r == nil || r.pool == nil {
		return Template{}, fmt.Errorf("templates: repository not initialised")
	}
	query := `SELECT ` + templateColumns + `
FROM print_templates
WHERE branch_id = $1::uuid AND doc_type = $2 AND paper_size = $3
ORDER BY is_default DESC, created_at DESC
LIMIT 1`
	tpl, err := scanTemplate(r.pool.QueryRow(ctx, query, lookup.BranchID, string(lookup.DocType), string(lookup.PaperSize)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, err
	}
	return tpl, nil
}

// Insert stores a new template.
func (r *Repository) Insert(ctx context.Context, tpl Template) (Template, error) {
	if r == nil || r.pool == nil {
		return Template{}, fmt.Errorf("templates: repository not initialised")
	}
	payload, err := json.Marshal(tpl.Schema)
	if err != nil {
		return Template{}, err
	}
	query := `INSERT INTO print_templates (branch_id, name, doc_type, paper_size, orientation, template_json, is_default)
VALUES ($1::uuid,$2,$3,$4,$5,$6,$7)
RETURNING ` + templateColumns
	return scanTemplate(r.pool.QueryRow(ctx, query, tpl.BranchID, tpl.Name, string(tpl.DocType), string(tpl.PaperSize), string(tpl.Orientation), payload, tpl.IsDefault))
}

// Update replaces the mutable fields of an existing template.
func (r *Repository) Update(ctx context.Context, tpl Template) (Template, error) {
	if r == nil || r.pool == nil {
		return Template{}, fmt.Errorf("templates: repository not initialised")
	}
	payload, err := json.Marshal(tpl.Schema)
	if err != nil {
		return Template{}, err
	}
	query := `UPDATE print_templates
SET name = $3, doc_type = $4, paper_size = $5, orientation = $6, template_json = $7, is_default = $8, updated_at = NOW()
WHERE id = $1::uuid AND branch_id = $2::uuid
RETURNING ` + templateColumns
	updated, err := scanTemplate(r.pool.QueryRow(ctx, query, tpl.ID, tpl.BranchID, tpl.Name, string(tpl.DocType), string(tpl.PaperSize), string(tpl.Orientation), payload, tpl.IsDefault))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, err
	}
	return updated, nil
}

// Delete removes a template.
func (r *Repository) Delete(ctx context.Context, branchID, id string) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("templates: repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM print_templates WHERE id = $1::uuid AND branch_id = $2::uuid`, id, branchID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// SetDefault flags a template as the default for its document and paper,
// clearing the flag on its siblings in the same transaction.
func (r *Repository) SetDefault(ctx context.Context, branchID, id string) (Template, error) {
	if r == nil || r.pool == nil {
		return Template{}, fmt.Errorf("templates: repository not initialised")
	}
	var out Template
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + templateColumns + ` FROM print_templates WHERE id = $1::uuid AND branch_id = $2::uuid FOR UPDATE`
		tpl, err := scanTemplate(tx.QueryRow(ctx, query, id, branchID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTemplateNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE print_templates SET is_default = FALSE, updated_at = NOW()
WHERE branch_id = $1::uuid AND doc_type = $2 AND paper_size = $3 AND id <> $4::uuid AND is_default`,
			branchID, string(tpl.DocType), string(tpl.PaperSize), id); err != nil {
			return err
		}
		out, err = scanTemplate(tx.QueryRow(ctx, `UPDATE print_templates SET is_default = TRUE, updated_at = NOW()
WHERE id = $1::uuid RETURNING `+templateColumns, id))
		return err
	})
	if err != nil {
		return Template{}, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (Template, error) {
	var (
		tpl     Template
		payload []byte
	)
	if err := row.Scan(&tpl.ID, &tpl.BranchID, &tpl.Name, &tpl.DocType, &tpl.PaperSize, &tpl.Orientation,
		&payload, &tpl.IsDefault, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		return Template{}, err
	}
	tpl.Schema = schema.DecodeTemplateJSON(payload)
	return tpl, nil
}
