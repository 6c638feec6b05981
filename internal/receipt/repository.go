package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads branches and sales from the point-of-sale tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// BranchName prefers the Arabic name, then the English one. A missing branch
// yields the generic name rather than an error.
func (r *Repository) BranchName(ctx context.Context, branchID string) (string, error) {
	if r == nil || r.pool == nil {
		return "", fmt.Errorf("receipt: repository not initialised")
	}
	var nameAr, nameEn string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(name_ar, ''), COALESCE(name_en, '') FROM branches WHERE id = $1::uuid`, branchID).
		Scan(&nameAr, &nameEn)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultBranchName, nil
	}
	if err != nil {
		return "", err
	}
	for _, name := range []string{nameAr, nameEn} {
		if strings.TrimSpace(name) != "" {
			return name, nil
		}
	}
	return DefaultBranchName, nil
}

// SaleHeader loads the sale row.
func (r *Repository) SaleHeader(ctx context.Context, saleID string) (SaleHeader, error) {
	if r == nil || r.pool == nil {
		return SaleHeader{}, fmt.Errorf("receipt: repository not initialised")
	}
	const query = `SELECT id::text, branch_id::text, COALESCE(list_ref, ''), created_at,
       COALESCE(customer_name, ''), COALESCE(subtotal, 0)::text, COALESCE(grand_total, 0)::text,
       COALESCE(discount_value, 0)::text, COALESCE(discount_type, '')
FROM sales
WHERE id = $1::uuid`
	var (
		h                                 SaleHeader
		subtotal, grandTotal, discountVal string
	)
	err := r.pool.QueryRow(ctx, query, saleID).Scan(
		&h.ID, &h.BranchID, &h.ListRef, &h.CreatedAt,
		&h.CustomerName, &subtotal, &grandTotal, &discountVal, &h.DiscountType,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return SaleHeader{}, ErrSaleNotFound
	}
	if err != nil {
		return SaleHeader{}, err
	}
	if h.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return SaleHeader{}, fmt.Errorf("sale subtotal: %w", err)
	}
	if h.GrandTotal, err = decimal.NewFromString(grandTotal); err != nil {
		return SaleHeader{}, fmt.Errorf("sale grand total: %w", err)
	}
	if h.DiscountValue, err = decimal.NewFromString(discountVal); err != nil {
		return SaleHeader{}, fmt.Errorf("sale discount: %w", err)
	}
	return h, nil
}

// SaleItems loads the sale lines in entry order.
func (r *Repository) SaleItems(ctx context.Context, saleID string) ([]SaleItem, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("receipt: repository not initialised")
	}
	const query = `SELECT COALESCE(p.trade_name_en, ''), COALESCE(p.strength, ''),
       COALESCE(si.qty, 0)::text, COALESCE(si.line_total, 0)::text
FROM sale_items si
LEFT JOIN products p ON p.id = si.product_id
WHERE si.sale_id = $1::uuid
ORDER BY si.created_at ASC`
	rows, err := r.pool.Query(ctx, query, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaleItem
	for rows.Next() {
		var (
			item       SaleItem
			qty, total string
		)
		if err := rows.Scan(&item.TradeName, &item.Strength, &qty, &total); err != nil {
			return nil, err
		}
		if item.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("sale item qty: %w", err)
		}
		if item.LineTotal, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("sale item total: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
