package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/mzalendo/hotspot-billing/internal/model"
)

// PackageRepo provides read access to the packages table.  The billing
// core never writes packages; catalog management owns their lifecycle.
// All timestamp columns are assumed to be stored in UTC.
type PackageRepo struct {
    db *sql.DB
}

// NewPackageRepo returns a new PackageRepo bound to the provided database.
func NewPackageRepo(db *sql.DB) *PackageRepo { return &PackageRepo{db: db} }

const packageColumns = `id, name, price_cents, duration_value, duration_unit,
       bandwidth_limit, max_devices, is_active, created_at, updated_at`

func scanPackage(row interface{ Scan(dest ...any) error }) (*model.Package, error) {
    var p model.Package
    var unit string
    if err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.DurationValue, &unit,
        &p.BandwidthLimit, &p.MaxDevices, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
        return nil, err
    }
    p.DurationUnit = model.DurationUnit(unit)
    return &p, nil
}

// GetByID returns the package with the given ID.  ErrPackageNotFound is
// returned when no such package exists.
func (r *PackageRepo) GetByID(ctx context.Context, id uint64) (*model.Package, error) {
    const q = `SELECT ` + packageColumns + ` FROM packages WHERE id = ?`
    p, err := scanPackage(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrPackageNotFound
    }
    if err != nil {
        return nil, err
    }
    return p, nil
}

// GetByIDTx is like GetByID but runs inside the provided transaction so
// the package row participates in the caller's unit of work.
func (r *PackageRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Package, error) {
    const q = `SELECT ` + packageColumns + ` FROM packages WHERE id = ?`
    p, err := scanPackage(tx.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrPackageNotFound
    }
    if err != nil {
        return nil, err
    }
    return p, nil
}

// ListActive returns all packages currently offered for sale, ordered
// by price ascending so the portal can render them cheapest-first.
func (r *PackageRepo) ListActive(ctx context.Context) ([]model.Package, error) {
    const q = `SELECT ` + packageColumns + ` FROM packages WHERE is_active = ? ORDER BY price_cents ASC`
    rows, err := r.db.QueryContext(ctx, q, true)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    pkgs := make([]model.Package, 0)
    for rows.Next() {
        p, err := scanPackage(rows)
        if err != nil {
            return nil, err
        }
        pkgs = append(pkgs, *p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return pkgs, nil
}
