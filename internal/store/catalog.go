package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"furniture-orders/internal/apperrors"
	"furniture-orders/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

type productRow struct {
	ID             string         `db:"id"`
	ProductID      int64          `db:"product_id"`
	Name           string         `db:"name"`
	Description    string         `db:"description"`
	SupplierID     string         `db:"supplier_id"`
	Images         string         `db:"images"`
	AllowedOptions types.JSONText `db:"allowed_options"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r *productRow) toModel() (models.Product, error) {
	var allowed models.Selections
	if len(r.AllowedOptions) > 0 {
		if err := json.Unmarshal(r.AllowedOptions, &allowed); err != nil {
			return models.Product{}, fmt.Errorf("failed to decode allowed options of product %d: %w", r.ProductID, err)
		}
	}
	return models.Product{
		ID:             r.ID,
		ProductID:      r.ProductID,
		Name:           r.Name,
		Description:    r.Description,
		SupplierID:     r.SupplierID,
		Images:         r.Images,
		AllowedOptions: allowed.Normalize(),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

func productsFromRows(rows []productRow) ([]models.Product, error) {
	products := make([]models.Product, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

const productColumns = "id, product_id, name, description, supplier_id, images, allowed_options, created_at, updated_at"

// CreateOption inserts a customization option
func (s *Store) CreateOption(ctx context.Context, opt *models.Option) error {
	query := `
		INSERT INTO customization_options (id, category, name)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := s.db.GetContext(ctx, &opt.CreatedAt, query, opt.ID, opt.Category, opt.Name)
	if isUniqueViolation(err) {
		return apperrors.Validation("name", "%s %q already exists", opt.Category, opt.Name)
	}
	return err
}

// ListOptions retrieves every option of a category
func (s *Store) ListOptions(ctx context.Context, category models.Category) ([]models.Option, error) {
	options := []models.Option{}
	err := s.db.SelectContext(ctx, &options,
		"SELECT id, category, name, created_at FROM customization_options WHERE category = $1 ORDER BY name", category)
	return options, err
}

// DeleteOption removes an option. Products and orders referencing it are left untouched.
func (s *Store) DeleteOption(ctx context.Context, category models.Category, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM customization_options WHERE category = $1 AND id = $2", category, id)
	if err != nil {
		return err
	}
	return expectAffected(res, &apperrors.NotFoundError{
		Resource: string(category),
		ID:       id,
		Message:  category.Title() + " not found",
	})
}

// GetOptionsByIDs retrieves options of any category by id
func (s *Store) GetOptionsByIDs(ctx context.Context, ids []string) ([]models.Option, error) {
	if len(ids) == 0 {
		return []models.Option{}, nil
	}

	query, args, err := sqlx.In("SELECT id, category, name, created_at FROM customization_options WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var options []models.Option
	err = s.db.SelectContext(ctx, &options, query, args...)
	return options, err
}

// CountOptions counts how many of ids exist within category
func (s *Store) CountOptions(ctx context.Context, category models.Category, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In("SELECT COUNT(*) FROM customization_options WHERE category = ? AND id IN (?)", category, ids)
	if err != nil {
		return 0, err
	}
	query = s.db.Rebind(query)

	var count int
	err = s.db.GetContext(ctx, &count, query, args...)
	return count, err
}

// CreateSupplier inserts a supplier
func (s *Store) CreateSupplier(ctx context.Context, sup *models.Supplier) error {
	query := `
		INSERT INTO suppliers (id, name, number)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	return s.db.GetContext(ctx, &sup.CreatedAt, query, sup.ID, sup.Name, sup.Number)
}

// ListSuppliers retrieves all suppliers
func (s *Store) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	suppliers := []models.Supplier{}
	err := s.db.SelectContext(ctx, &suppliers,
		"SELECT id, name, number, created_at FROM suppliers ORDER BY name")
	return suppliers, err
}

// UpdateSupplier replaces the name and number of a supplier
func (s *Store) UpdateSupplier(ctx context.Context, sup *models.Supplier) error {
	err := s.db.GetContext(ctx, &sup.CreatedAt,
		"UPDATE suppliers SET name = $1, number = $2 WHERE id = $3 RETURNING created_at",
		sup.Name, sup.Number, sup.ID)
	if err == sql.ErrNoRows {
		return &apperrors.NotFoundError{Resource: "Supplier", ID: sup.ID, Message: "Supplier not found"}
	}
	return err
}

// DeleteSupplier removes a supplier without checking for references
func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, &apperrors.NotFoundError{Resource: "Supplier", ID: id, Message: "Supplier not found"})
}

// SupplierExists checks whether a supplier id is known
func (s *Store) SupplierExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1)", id)
	return exists, err
}

// GetSuppliersByIDs retrieves multiple suppliers by id
func (s *Store) GetSuppliersByIDs(ctx context.Context, ids []string) ([]models.Supplier, error) {
	if len(ids) == 0 {
		return []models.Supplier{}, nil
	}

	query, args, err := sqlx.In("SELECT id, name, number, created_at FROM suppliers WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var suppliers []models.Supplier
	err = s.db.SelectContext(ctx, &suppliers, query, args...)
	return suppliers, err
}

// CreateProduct inserts a product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	allowed, err := json.Marshal(p.AllowedOptions.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode allowed options: %w", err)
	}

	query := `
		INSERT INTO products (id, product_id, name, description, supplier_id, images, allowed_options)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		p.ID, p.ProductID, p.Name, p.Description, p.SupplierID, p.Images, types.JSONText(allowed))
	err = row.Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return apperrors.Validation("productId", "Product ID already exists.")
	}
	return err
}

// GetProductByProductID retrieves a product by its business id
func (s *Store) GetProductByProductID(ctx context.Context, productID int64) (*models.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+productColumns+" FROM products WHERE product_id = $1", productID)
	if err == sql.ErrNoRows {
		return nil, &apperrors.NotFoundError{
			Resource: "Product",
			ID:       fmt.Sprint(productID),
			Message:  fmt.Sprintf("Product %d not found", productID),
		}
	}
	if err != nil {
		return nil, err
	}

	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProductsByIDs retrieves products by storage id
func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT "+productColumns+" FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return productsFromRows(rows)
}

// ListProducts retrieves all products
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+productColumns+" FROM products ORDER BY product_id"); err != nil {
		return nil, err
	}
	return productsFromRows(rows)
}

// UpdateProduct replaces the mutable fields of a product
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	allowed, err := json.Marshal(p.AllowedOptions.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode allowed options: %w", err)
	}

	query := `
		UPDATE products
		SET name = $1, description = $2, supplier_id = $3, images = $4, allowed_options = $5, updated_at = NOW()
		WHERE product_id = $6
		RETURNING updated_at`

	err = s.db.GetContext(ctx, &p.UpdatedAt, query,
		p.Name, p.Description, p.SupplierID, p.Images, types.JSONText(allowed), p.ProductID)
	if err == sql.ErrNoRows {
		return apperrors.NotFound("Product", p.ProductID)
	}
	return err
}

// DeleteProduct removes a product by business id
func (s *Store) DeleteProduct(ctx context.Context, productID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE product_id = $1", productID)
	if err != nil {
		return err
	}
	return expectAffected(res, apperrors.NotFound("Product", productID))
}

// expectAffected returns notFound when the statement touched no row
func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
