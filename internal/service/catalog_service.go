package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"furniture-orders/internal/apperrors"
	"furniture-orders/internal/models"
	"furniture-orders/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogStore persists products, suppliers and customization options
type CatalogStore interface {
	CreateOption(ctx context.Context, opt *models.Option) error
	ListOptions(ctx context.Context, category models.Category) ([]models.Option, error)
	DeleteOption(ctx context.Context, category models.Category, id string) error
	GetOptionsByIDs(ctx context.Context, ids []string) ([]models.Option, error)
	CountOptions(ctx context.Context, category models.Category, ids []string) (int, error)

	CreateSupplier(ctx context.Context, sup *models.Supplier) error
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	UpdateSupplier(ctx context.Context, sup *models.Supplier) error
	DeleteSupplier(ctx context.Context, id string) error
	SupplierExists(ctx context.Context, id string) (bool, error)
	GetSuppliersByIDs(ctx context.Context, ids []string) ([]models.Supplier, error)

	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByProductID(ctx context.Context, productID int64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, productID int64) error
}

var supplierNumber = regexp.MustCompile(`^\d{11}$`)

// CatalogService manages the catalog entities orders reference
type CatalogService struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// OptionRequest creates a customization option
type OptionRequest struct {
	Name string `json:"name" binding:"required"`
}

// SupplierRequest creates or replaces a supplier
type SupplierRequest struct {
	Name   string `json:"name" binding:"required"`
	Number string `json:"number" binding:"required"`
}

// ProductRequest creates or updates a product. On update nil fields are left untouched.
type ProductRequest struct {
	ProductID   int64     `json:"productId"`
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	SupplierID  *string   `json:"supplierId"`
	Images      *string   `json:"images"`
	Fabrics     *[]string `json:"fabrics"`
	Eshra       *[]string `json:"eshra"`
	Paintings   *[]string `json:"paintings"`
	Marble      *[]string `json:"marble"`
	Glass       *[]string `json:"glass"`
}

func (r *ProductRequest) options(c models.Category) *[]string {
	switch c {
	case models.CategoryFabrics:
		return r.Fabrics
	case models.CategoryEshra:
		return r.Eshra
	case models.CategoryPaintings:
		return r.Paintings
	case models.CategoryMarble:
		return r.Marble
	case models.CategoryGlass:
		return r.Glass
	default:
		return nil
	}
}

func parseCategory(category string) (models.Category, error) {
	c := models.Category(category)
	if !c.IsValid() {
		return "", &apperrors.NotFoundError{
			Resource: "Category",
			ID:       category,
			Message:  fmt.Sprintf("Unknown option category %q", category),
		}
	}
	return c, nil
}

// CreateOption adds an option to a category
func (s *CatalogService) CreateOption(ctx context.Context, category string, req *OptionRequest) (*models.Option, error) {
	c, err := parseCategory(category)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("name", "name is required")
	}

	opt := &models.Option{ID: uuid.New().String(), Category: c, Name: name}
	if err := s.store.CreateOption(ctx, opt); err != nil {
		return nil, err
	}

	s.logger.Info("Option created", zap.String("category", string(c)), zap.String("id", opt.ID))
	return opt, nil
}

// ListOptions lists the options of a category
func (s *CatalogService) ListOptions(ctx context.Context, category string) ([]models.Option, error) {
	c, err := parseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.store.ListOptions(ctx, c)
}

// DeleteOption removes an option; products and orders keep their dangling ids
func (s *CatalogService) DeleteOption(ctx context.Context, category, id string) error {
	c, err := parseCategory(category)
	if err != nil {
		return err
	}
	return s.store.DeleteOption(ctx, c, id)
}

func validateSupplier(req *SupplierRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.Validation("name", "name is required")
	}
	if !supplierNumber.MatchString(req.Number) {
		return apperrors.Validation("number", "Supplier number must be exactly 11 digits")
	}
	return nil
}

// CreateSupplier adds a supplier
func (s *CatalogService) CreateSupplier(ctx context.Context, req *SupplierRequest) (*models.Supplier, error) {
	if err := validateSupplier(req); err != nil {
		return nil, err
	}

	sup := &models.Supplier{ID: uuid.New().String(), Name: strings.TrimSpace(req.Name), Number: req.Number}
	if err := s.store.CreateSupplier(ctx, sup); err != nil {
		return nil, err
	}

	s.logger.Info("Supplier created", zap.String("id", sup.ID))
	return sup, nil
}

// ListSuppliers lists all suppliers
func (s *CatalogService) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	return s.store.ListSuppliers(ctx)
}

// UpdateSupplier replaces a supplier's name and number
func (s *CatalogService) UpdateSupplier(ctx context.Context, id string, req *SupplierRequest) (*models.Supplier, error) {
	if err := validateSupplier(req); err != nil {
		return nil, err
	}

	sup := &models.Supplier{ID: id, Name: strings.TrimSpace(req.Name), Number: req.Number}
	if err := s.store.UpdateSupplier(ctx, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

// DeleteSupplier removes a supplier without checking for references
func (s *CatalogService) DeleteSupplier(ctx context.Context, id string) error {
	return s.store.DeleteSupplier(ctx, id)
}

// checkReferences verifies the supplier and every option id given in req
func (s *CatalogService) checkReferences(ctx context.Context, req *ProductRequest) error {
	if req.SupplierID != nil {
		exists, err := s.store.SupplierExists(ctx, *req.SupplierID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.Validation("supplierId", "Invalid supplier ID")
		}
	}

	for _, c := range models.Categories {
		ids := req.options(c)
		if ids == nil {
			continue
		}
		unique := dedupe(*ids)
		count, err := s.store.CountOptions(ctx, c, unique)
		if err != nil {
			return err
		}
		if count != len(unique) {
			return apperrors.Validation(string(c), "One or more %s IDs are invalid", c.Singular())
		}
	}
	return nil
}

// CreateProduct adds a product after checking its supplier and options exist
func (s *CatalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if req.ProductID <= 0 {
		return nil, apperrors.Validation("productId", "productId must be a positive integer")
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, apperrors.Validation("name", "name is required")
	}
	if req.SupplierID == nil || *req.SupplierID == "" {
		return nil, apperrors.Validation("supplierId", "Invalid supplier ID")
	}

	_, err := s.store.GetProductByProductID(ctx, req.ProductID)
	if err == nil {
		return nil, apperrors.Validation("productId", "Product ID already exists.")
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}

	p := &models.Product{ID: uuid.New().String(), ProductID: req.ProductID}
	applyProductRequest(p, req)

	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", zap.Int64("product_id", p.ProductID))
	return p, nil
}

// GetProduct retrieves a product by business id
func (s *CatalogService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	p, err := s.store.GetProductByProductID(ctx, productID)
	if apperrors.IsNotFound(err) {
		return nil, productNotFound(productID)
	}
	return p, err
}

// ListProducts lists all products
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

// UpdateProduct merges req into a product. Existing orders are not re-validated.
func (s *CatalogService) UpdateProduct(ctx context.Context, productID int64, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, apperrors.Validation("name", "name is required")
	}
	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}

	applyProductRequest(p, req)
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, productNotFound(productID)
		}
		return nil, err
	}
	return p, nil
}

// DeleteProduct removes a product; orders keep their reference to it
func (s *CatalogService) DeleteProduct(ctx context.Context, productID int64) error {
	err := s.store.DeleteProduct(ctx, productID)
	if apperrors.IsNotFound(err) {
		return productNotFound(productID)
	}
	return err
}

func applyProductRequest(p *models.Product, req *ProductRequest) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.SupplierID != nil {
		p.SupplierID = *req.SupplierID
	}
	if req.Images != nil {
		p.Images = *req.Images
	}

	allowed := p.AllowedOptions.Normalize()
	for _, c := range models.Categories {
		if ids := req.options(c); ids != nil {
			allowed[c] = *ids
		}
	}
	p.AllowedOptions = allowed.Normalize()
}

func productNotFound(productID int64) error {
	return &apperrors.NotFoundError{
		Resource: "Product",
		ID:       fmt.Sprint(productID),
		Message:  "Product not found",
	}
}
