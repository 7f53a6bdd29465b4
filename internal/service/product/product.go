// internal/service/product/product.go
package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storelinker-service/internal/domain/auth"
	"storelinker-service/internal/domain/product"
	xerrors "storelinker-service/internal/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ProductRepository interface {
	Create(ctx context.Context, p *product.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*product.Product, error)
	Find(ctx context.Context, f product.Filter) ([]product.Product, error)
	Update(ctx context.Context, p *product.Product) error
}

// VendorDirectory resolves the vendor accounts that own products.
type VendorDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*auth.User, error)
	ListVendors(ctx context.Context) ([]auth.User, error)
}

type ProductService struct {
	products ProductRepository
	vendors  VendorDirectory
	logger   *zap.Logger
	now      func() time.Time
}

func NewProductService(products ProductRepository, vendors VendorDirectory, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		products: products,
		vendors:  vendors,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ========== Catalog ==========

// List returns active products, optionally narrowed by category and vendor.
func (s *ProductService) List(ctx context.Context, q product.ListProductsQuery) ([]product.Product, error) {
	f := product.Filter{Category: strings.TrimSpace(q.Category)}
	if q.VendorID != "" {
		id, err := primitive.ObjectIDFromHex(q.VendorID)
		if err != nil {
			return nil, xerrors.Field("vendorId", "invalid vendor id")
		}
		f.VendorID = &id
	}
	return s.products.Find(ctx, f)
}

// Get returns an active product.
func (s *ProductService) Get(ctx context.Context, rawID string) (*product.Product, error) {
	p, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, xerrors.ErrNotFound
	}
	return p, nil
}

// ========== Vendor management ==========

func (s *ProductService) Create(ctx context.Context, ident *auth.Identity, req *product.CreateProductRequest) (*product.Product, error) {
	if err := validatePricing(req.Price, req.Stock); err != nil {
		return nil, err
	}

	now := s.now()
	p := &product.Product{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Category:      strings.TrimSpace(req.Category),
		Stock:         req.Stock,
		ImageURL:      req.ImageURL,
		VendorID:      ident.UserID,
		StoreName:     ident.StoreName,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Name == "" {
		return nil, xerrors.Field("name", "name is required")
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("product created",
		zap.String("product_id", p.ID.Hex()),
		zap.String("vendor_id", ident.UserID.Hex()),
	)
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, ident *auth.Identity, rawID string, req *product.UpdateProductRequest) (*product.Product, error) {
	p, err := s.owned(ctx, ident, rawID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, xerrors.Field("name", "name cannot be empty")
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.OriginalPrice != nil {
		p.OriginalPrice = *req.OriginalPrice
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.ImageURL != nil {
		p.ImageURL = *req.ImageURL
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := validatePricing(p.Price, p.Stock); err != nil {
		return nil, err
	}

	p.UpdatedAt = s.now()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

// Delete deactivates the product.
func (s *ProductService) Delete(ctx context.Context, ident *auth.Identity, rawID string) error {
	p, err := s.owned(ctx, ident, rawID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return nil
	}

	p.IsActive = false
	p.UpdatedAt = s.now()
	if err := s.products.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info("product deactivated",
		zap.String("product_id", p.ID.Hex()),
		zap.String("by", ident.UserID.Hex()),
	)
	return nil
}

// VendorProducts returns the caller's products, inactive ones included.
func (s *ProductService) VendorProducts(ctx context.Context, ident *auth.Identity) ([]product.Product, error) {
	id := ident.UserID
	return s.products.Find(ctx, product.Filter{VendorID: &id, IncludeInactive: true})
}

// ========== Stores ==========

// ListStores returns every active vendor that has a store name.
func (s *ProductService) ListStores(ctx context.Context) ([]product.Store, error) {
	vendors, err := s.vendors.ListVendors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}

	stores := []product.Store{}
	for _, v := range vendors {
		if !v.IsActive || strings.TrimSpace(v.StoreName) == "" {
			continue
		}
		stores = append(stores, product.Store{
			VendorID:         v.ID.Hex(),
			StoreName:        v.StoreName,
			StoreDescription: v.StoreDescription,
		})
	}
	return stores, nil
}

// StoreProducts returns a vendor's store and its active products.
func (s *ProductService) StoreProducts(ctx context.Context, rawVendorID string) (*product.Store, []product.Product, error) {
	id, err := primitive.ObjectIDFromHex(rawVendorID)
	if err != nil {
		return nil, nil, xerrors.Field("vendorId", "invalid vendor id")
	}

	vendor, err := s.vendors.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !vendor.IsVendor() || !vendor.IsActive {
		return nil, nil, xerrors.ErrNotFound
	}

	items, err := s.products.Find(ctx, product.Filter{VendorID: &id})
	if err != nil {
		return nil, nil, err
	}
	store := &product.Store{
		VendorID:         vendor.ID.Hex(),
		StoreName:        vendor.StoreName,
		StoreDescription: vendor.StoreDescription,
	}
	return store, items, nil
}

// ========== Helpers ==========

func (s *ProductService) find(ctx context.Context, rawID string) (*product.Product, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, xerrors.ErrNotFound
	}
	return s.products.FindByID(ctx, id)
}

// owned loads a product the caller may modify. Admins may modify any product.
func (s *ProductService) owned(ctx context.Context, ident *auth.Identity, rawID string) (*product.Product, error) {
	p, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if ident.Role != auth.RoleAdmin && p.VendorID != ident.UserID {
		s.logger.Warn("product ownership check failed",
			zap.String("product_id", p.ID.Hex()),
			zap.String("user_id", ident.UserID.Hex()),
		)
		return nil, xerrors.ErrForbidden
	}
	return p, nil
}

func validatePricing(price float64, stock int) error {
	fields := map[string]string{}
	if price <= 0 {
		fields["price"] = "price must be greater than zero"
	}
	if stock < 0 {
		fields["stock"] = "stock cannot be negative"
	}
	if len(fields) > 0 {
		return xerrors.NewValidationError(fields)
	}
	return nil
}
