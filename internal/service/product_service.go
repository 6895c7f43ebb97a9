package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// ProductInput carries the fields a caller may set when creating a product.
type ProductInput struct {
	Name          string
	Slug          string
	Description   string
	Price         float64
	StockQuantity int
	IsActive      bool
}

// ProductService defines the interface for catalog business logic
type ProductService interface {
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, page repository.Page, filter repository.ProductFilter) ([]*domain.Product, int, error)
	Update(ctx context.Context, id uuid.UUID, patch repository.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	products repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository) ProductService {
	return &productService{products: products}
}

// Create adds a catalog entry. The slug fast path is advisory; the storage
// unique constraint settles concurrent creates of the same slug.
func (s *productService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          input.Name,
		Slug:          input.Slug,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		IsActive:      input.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := domain.NewValidationError(product.Validate()); err != nil {
		return nil, err
	}

	existing, err := s.products.FindBySlug(ctx, product.Slug)
	if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
		return nil, fmt.Errorf("failed to check existing slug: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrSlugTaken
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Get retrieves a product by ID
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// GetBySlug retrieves a product by its URL slug.
func (s *productService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.products.FindBySlug(ctx, slug)
}

// List returns one catalog page plus the total row count for the filter.
func (s *productService) List(ctx context.Context, page repository.Page, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	return s.products.List(ctx, page, filter)
}

// Update applies a partial update, revalidating the patched product.
func (s *productService) Update(ctx context.Context, id uuid.UUID, patch repository.ProductPatch) (*domain.Product, error) {
	return s.products.Update(ctx, id, patch)
}

// Delete removes a product. It fails with ErrForeignKeyRestricted while any
// order item references it; ordered products stay in the catalog.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}
