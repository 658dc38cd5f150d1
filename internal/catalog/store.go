package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	// CreateProduct inserts the product and its photos atomically.
	CreateProduct(ctx context.Context, p *Product) error
	// GetProduct returns the product with photos, certifications and the
	// farmer summary regardless of state, or ErrNotFound.
	GetProduct(ctx context.Context, id string) (*Product, error)
	// ListProducts returns matching products newest first, with photos,
	// certifications and farmer summaries.
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	// UpdateProduct writes the scalar fields; with replacePhotos the stored
	// photo set becomes p.Photos.
	UpdateProduct(ctx context.Context, p *Product, replacePhotos bool) error

	// ListFarmers returns farmers newest first with their active product count.
	ListFarmers(ctx context.Context) ([]Farmer, error)
	GetFarmer(ctx context.Context, id string) (*Farmer, error)

	CreateCertification(ctx context.Context, c *Certification) error
	GetCertification(ctx context.Context, id string) (*Certification, error)
	ListCertifications(ctx context.Context, productID string) ([]Certification, error)
	UpdateCertification(ctx context.Context, c *Certification) error
	DeleteCertification(ctx context.Context, id string) error
}
