package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-farm-market/internal/apperr"
	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/ariefcatur/go-farm-market/internal/validate"
	"github.com/google/uuid"
)

// Service covers the farmer side of the catalog (products and their
// certifications) and the consumer side (browsing active products).
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log, now: time.Now, newID: uuid.NewString}
}

func (s *Service) photos(urls []string) []Photo {
	out := make([]Photo, 0, len(urls))
	for _, u := range urls {
		out = append(out, Photo{ID: s.newID(), URL: u})
	}
	return out
}

func (s *Service) CreateProduct(ctx context.Context, farmer auth.Farmer, in ProductInput) (*Product, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &Product{
		ID:             s.newID(),
		FarmerID:       farmer.ID(),
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		Category:       in.Category,
		PriceCents:     in.PriceCents,
		Unit:           in.Unit,
		StockQty:       in.StockQty,
		State:          StateActive,
		CreatedAt:      now,
		UpdatedAt:      now,
		Photos:         s.photos(in.PhotoURLs),
		Certifications: []Certification{},
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, apperr.Internal(fmt.Errorf("create product: %w", err))
	}
	s.log.Info("product created", "product_id", p.ID, "farmer_id", p.FarmerID)
	return p, nil
}

// MyProducts lists every product of farmer, inactive ones included.
func (s *Service) MyProducts(ctx context.Context, farmer auth.Farmer) ([]Product, error) {
	return s.list(ctx, ProductFilter{FarmerID: farmer.ID()})
}

func (s *Service) UpdateProduct(ctx context.Context, farmer auth.Farmer, id string, patch ProductPatch) (*Product, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	p, err := s.owned(ctx, farmer, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.PriceCents != nil {
		p.PriceCents = *patch.PriceCents
	}
	if patch.Unit != nil {
		p.Unit = *patch.Unit
	}
	if patch.StockQty != nil {
		p.StockQty = *patch.StockQty
	}
	if patch.State != nil {
		p.State = *patch.State
	}
	replacePhotos := patch.PhotoURLs != nil
	if replacePhotos {
		p.Photos = s.photos(*patch.PhotoURLs)
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateProduct(ctx, p, replacePhotos); err != nil {
		return nil, apperr.Internal(fmt.Errorf("update product %s: %w", id, err))
	}
	return p, nil
}

// DeactivateProduct hides the product from consumers. Existing orders keep
// their snapshots.
func (s *Service) DeactivateProduct(ctx context.Context, farmer auth.Farmer, id string) error {
	p, err := s.owned(ctx, farmer, id)
	if err != nil {
		return err
	}
	if p.State == StateInactive {
		return nil
	}
	p.State = StateInactive
	p.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProduct(ctx, p, false); err != nil {
		return apperr.Internal(fmt.Errorf("deactivate product %s: %w", id, err))
	}
	return nil
}

func (s *Service) Browse(ctx context.Context, _ auth.Consumer, f BrowseFilter) ([]Product, error) {
	if err := validate.Struct(f); err != nil {
		return nil, err
	}
	return s.list(ctx, ProductFilter{
		ActiveOnly: true,
		Category:   f.Category,
		City:       strings.TrimSpace(f.City),
		Q:          strings.TrimSpace(f.Q),
	})
}

// Product returns an active product; inactive ones are not found.
func (s *Service) Product(ctx context.Context, _ auth.Consumer, id string) (*Product, error) {
	p, err := s.product(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.State != StateActive {
		return nil, apperr.NotFound("product not found")
	}
	return p, nil
}

func (s *Service) Farmers(ctx context.Context, _ auth.Consumer) ([]Farmer, error) {
	out, err := s.store.ListFarmers(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list farmers: %w", err))
	}
	if out == nil {
		out = []Farmer{}
	}
	return out, nil
}

func (s *Service) FarmerCatalog(ctx context.Context, _ auth.Consumer, farmerID string) (*FarmerCatalog, error) {
	if uuid.Validate(farmerID) != nil {
		return nil, apperr.Validation("invalid farmer id")
	}
	f, err := s.store.GetFarmer(ctx, farmerID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("farmer not found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("get farmer %s: %w", farmerID, err))
	}
	products, err := s.list(ctx, ProductFilter{FarmerID: farmerID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return &FarmerCatalog{Farmer: *f, Products: products}, nil
}

func (s *Service) AddCertification(ctx context.Context, farmer auth.Farmer, in CertificationInput) (*Certification, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, farmer, in.ProductID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &Certification{
		ID:         s.newID(),
		ProductID:  in.ProductID,
		Title:      strings.TrimSpace(in.Title),
		Issuer:     in.Issuer,
		ValidUntil: in.ValidUntil,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateCertification(ctx, c); err != nil {
		return nil, apperr.Internal(fmt.Errorf("create certification: %w", err))
	}
	return c, nil
}

func (s *Service) Certifications(ctx context.Context, farmer auth.Farmer, productID string) ([]Certification, error) {
	if _, err := s.owned(ctx, farmer, productID); err != nil {
		return nil, err
	}
	out, err := s.store.ListCertifications(ctx, productID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list certifications %s: %w", productID, err))
	}
	if out == nil {
		out = []Certification{}
	}
	sortCertifications(out)
	return out, nil
}

func (s *Service) UpdateCertification(ctx context.Context, farmer auth.Farmer, id string, patch CertificationPatch) (*Certification, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	c, err := s.ownedCertification(ctx, farmer, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		c.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Issuer != nil {
		c.Issuer = patch.Issuer
	}
	if patch.ValidUntil.Set {
		c.ValidUntil = patch.ValidUntil.Value
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateCertification(ctx, c); err != nil {
		return nil, apperr.Internal(fmt.Errorf("update certification %s: %w", id, err))
	}
	return c, nil
}

func (s *Service) DeleteCertification(ctx context.Context, farmer auth.Farmer, id string) error {
	if _, err := s.ownedCertification(ctx, farmer, id); err != nil {
		return err
	}
	if err := s.store.DeleteCertification(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return apperr.Internal(fmt.Errorf("delete certification %s: %w", id, err))
	}
	return nil
}

func (s *Service) list(ctx context.Context, f ProductFilter) ([]Product, error) {
	out, err := s.store.ListProducts(ctx, f)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list products: %w", err))
	}
	if out == nil {
		out = []Product{}
	}
	for i := range out {
		sortCertifications(out[i].Certifications)
	}
	return out, nil
}

func (s *Service) product(ctx context.Context, id string) (*Product, error) {
	if uuid.Validate(id) != nil {
		return nil, apperr.Validation("invalid product id")
	}
	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("product not found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("get product %s: %w", id, err))
	}
	sortCertifications(p.Certifications)
	return p, nil
}

func (s *Service) owned(ctx context.Context, farmer auth.Farmer, id string) (*Product, error) {
	p, err := s.product(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.FarmerID != farmer.ID() {
		return nil, apperr.Forbidden()
	}
	return p, nil
}

func (s *Service) ownedCertification(ctx context.Context, farmer auth.Farmer, id string) (*Certification, error) {
	if uuid.Validate(id) != nil {
		return nil, apperr.Validation("invalid certification id")
	}
	c, err := s.store.GetCertification(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("certification not found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("get certification %s: %w", id, err))
	}
	if _, err := s.owned(ctx, farmer, c.ProductID); err != nil {
		return nil, err
	}
	return c, nil
}

// sortCertifications orders by expiry soonest first, open-ended last, then
// newest first.
func sortCertifications(cs []Certification) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i].ValidUntil, cs[j].ValidUntil
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}
