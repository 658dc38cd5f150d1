package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/ariefcatur/go-farm-market/internal/catalog"
	"github.com/go-chi/chi/v5"
)

type CatalogService interface {
	CreateProduct(ctx context.Context, farmer auth.Farmer, in catalog.ProductInput) (*catalog.Product, error)
	MyProducts(ctx context.Context, farmer auth.Farmer) ([]catalog.Product, error)
	UpdateProduct(ctx context.Context, farmer auth.Farmer, id string, patch catalog.ProductPatch) (*catalog.Product, error)
	DeactivateProduct(ctx context.Context, farmer auth.Farmer, id string) error

	Browse(ctx context.Context, consumer auth.Consumer, f catalog.BrowseFilter) ([]catalog.Product, error)
	Product(ctx context.Context, consumer auth.Consumer, id string) (*catalog.Product, error)
	Farmers(ctx context.Context, consumer auth.Consumer) ([]catalog.Farmer, error)
	FarmerCatalog(ctx context.Context, consumer auth.Consumer, farmerID string) (*catalog.FarmerCatalog, error)

	AddCertification(ctx context.Context, farmer auth.Farmer, in catalog.CertificationInput) (*catalog.Certification, error)
	Certifications(ctx context.Context, farmer auth.Farmer, productID string) ([]catalog.Certification, error)
	UpdateCertification(ctx context.Context, farmer auth.Farmer, id string, patch catalog.CertificationPatch) (*catalog.Certification, error)
	DeleteCertification(ctx context.Context, farmer auth.Farmer, id string) error
}

type CatalogHandler struct {
	Svc CatalogService
	Log *slog.Logger
}

// ProductRoutes is the farmer's own product management.
func (h *CatalogHandler) ProductRoutes(r chi.Router) {
	r.Use(requireRole(auth.RoleFarmer, h.Log))
	r.Post("/", h.createProduct)
	r.Get("/mine", h.myProducts)
	r.Put("/{id}", h.updateProduct)
	r.Delete("/{id}", h.deactivateProduct)
}

// BrowseRoutes is the consumer-facing catalog.
func (h *CatalogHandler) BrowseRoutes(r chi.Router) {
	r.Use(requireRole(auth.RoleConsumer, h.Log))
	r.Get("/products", h.browse)
	r.Get("/products/{id}", h.product)
	r.Get("/farmers", h.farmers)
	r.Get("/farmers/{farmerId}/products", h.farmerCatalog)
}

func (h *CatalogHandler) CertificationRoutes(r chi.Router) {
	r.Use(requireRole(auth.RoleFarmer, h.Log))
	r.Post("/", h.addCertification)
	r.Get("/product/{productId}", h.certifications)
	r.Put("/{id}", h.updateCertification)
	r.Delete("/{id}", h.deleteCertification)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	farmer, err := farmerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var in catalog.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Svc.CreateProduct(r.Context(), farmer, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) myProducts(w http.ResponseWriter, r *http.Request) {
	farmer, err := farmerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out, err := h.Svc.MyProducts(r.Context(), farmer)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	farmer, err := farmerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var patch catalog.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Svc.UpdateProduct(r.Context(), farmer, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	farmer, err := farmerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Svc.DeactivateProduct(r.Context(), farmer, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) browse(w http.ResponseWriter, r *http.Request) {
	consumer, err := consumerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	q := r.URL.Query()
	f := catalog.BrowseFilter{City: q.Get("city"), Q: q.Get("q")}
	if c := q.Get("category"); c != "" {
		cat := catalog.Category(c)
		f.Category = &cat
	}
	out, err := h.Svc.Browse(r.Context(), consumer, f)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) product(w http.ResponseWriter, r *http.Request) {
	consumer, err := consumerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Svc.Product(r.Context(), consumer, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) farmers(w http.ResponseWriter, r *http.Request) {
	consumer, err := consumerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out, err := h.Svc.Farmers(r.Context(), consumer)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) farmerCatalog(w http.ResponseWriter, r *http.Request) {
	consumer, err := consumerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out, err := h.Svc.FarmerCatalog(r.Context(), consumer, chi.URLParam(r, "farmerId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) addCertification(w http.ResponseWriter, r *http.Request) {
	farmer, err := farmerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var in catalog.CertificationInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	c, err := h.Svc.AddCertification(r.Context(), farmer, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) certifications(w http.ResponseWriter, r *http.Request) {
	farmer, err := farmerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out, err := h.Svc.Certifications(r.Context(), farmer, chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) updateCertification(w http.ResponseWriter, r *http.Request) {
	farmer, err := farmerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var patch catalog.CertificationPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	c, err := h.Svc.UpdateCertification(r.Context(), farmer, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) deleteCertification(w http.ResponseWriter, r *http.Request) {
	farmer, err := farmerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Svc.DeleteCertification(r.Context(), farmer, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
