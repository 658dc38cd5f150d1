package catalog

import (
	"bytes"
	"encoding/json"
	"time"
)

type Category string

const (
	CategoryFrutas     Category = "FRUTAS"
	CategoryHortalicas Category = "HORTALICAS"
	CategoryLaticinios Category = "LATICINIOS"
	CategoryOvos       Category = "OVOS"
	CategoryGraos      Category = "GRAOS"
)

type Unit string

const (
	UnitBandeja Unit = "BANDEJA"
	UnitKg      Unit = "KG"
	UnitUnidade Unit = "UNIDADE"
	UnitMaco    Unit = "MACO"
)

// State is the product lifecycle. Only ACTIVE products are visible to
// consumers and orderable.
type State string

const (
	StateActive   State = "ACTIVE"
	StateInactive State = "INACTIVE"
)

const MaxPhotos = 6

type Product struct {
	ID             string          `json:"id"`
	FarmerID       string          `json:"farmerId"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Category       Category        `json:"category"`
	PriceCents     int             `json:"priceCents"`
	Unit           Unit            `json:"unit"`
	StockQty       int             `json:"stockQty"`
	State          State           `json:"state"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Photos         []Photo         `json:"photos"`
	Certifications []Certification `json:"certifications"`
	Farmer         *FarmerSummary  `json:"farmer,omitempty"`
}

type Photo struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Certification struct {
	ID         string     `json:"id"`
	ProductID  string     `json:"productId"`
	Title      string     `json:"title"`
	Issuer     *string    `json:"issuer"`
	ValidUntil *time.Time `json:"validUntil"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type FarmerSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	City         string  `json:"city"`
	PropertyName *string `json:"propertyName"`
	Address      *string `json:"address"`
}

// Farmer is a farmer as listed in the consumer catalog.
type Farmer struct {
	FarmerSummary
	CreatedAt           time.Time `json:"createdAt"`
	ActiveProductsCount int       `json:"activeProductsCount"`
}

type FarmerCatalog struct {
	Farmer   Farmer    `json:"farmer"`
	Products []Product `json:"products"`
}

type ProductInput struct {
	Name        string   `json:"name" validate:"required,min=2"`
	Description string   `json:"description" validate:"required,min=2"`
	Category    Category `json:"category" validate:"required,oneof=FRUTAS HORTALICAS LATICINIOS OVOS GRAOS"`
	PriceCents  int      `json:"priceCents" validate:"min=0"`
	Unit        Unit     `json:"unit" validate:"required,oneof=BANDEJA KG UNIDADE MACO"`
	StockQty    int      `json:"stockQty" validate:"min=0"`
	PhotoURLs   []string `json:"photoUrls" validate:"max=6,dive,url"`
}

// ProductPatch is a partial update. PhotoURLs, when present, replaces the
// whole photo set.
type ProductPatch struct {
	Name        *string   `json:"name" validate:"omitempty,min=2"`
	Description *string   `json:"description" validate:"omitempty,min=2"`
	Category    *Category `json:"category" validate:"omitempty,oneof=FRUTAS HORTALICAS LATICINIOS OVOS GRAOS"`
	PriceCents  *int      `json:"priceCents" validate:"omitempty,min=0"`
	Unit        *Unit     `json:"unit" validate:"omitempty,oneof=BANDEJA KG UNIDADE MACO"`
	StockQty    *int      `json:"stockQty" validate:"omitempty,min=0"`
	PhotoURLs   *[]string `json:"photoUrls" validate:"omitempty,max=6,dive,url"`
	State       *State    `json:"state" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

type BrowseFilter struct {
	Category *Category `validate:"omitempty,oneof=FRUTAS HORTALICAS LATICINIOS OVOS GRAOS"`
	City     string
	Q        string
}

// ProductFilter is the storage-level product query.
type ProductFilter struct {
	FarmerID   string
	ActiveOnly bool
	Category   *Category
	City       string
	Q          string
}

type CertificationInput struct {
	ProductID  string     `json:"productId" validate:"required,uuid"`
	Title      string     `json:"title" validate:"required,min=2"`
	Issuer     *string    `json:"issuer" validate:"omitempty,min=2"`
	ValidUntil *time.Time `json:"validUntil"`
}

type CertificationPatch struct {
	Title      *string      `json:"title" validate:"omitempty,min=2"`
	Issuer     *string      `json:"issuer" validate:"omitempty,min=2"`
	ValidUntil OptionalTime `json:"validUntil"`
}

// OptionalTime tells an absent JSON field apart from an explicit null.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}
