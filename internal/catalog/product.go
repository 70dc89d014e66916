// Package catalog holds the authoritative product model, its validation
// rules and the stores and CRUD service that own it.
package catalog

import "strings"

// Variant names one member of the closed product family.
type Variant string

const (
	VariantGeneric     Variant = "generic"
	VariantClothes     Variant = "clothes"
	VariantElectronics Variant = "electronics"
	VariantSmartphone  Variant = "smartphone"
)

// Details carries the variant specific attributes of a product. The set of
// implementations is closed to this package.
type Details interface {
	Variant() Variant
	details()
}

// ClothingBranded is implemented by variants carrying a clothing brand.
type ClothingBranded interface {
	ClothingBrand() string
}

// ElectronicsBranded is implemented by variants carrying an electronics brand.
type ElectronicsBranded interface {
	ElectronicsBrand() string
}

// Generic is a product without variant attributes.
type Generic struct{}

func (Generic) Variant() Variant { return VariantGeneric }
func (Generic) details()         {}

// Clothes describes apparel.
type Clothes struct {
	Size       string `json:"size,omitempty"`
	Color      string `json:"color,omitempty"`
	FabricType string `json:"fabricType,omitempty"`
	Brand      string `json:"brand,omitempty"`
}

func (Clothes) Variant() Variant        { return VariantClothes }
func (Clothes) details()                {}
func (c Clothes) ClothingBrand() string { return c.Brand }

// Electronics describes consumer electronics.
type Electronics struct {
	Brand          string `json:"brand,omitempty"`
	Model          string `json:"model,omitempty"`
	WarrantyPeriod string `json:"warrantyPeriod,omitempty"`
	Specifications string `json:"specifications,omitempty"`
}

func (Electronics) Variant() Variant           { return VariantElectronics }
func (Electronics) details()                   {}
func (e Electronics) ElectronicsBrand() string { return e.Brand }

// Smartphone is an electronics product with phone specific attributes.
type Smartphone struct {
	Electronics
	OperatingSystem string  `json:"operatingSystem,omitempty"`
	StorageCapacity int     `json:"storageCapacity,omitempty"`
	RAM             int     `json:"ram,omitempty"`
	Processor       string  `json:"processor,omitempty"`
	ScreenSize      float64 `json:"screenSize,omitempty"`
}

func (Smartphone) Variant() Variant { return VariantSmartphone }

// Product is the authoritative catalog entry.
type Product struct {
	ID       int64
	Name     string
	Price    float64
	Category string
	ImageURL string
	Stock    int
	// Details is nil for generic products.
	Details Details
}

// Variant reports which member of the product family p is.
func (p Product) Variant() Variant {
	if p.Details == nil {
		return VariantGeneric
	}
	return p.Details.Variant()
}

// Brand returns the clothing brand, else the electronics brand. ok is false
// when the variant carries neither or the brand is blank.
func (p Product) Brand() (brand string, ok bool) {
	if c, is := p.Details.(ClothingBranded); is {
		brand = c.ClothingBrand()
	} else if e, is := p.Details.(ElectronicsBranded); is {
		brand = e.ElectronicsBrand()
	}
	brand = strings.TrimSpace(brand)
	return brand, brand != ""
}
