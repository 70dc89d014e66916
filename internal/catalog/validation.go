package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Categories accepted by Validate, compared case-insensitively.
const (
	CategoryClothes     = "clothes"
	CategorySmartphone  = "smartphone"
	CategoryElectronics = "electronics"
)

// Categories returns the closed category set.
func Categories() []string {
	return []string{CategoryClothes, CategorySmartphone, CategoryElectronics}
}

// ValidCategory reports whether category is in the closed set.
func ValidCategory(category string) bool {
	for _, c := range Categories() {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// ErrInvalidProduct is matched by every ValidationError.
var ErrInvalidProduct = errors.New("catalog: invalid product")

// ValidationError names the first rule a product broke.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidProduct }

// Validate checks a product before it is written or announced. Rules are
// evaluated in a fixed order and the first failure is returned.
func Validate(p Product) error {
	switch {
	case !ValidCategory(p.Category):
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("%q is not one of %s", p.Category, strings.Join(Categories(), ", "))}
	case p.Stock < 0:
		return &ValidationError{Field: "stock", Reason: fmt.Sprintf("%d is negative", p.Stock)}
	case p.Price < 0:
		return &ValidationError{Field: "price", Reason: fmt.Sprintf("%g is negative", p.Price)}
	case strings.TrimSpace(p.Name) == "":
		return &ValidationError{Field: "name", Reason: "must not be blank"}
	case strings.TrimSpace(p.ImageURL) == "" || !strings.HasPrefix(p.ImageURL, "http"):
		return &ValidationError{Field: "imageUrl", Reason: fmt.Sprintf("%q is not an http URL", p.ImageURL)}
	}
	return nil
}
