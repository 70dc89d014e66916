package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProduct() Product {
	return Product{
		Name:     "Trail Jacket",
		Price:    89.5,
		Category: CategoryClothes,
		ImageURL: "https://img.example.com/jacket.png",
		Stock:    12,
		Details:  Clothes{Size: "L", Brand: "Acme"},
	}
}

func TestValidateAcceptsValidProduct(t *testing.T) {
	assert.NoError(t, Validate(validProduct()))

	p := validProduct()
	p.Category = "SmartPhone"
	p.Stock = 0
	p.Price = 0
	assert.NoError(t, Validate(p), "category is case-insensitive and zero values are allowed")
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Product)
	}{
		{"category", func(p *Product) { p.Category = "furniture" }},
		{"stock", func(p *Product) { p.Stock = -1 }},
		{"price", func(p *Product) { p.Price = -0.01 }},
		{"name", func(p *Product) { p.Name = "   " }},
		{"imageUrl", func(p *Product) { p.ImageURL = "" }},
		{"imageUrl", func(p *Product) { p.ImageURL = "ftp://img.example.com/a.png" }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			p := validProduct()
			tt.mutate(&p)

			err := Validate(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidProduct)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateReportsFirstBrokenRule(t *testing.T) {
	p := validProduct()
	p.Category = ""
	p.Stock = -5

	var verr *ValidationError
	require.ErrorAs(t, Validate(p), &verr)
	assert.Equal(t, "category", verr.Field)
}
