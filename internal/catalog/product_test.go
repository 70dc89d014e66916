package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductVariant(t *testing.T) {
	assert.Equal(t, VariantGeneric, Product{}.Variant())
	assert.Equal(t, VariantClothes, Product{Details: Clothes{}}.Variant())
	assert.Equal(t, VariantElectronics, Product{Details: Electronics{}}.Variant())
	assert.Equal(t, VariantSmartphone, Product{Details: Smartphone{}}.Variant())
}

func TestProductBrand(t *testing.T) {
	tests := []struct {
		name    string
		details Details
		want    string
		ok      bool
	}{
		{"generic", nil, "", false},
		{"generic explicit", Generic{}, "", false},
		{"clothes", Clothes{Brand: "Acme"}, "Acme", true},
		{"clothes without brand", Clothes{Size: "M"}, "", false},
		{"electronics", Electronics{Brand: "Volt"}, "Volt", true},
		{"smartphone inherits electronics brand", Smartphone{Electronics: Electronics{Brand: "Pear"}, RAM: 8}, "Pear", true},
		{"blank brand", Electronics{Brand: "  "}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Product{Details: tt.details}.Brand()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

type dualBranded struct{ Generic }

func (dualBranded) ClothingBrand() string    { return "Threads" }
func (dualBranded) ElectronicsBrand() string { return "Circuits" }

func TestProductBrandPrefersClothing(t *testing.T) {
	got, ok := Product{Details: dualBranded{}}.Brand()
	assert.True(t, ok)
	assert.Equal(t, "Threads", got)
}
