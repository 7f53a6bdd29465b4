// internal/domain/product/entity.go
package product

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a vendor-owned catalog item. Deleting only clears IsActive.
type Product struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	Description   string             `json:"description,omitempty" bson:"description,omitempty"`
	Price         float64            `json:"price" bson:"price"`
	OriginalPrice float64            `json:"originalPrice,omitempty" bson:"originalPrice,omitempty"`
	Category      string             `json:"category,omitempty" bson:"category,omitempty"`
	Stock         int                `json:"stock" bson:"stock"`
	ImageURL      string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	VendorID      primitive.ObjectID `json:"vendorId" bson:"vendorId"`
	StoreName     string             `json:"storeName,omitempty" bson:"storeName,omitempty"`
	IsActive      bool               `json:"isActive" bson:"isActive"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Filter narrows product listings.
type Filter struct {
	Category        string
	VendorID        *primitive.ObjectID
	IncludeInactive bool
}

// Matches applies the filter in memory.
func (f Filter) Matches(p *Product) bool {
	if !f.IncludeInactive && !p.IsActive {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.VendorID != nil && p.VendorID != *f.VendorID {
		return false
	}
	return true
}

// Store is the public view of a vendor storefront.
type Store struct {
	VendorID         string `json:"vendorId"`
	StoreName        string `json:"storeName"`
	StoreDescription string `json:"storeDescription,omitempty"`
}
