// internal/domain/product/dto.go
package product

type CreateProductRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"originalPrice"`
	Category      string  `json:"category"`
	Stock         int     `json:"stock"`
	ImageURL      string  `json:"imageUrl"`
}

// UpdateProductRequest only touches the fields that are present.
type UpdateProductRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	OriginalPrice *float64 `json:"originalPrice"`
	Category      *string  `json:"category"`
	Stock         *int     `json:"stock"`
	ImageURL      *string  `json:"imageUrl"`
	IsActive      *bool    `json:"isActive"`
}

type ListProductsQuery struct {
	Category string `form:"category"`
	VendorID string `form:"vendorId"`
}
