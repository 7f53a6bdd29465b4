// internal/handlers/product/product_handler.go
package product

import (
	"net/http"

	"storelinker-service/internal/domain/product"
	"storelinker-service/internal/middleware"
	"storelinker-service/internal/pkg/response"
	productUsecase "storelinker-service/internal/service/product"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductHandler struct {
	productService *productUsecase.ProductService
	logger         *zap.Logger
}

func NewProductHandler(productService *productUsecase.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// ========== Public catalog ==========

// List returns active products (public endpoint)
func (h *ProductHandler) List(c *gin.Context) {
	var q product.ListProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, "invalid query", err)
		return
	}

	products, err := h.productService.List(c.Request.Context(), q)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, "products retrieved", gin.H{
		"products": products,
		"count":    len(products),
	})
}

// Get returns one active product (public endpoint)
func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.productService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, "product retrieved", p)
}

// ========== Vendor management ==========

// Create adds a product owned by the caller
func (h *ProductHandler) Create(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	var req product.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	p, err := h.productService.Create(c.Request.Context(), ident, &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "product created", p)
}

// Update changes a product the caller owns
func (h *ProductHandler) Update(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	var req product.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	p, err := h.productService.Update(c.Request.Context(), ident, c.Param("id"), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, "product updated", p)
}

// Delete deactivates a product the caller owns
func (h *ProductHandler) Delete(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	if err := h.productService.Delete(c.Request.Context(), ident, c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, "product deleted", nil)
}

// VendorProducts lists the caller's products, including inactive ones
func (h *ProductHandler) VendorProducts(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	products, err := h.productService.VendorProducts(c.Request.Context(), ident)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, "products retrieved", gin.H{
		"products": products,
		"count":    len(products),
	})
}
