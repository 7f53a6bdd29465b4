// internal/handlers/store/store_handler.go
package store

import (
	"net/http"

	"storelinker-service/internal/pkg/response"
	productUsecase "storelinker-service/internal/service/product"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StoreHandler struct {
	productService *productUsecase.ProductService
	logger         *zap.Logger
}

func NewStoreHandler(productService *productUsecase.ProductService, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{
		productService: productService,
		logger:         logger,
	}
}

// List returns vendor storefronts (public endpoint)
func (h *StoreHandler) List(c *gin.Context) {
	stores, err := h.productService.ListStores(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list stores", zap.Error(err))
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, "stores retrieved", gin.H{"stores": stores})
}

// Products returns a store and its active products (public endpoint)
func (h *StoreHandler) Products(c *gin.Context) {
	store, products, err := h.productService.StoreProducts(c.Request.Context(), c.Param("vendorId"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, "store products retrieved", gin.H{
		"store":    store,
		"products": products,
	})
}
