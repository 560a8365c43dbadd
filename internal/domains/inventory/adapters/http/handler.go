package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Apurer/go-storefront-api/internal/domains/inventory/application"
	"github.com/Apurer/go-storefront-api/internal/domains/inventory/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/inventory/ports"
	apierrors "github.com/Apurer/go-storefront-api/internal/shared/errors"
)

// Handler exposes the product catalog.
type Handler struct {
	service   ports.Service
	responder *apierrors.ChainedResponder
}

func NewHandler(service ports.Service) *Handler {
	return &Handler{service: service, responder: apierrors.NewChainedResponder("", mapProblem)}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/products", h.ListProducts)
	rg.POST("/products", h.AddProduct)
	rg.GET("/products/:productId", h.GetProduct)
	rg.PUT("/products/:productId/price", h.UpdatePrice)
}

// Product is the transport shape of a catalog entry.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name" binding:"required"`
	SKU      string          `json:"sku" binding:"required"`
	Category string          `json:"category,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
}

type priceUpdate struct {
	Price decimal.Decimal `json:"price"`
}

func fromDomain(p *domain.Product) Product {
	return Product{ID: p.ID, Name: p.Name, SKU: p.SKU, Category: p.Category, Price: p.Price, Stock: p.Stock}
}

// searchQuery is the optional filter on the product listing.
type searchQuery struct {
	Keyword  string `form:"keyword"`
	Category string `form:"category"`
	MinPrice string `form:"minPrice"`
	MaxPrice string `form:"maxPrice"`
	Sort     string `form:"sort"`
}

func (q searchQuery) filter() (domain.SearchFilter, error) {
	filter := domain.SearchFilter{Keyword: q.Keyword, Category: q.Category, Sort: domain.SortOrder(q.Sort)}
	for _, bound := range []struct {
		name string
		raw  string
		dst  **decimal.Decimal
	}{
		{"minPrice", q.MinPrice, &filter.MinPrice},
		{"maxPrice", q.MaxPrice, &filter.MaxPrice},
	} {
		if bound.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(bound.raw)
		if err != nil {
			return filter, fmt.Errorf("%s must be a decimal number", bound.name)
		}
		*bound.dst = &v
	}
	return filter, nil
}

// Get /v1/products?keyword=&category=&minPrice=&maxPrice=&sort=
func (h *Handler) ListProducts(c *gin.Context) {
	var query searchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	filter, err := query.filter()
	if err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	var products []*domain.Product
	if filter.IsZero() {
		products, err = h.service.ListProducts(c.Request.Context())
	} else {
		products, err = h.service.SearchProducts(c.Request.Context(), filter)
	}
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, fromDomain(p))
	}
	c.JSON(http.StatusOK, out)
}

// Post /v1/products
func (h *Handler) AddProduct(c *gin.Context) {
	var payload Product
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	product, err := domain.NewProduct(0, payload.Name, payload.SKU, payload.Price, payload.Stock)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	product.Category = payload.Category
	saved, err := h.service.AddProduct(c.Request.Context(), product)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fromDomain(saved))
}

// Get /v1/products/:productId
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomain(product))
}

// Put /v1/products/:productId/price
func (h *Handler) UpdatePrice(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	var payload priceUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	product, err := h.service.UpdatePrice(c.Request.Context(), id, payload.Price)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomain(product))
}

func (h *Handler) productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil || id <= 0 {
		h.responder.BadRequest(c, "productId must be a positive integer")
		return 0, false
	}
	return id, true
}

func mapProblem(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrEmptySKU),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrNegativeStock),
		errors.Is(err, domain.ErrInvalidSort),
		errors.Is(err, domain.ErrInvalidPriceRange):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}
