package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-storefront-api/internal/domains/carts/application"
	"github.com/Apurer/go-storefront-api/internal/domains/carts/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/carts/ports"
	apierrors "github.com/Apurer/go-storefront-api/internal/shared/errors"
)

// Handler exposes per-user carts.
type Handler struct {
	service   ports.Service
	responder *apierrors.ChainedResponder
}

func NewHandler(service ports.Service) *Handler {
	return &Handler{service: service, responder: apierrors.NewChainedResponder("", mapProblem)}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/users/:userId/cart", h.GetCart)
	rg.POST("/users/:userId/cart/items", h.AddItem)
	rg.DELETE("/users/:userId/cart/items/:productId", h.RemoveItem)
	rg.DELETE("/users/:userId/cart", h.Clear)
}

type Line struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type Cart struct {
	UserID    int64     `json:"userId"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

func fromDomain(cart *domain.Cart) Cart {
	out := Cart{UserID: cart.UserID, Lines: make([]Line, 0, len(cart.Lines)), UpdatedAt: cart.UpdatedAt}
	for _, l := range cart.Lines {
		out.Lines = append(out.Lines, Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

// Get /v1/users/:userId/cart
func (h *Handler) GetCart(c *gin.Context) {
	userID, ok := h.param(c, "userId")
	if !ok {
		return
	}
	cart, err := h.service.GetCart(c.Request.Context(), userID)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomain(cart))
}

// Post /v1/users/:userId/cart/items
func (h *Handler) AddItem(c *gin.Context) {
	userID, ok := h.param(c, "userId")
	if !ok {
		return
	}
	var payload Line
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	cart, err := h.service.AddItem(c.Request.Context(), userID, payload.ProductID, payload.Quantity)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomain(cart))
}

// Delete /v1/users/:userId/cart/items/:productId
func (h *Handler) RemoveItem(c *gin.Context) {
	userID, ok := h.param(c, "userId")
	if !ok {
		return
	}
	productID, ok := h.param(c, "productId")
	if !ok {
		return
	}
	cart, err := h.service.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomain(cart))
}

// Delete /v1/users/:userId/cart
func (h *Handler) Clear(c *gin.Context) {
	userID, ok := h.param(c, "userId")
	if !ok {
		return
	}
	if err := h.service.Clear(c.Request.Context(), userID); err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.responder.BadRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func mapProblem(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, domain.ErrLineNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrUnknownProduct):
		return apierrors.ErrUnprocessable.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}
