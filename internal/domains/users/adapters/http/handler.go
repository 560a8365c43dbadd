package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-storefront-api/internal/domains/users/application"
	"github.com/Apurer/go-storefront-api/internal/domains/users/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/users/ports"
	apierrors "github.com/Apurer/go-storefront-api/internal/shared/errors"
)

// Handler exposes customer registration and contact management.
type Handler struct {
	service   ports.Service
	responder *apierrors.ChainedResponder
}

func NewHandler(service ports.Service) *Handler {
	return &Handler{service: service, responder: apierrors.NewChainedResponder("", mapProblem)}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/users", h.RegisterUser)
	rg.GET("/users", h.FindByUsername)
	rg.GET("/users/:userId", h.GetUser)
	rg.PUT("/users/:userId/contact", h.UpdateContact)
}

// User is the transport shape of a customer.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	FirstName   string    `json:"firstName,omitempty"`
	LastName    string    `json:"lastName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	DeviceToken string    `json:"deviceToken,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type contactUpdate struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DeviceToken string `json:"deviceToken"`
}

func fromDomain(u *domain.User) User {
	return User{
		ID:          u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Phone:       u.Phone,
		DeviceToken: u.DeviceToken,
		CreatedAt:   u.CreatedAt,
	}
}

// Post /v1/users
func (h *Handler) RegisterUser(c *gin.Context) {
	var payload User
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	user := &domain.User{
		Username:    payload.Username,
		FirstName:   strings.TrimSpace(payload.FirstName),
		LastName:    strings.TrimSpace(payload.LastName),
		Email:       payload.Email,
		Phone:       payload.Phone,
		DeviceToken: payload.DeviceToken,
	}
	saved, err := h.service.Register(c.Request.Context(), user)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fromDomain(saved))
}

// Get /v1/users?username=
func (h *Handler) FindByUsername(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		h.responder.ValidationFailed(c, map[string]string{"username": "query parameter is required"})
		return
	}
	user, err := h.service.GetByUsername(c.Request.Context(), username)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomain(user))
}

// Get /v1/users/:userId
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	user, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomain(user))
}

// Put /v1/users/:userId/contact
func (h *Handler) UpdateContact(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var payload contactUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	user, err := h.service.UpdateContact(c.Request.Context(), id, payload.Email, payload.Phone, payload.DeviceToken)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomain(user))
}

func (h *Handler) userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || id <= 0 {
		h.responder.BadRequest(c, "userId must be a positive integer")
		return 0, false
	}
	return id, true
}

func mapProblem(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrUsernameTaken):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}
