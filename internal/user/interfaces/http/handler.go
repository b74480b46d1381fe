// Package http 用户上下文的 HTTP 接口
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"

	"github.com/retreivo/retreivo/internal/user/application"
	"github.com/retreivo/retreivo/pkg/errs"
)

type Handler struct {
	svc *application.UserService
}

func NewHandler(svc *application.UserService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users", h.Register)

	g := r.Group("/users", IdentityMiddleware())
	g.GET("/me", h.Profile)
	g.PUT("/me", h.UpdateProfile)
}

func (h *Handler) Register(c *gin.Context) {
	var cmd application.RegisterUserCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	user, err := h.svc.Register(c.Request.Context(), cmd)
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": user.UserID})
}

func (h *Handler) Profile(c *gin.Context) {
	user, err := h.svc.GetProfile(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var cmd application.UpdateProfileCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	user, err := h.svc.UpdateProfile(c.Request.Context(), CurrentUserID(c), cmd)
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, user)
}
