// Package http 积分上下文的 HTTP 接口
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"

	"github.com/retreivo/retreivo/internal/reward/application"
	userhttp "github.com/retreivo/retreivo/internal/user/interfaces/http"
	"github.com/retreivo/retreivo/pkg/errs"
)

type Handler struct {
	svc *application.RewardService
}

func NewHandler(svc *application.RewardService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/rewards/products", h.ListProducts)

	g := r.Group("/rewards", userhttp.IdentityMiddleware())
	g.GET("/summary", h.Summary)
	g.POST("/redeem/cash", h.RedeemCash)
	g.POST("/redeem/product", h.RedeemProduct)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context(), userhttp.CurrentUserID(c))
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, summary)
}

func (h *Handler) RedeemCash(c *gin.Context) {
	var req struct {
		Points int64 `json:"points" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	redemption, err := h.svc.RedeemCash(c.Request.Context(), userhttp.CurrentUserID(c), req.Points)
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, redemption)
}

func (h *Handler) RedeemProduct(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	redemption, err := h.svc.RedeemProduct(c.Request.Context(), userhttp.CurrentUserID(c), req.ProductID)
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, redemption)
}

func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.svc.ListProducts(c.Request.Context())
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, products)
}
