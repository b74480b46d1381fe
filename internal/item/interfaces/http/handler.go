// Package http 物品上下文的 HTTP 接口
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"

	"github.com/retreivo/retreivo/internal/item/application"
	"github.com/retreivo/retreivo/internal/item/domain"
	userhttp "github.com/retreivo/retreivo/internal/user/interfaces/http"
	"github.com/retreivo/retreivo/pkg/errs"
)

type Handler struct {
	svc *application.ItemService
}

func NewHandler(svc *application.ItemService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/items/search", h.Search)

	g := r.Group("/items", userhttp.IdentityMiddleware())
	g.POST("/lost", h.ReportLost)
	g.POST("/found", h.ReportFound)
	g.GET("/mine", h.MyReports)
}

func (h *Handler) ReportLost(c *gin.Context) {
	h.report(c, h.svc.ReportLost)
}

func (h *Handler) ReportFound(c *gin.Context) {
	h.report(c, h.svc.ReportFound)
}

func (h *Handler) report(c *gin.Context, fn func(context.Context, string, application.ReportItemCommand) (*domain.Item, error)) {
	var cmd application.ReportItemCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	item, err := fn(c.Request.Context(), userhttp.CurrentUserID(c), cmd)
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) Search(c *gin.Context) {
	q := domain.SearchQuery{
		Type:     domain.ItemType(c.Query("type")),
		Keyword:  c.Query("q"),
		Category: c.Query("category"),
		Location: c.Query("location"),
	}
	items, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, items)
}

func (h *Handler) MyReports(c *gin.Context) {
	items, err := h.svc.MyReports(c.Request.Context(), userhttp.CurrentUserID(c))
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, items)
}
