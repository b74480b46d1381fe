// Package http 认领上下文的 HTTP 接口
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"

	"github.com/retreivo/retreivo/internal/claim/application"
	"github.com/retreivo/retreivo/internal/claim/domain"
	userhttp "github.com/retreivo/retreivo/internal/user/interfaces/http"
	"github.com/retreivo/retreivo/pkg/errs"
)

type Handler struct {
	cmd   *application.ClaimCommandService
	query *application.ClaimQueryService
}

func NewHandler(cmd *application.ClaimCommandService, query *application.ClaimQueryService) *Handler {
	return &Handler{cmd: cmd, query: query}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/claims", userhttp.IdentityMiddleware())
	g.POST("", h.Submit)
	g.GET("/history", h.History)

	hub := r.Group("/hub/claims", userhttp.IdentityMiddleware(), userhttp.HubOnly())
	hub.GET("", h.List)
	hub.GET("/export", h.Export)
	hub.PUT("/:id/approve", h.Approve)
	hub.PUT("/:id/reject", h.Reject)
	hub.PUT("/:id/partial-verify", h.PartialVerify)
}

func (h *Handler) Submit(c *gin.Context) {
	var cmd application.SubmitClaimCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	claim, err := h.cmd.SubmitClaim(c.Request.Context(), userhttp.CurrentUserID(c), cmd)
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	c.JSON(http.StatusCreated, claim)
}

func (h *Handler) Approve(c *gin.Context) {
	h.resolve(c, h.cmd.ApproveClaim)
}

func (h *Handler) Reject(c *gin.Context) {
	h.resolve(c, h.cmd.RejectClaim)
}

func (h *Handler) PartialVerify(c *gin.Context) {
	h.resolve(c, h.cmd.PartialVerify)
}

func (h *Handler) resolve(c *gin.Context, fn func(ctx context.Context, claimID, hubMessage string) (*domain.Claim, error)) {
	var req struct {
		HubMessage string `json:"hub_message"`
	}
	// 请求体可为空
	_ = c.ShouldBindJSON(&req)

	claim, err := fn(c.Request.Context(), c.Param("id"), req.HubMessage)
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, claim)
}

func (h *Handler) List(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	claims, err := h.query.ListClaims(c.Request.Context(), q)
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, claims)
}

func (h *Handler) Export(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	filename := fmt.Sprintf("claims-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := h.query.ExportClaims(c.Request.Context(), c.Writer, q); err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
}

func (h *Handler) History(c *gin.Context) {
	claims, err := h.query.History(c.Request.Context(), userhttp.CurrentUserID(c))
	if err != nil {
		response.ErrorWithStatus(c, errs.HTTPStatus(err), err.Error(), "")
		return
	}
	response.Success(c, claims)
}

func parseListQuery(c *gin.Context) (application.ListClaimsQuery, error) {
	q := application.ListClaimsQuery{
		Status:   domain.ClaimStatus(c.Query("status")),
		MaxScore: 100,
	}
	if v := c.Query("fraud_score_min"); v != "" {
		min, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("invalid fraud_score_min %q", v)
		}
		q.MinScore = min
	}
	if v := c.Query("fraud_score_max"); v != "" {
		max, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("invalid fraud_score_max %q", v)
		}
		q.MaxScore = max
	}
	return q, nil
}
