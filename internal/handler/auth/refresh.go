/*
 * 令牌刷新处理器：令牌刷新HTTP接口处理
 * @author: sun977
 * @date: 2025.12.20
 * @description: 处理令牌刷新请求，按当前用户状态重新签发令牌对
 * @func:
 * 1.令牌刷新接口
 */

//  核心HTTP接口:
//  	POST /api/v1/auth/refresh - 刷新令牌对

package auth

import (
	"net/http"

	"approvalmaster/internal/model"
	authsvc "approvalmaster/internal/service/auth"

	"github.com/gin-gonic/gin"
)

// RefreshRequest 令牌刷新请求结构
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"` // 刷新令牌，必填
}

// RefreshHandler 令牌刷新处理器
type RefreshHandler struct {
	service *authsvc.AuthService
}

// NewRefreshHandler 创建 RefreshHandler
func NewRefreshHandler(service *authsvc.AuthService) *RefreshHandler {
	return &RefreshHandler{service: service}
}

// RefreshToken 刷新令牌对
func (h *RefreshHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "error",
			Message: "Invalid request body",
			Error:   err.Error(),
		})
		return
	}

	tokens, err := h.service.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.APIResponse{
			Code:    http.StatusUnauthorized,
			Status:  "error",
			Message: "Token refresh failed",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Token refreshed successfully",
		Data:    tokens,
	})
}
