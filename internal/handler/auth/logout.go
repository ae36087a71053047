/*
 * 登出处理器：用户登出HTTP接口处理
 * @author: sun977
 * @date: 2025.12.20
 * @description: 处理用户登出请求，清理服务端会话记录
 * @func:
 * 1.用户登出接口
 */

//  核心HTTP接口:
//  	POST /api/v1/auth/logout - 用户登出

package auth

import (
	"net/http"

	"approvalmaster/internal/model"
	"approvalmaster/internal/pkg/logger"
	authsvc "approvalmaster/internal/service/auth"

	"github.com/gin-gonic/gin"
)

// LogoutHandler 登出处理器
type LogoutHandler struct {
	service *authsvc.AuthService
}

// NewLogoutHandler 创建 LogoutHandler
func NewLogoutHandler(service *authsvc.AuthService) *LogoutHandler {
	return &LogoutHandler{service: service}
}

// Logout 用户登出
func (h *LogoutHandler) Logout(c *gin.Context) {
	userID := c.GetUint64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, model.APIResponse{
			Code:    http.StatusUnauthorized,
			Status:  "error",
			Message: "User not authenticated",
		})
		return
	}

	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, model.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "error",
			Message: "Logout failed",
			Error:   err.Error(),
		})
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "logout",
		"option":    "AuthService.Logout",
		"func_name": "handler.auth.logout.Logout",
	}).Info("用户登出成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Logout successful",
	})
}
