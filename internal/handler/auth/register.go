/*
 * 注册处理器：用户注册HTTP接口处理
 * @author: sun977
 * @date: 2025.12.20
 * @description: 处理用户注册请求，新用户默认角色为普通用户
 * @func:
 * 1.用户注册接口
 */

//  核心HTTP接口:
//  	POST /api/v1/auth/register - 用户注册

package auth

import (
	"errors"
	"net/http"

	"approvalmaster/internal/model"
	"approvalmaster/internal/pkg/logger"
	authsvc "approvalmaster/internal/service/auth"

	"github.com/gin-gonic/gin"
)

// RegisterHandler 注册处理器
type RegisterHandler struct {
	service *authsvc.AuthService
}

// NewRegisterHandler 创建 RegisterHandler
func NewRegisterHandler(service *authsvc.AuthService) *RegisterHandler {
	return &RegisterHandler{service: service}
}

// Register 用户注册
func (h *RegisterHandler) Register(c *gin.Context) {
	var req authsvc.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "error",
			Message: "Invalid request body",
			Error:   err.Error(),
		})
		return
	}

	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, authsvc.ErrUserExists) {
			status = http.StatusConflict
		}
		c.JSON(status, model.APIResponse{
			Code:    status,
			Status:  "error",
			Message: "Registration failed",
			Error:   err.Error(),
		})
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "register",
		"option":    "AuthService.Register",
		"func_name": "handler.auth.register.Register",
		"username":  user.Username,
	}).Info("用户注册成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Registration successful",
		Data:    user,
	})
}
