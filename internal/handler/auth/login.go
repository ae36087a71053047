/*
 * 登录处理器：用户登录HTTP接口处理
 * @author: sun977
 * @date: 2025.12.20
 * @description: 处理用户登录请求，签发携带租户声明的令牌对
 * @func:
 * 1.用户登录接口
 */

//  核心HTTP接口:
//  	POST /api/v1/auth/login - 用户登录

package auth

import (
	"errors"
	"net/http"

	"approvalmaster/internal/model"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/utils"
	authsvc "approvalmaster/internal/service/auth"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求结构
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // 用户名，必填
	Password string `json:"password" binding:"required"` // 密码，必填
}

// LoginHandler 登录处理器
type LoginHandler struct {
	service *authsvc.AuthService
}

// NewLoginHandler 创建 LoginHandler
func NewLoginHandler(service *authsvc.AuthService) *LoginHandler {
	return &LoginHandler{service: service}
}

// Login 用户登录
func (h *LoginHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "error",
			Message: "Invalid request body",
			Error:   err.Error(),
		})
		return
	}

	clientIP := utils.GetClientIP(c)
	tokens, user, err := h.service.Login(c.Request.Context(), req.Username, req.Password, clientIP, c.GetHeader("User-Agent"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
		} else if errors.Is(err, authsvc.ErrUserDisabled) {
			status = http.StatusForbidden
		}
		c.JSON(status, model.APIResponse{
			Code:    status,
			Status:  "error",
			Message: "Login failed",
			Error:   err.Error(),
		})
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "login",
		"option":    "AuthService.Login",
		"func_name": "handler.auth.login.Login",
		"username":  user.Username,
	}).Info("用户登录成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Login successful",
		Data: gin.H{
			"tokens": tokens,
			"user":   user,
		},
	})
}
