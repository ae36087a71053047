/**
 * 服务:认证服务
 * @author: sun977
 * @date: 2025.12.20
 * @description: 用户登录/注册/令牌刷新/登出，令牌携带租户与角色声明
 * @func:
 * 1.Login - 用户登录，校验密码并签发令牌对
 * 2.Register - 用户注册，密码哈希后入库
 * 3.RefreshToken - 刷新令牌对
 * 4.Logout - 登出，清理Redis会话
 */
package auth

import (
	"context"
	"errors"
	"time"

	"approvalmaster/internal/model"
	"approvalmaster/internal/model/system"
	authPkg "approvalmaster/internal/pkg/auth"
	"approvalmaster/internal/pkg/logger"
	sysRepo "approvalmaster/internal/repo/mysql/system"
	redisRepo "approvalmaster/internal/repo/redis"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserDisabled       = errors.New("用户已被禁用")
	ErrUserExists         = errors.New("用户名或邮箱已被注册")
)

// RegisterRequest 用户注册请求结构
type RegisterRequest struct {
	TenantID uint64 `json:"tenant_id" validate:"required"`                  // 租户ID，必填
	Username string `json:"username" validate:"required,min=3,max=50"`      // 用户名，必填
	Email    string `json:"email" validate:"required,email"`                // 邮箱，必填
	Password string `json:"password" validate:"required,min=8"`             // 密码，必填
	Nickname string `json:"nickname" validate:"max=50"`                     // 昵称，可选
}

// AuthService 认证服务
type AuthService struct {
	userRepo        *sysRepo.UserRepository
	sessionRepo     *redisRepo.SessionRepository
	passwordManager *authPkg.PasswordManager
	jwtManager      *authPkg.JWTManager
	sessionTTL      time.Duration
}

// NewAuthService 创建认证服务实例
func NewAuthService(userRepo *sysRepo.UserRepository, sessionRepo *redisRepo.SessionRepository, passwordManager *authPkg.PasswordManager, jwtManager *authPkg.JWTManager, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		passwordManager: passwordManager,
		jwtManager:      jwtManager,
		sessionTTL:      sessionTTL,
	}
}

// Login 用户登录
// 校验密码，签发令牌对，并在Redis中记录会话
func (s *AuthService) Login(ctx context.Context, username, password, clientIP, userAgent string) (*authPkg.TokenPair, *model.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		logger.LogBusinessError(err, "", 0, clientIP, "login", "SERVICE", map[string]interface{}{
			"username":  username,
			"timestamp": logger.NowFormatted(),
		})
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, nil, ErrUserDisabled
	}

	ok, err := s.passwordManager.VerifyPassword(password, user.Password)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.TenantID, user.Username, user.RoleList())
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	// 会话记录失败不阻断登录，令牌本身可独立验证
	if s.sessionRepo != nil {
		sessionData := &system.SessionData{
			UserID:     user.ID,
			TenantID:   user.TenantID,
			Username:   user.Username,
			Email:      user.Email,
			Roles:      user.RoleList(),
			LoginTime:  now,
			LastActive: now,
			ClientIP:   clientIP,
			UserAgent:  userAgent,
		}
		if err := s.sessionRepo.StoreSession(ctx, user.ID, sessionData, s.sessionTTL); err != nil {
			logger.LogBusinessError(err, "", uint(user.ID), clientIP, "store_session", "SERVICE", map[string]interface{}{
				"username":  user.Username,
				"timestamp": logger.NowFormatted(),
			})
		}
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now, clientIP); err != nil {
		logger.LogBusinessError(err, "", uint(user.ID), clientIP, "update_last_login", "SERVICE", map[string]interface{}{
			"username":  user.Username,
			"timestamp": logger.NowFormatted(),
		})
	}

	return tokens, user, nil
}

// Register 用户注册
// 新用户默认角色为 user
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	if req.TenantID == 0 {
		return nil, system.ErrInvalidTenantID
	}
	if err := authPkg.ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}
	existing, err = s.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hashed, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		TenantID: req.TenantID,
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
		Nickname: req.Nickname,
		Roles:    "user",
		Status:   model.UserStatusEnabled,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		logger.LogBusinessError(err, "", 0, "", "register", "SERVICE", map[string]interface{}{
			"username":  req.Username,
			"tenant_id": req.TenantID,
			"timestamp": logger.NowFormatted(),
		})
		return nil, err
	}
	return user, nil
}

// RefreshToken 刷新令牌对
// 校验刷新令牌后按当前用户状态重新签发
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*authPkg.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, system.ErrTokenInvalid
	}

	user, err := s.userRepo.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrUserDisabled
	}

	return s.jwtManager.GenerateTokenPair(user.ID, user.TenantID, user.Username, user.RoleList())
}

// Logout 登出
// 删除Redis中的会话记录，访问令牌由其自身过期时间兜底
func (s *AuthService) Logout(ctx context.Context, userID uint64) error {
	if s.sessionRepo == nil {
		return nil
	}
	return s.sessionRepo.DeleteSession(ctx, userID)
}
