package setup

import (
	"approvalmaster/internal/config"
	authHandler "approvalmaster/internal/handler/auth"
	authPkg "approvalmaster/internal/pkg/auth"
	"approvalmaster/internal/pkg/logger"
	sysRepo "approvalmaster/internal/repo/mysql/system"
	redisRepo "approvalmaster/internal/repo/redis"
	authService "approvalmaster/internal/service/auth"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// BuildAuthModule 构建认证模块
func BuildAuthModule(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *AuthModule {
	logger.WithFields(map[string]interface{}{
		"path":      "setup.auth",
		"operation": "build_module",
		"func_name": "setup.BuildAuthModule",
	}).Info("开始初始化认证模块")

	// 1. 工具包初始化
	jwtManager := authPkg.NewJWTManager(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.AccessTokenExpire,
		cfg.Security.JWT.RefreshTokenExpire,
	)
	passwordManager := authPkg.NewPasswordManager(authPkg.DefaultPasswordConfig)

	// 2. Repository 初始化
	userRepo := sysRepo.NewUserRepository(db)
	sessionRepo := redisRepo.NewSessionRepository(redisClient)

	// 3. Service 初始化
	service := authService.NewAuthService(userRepo, sessionRepo, passwordManager, jwtManager, cfg.Security.JWT.RefreshTokenExpire)

	logger.WithFields(map[string]interface{}{
		"path":      "setup.auth",
		"operation": "build_module",
		"func_name": "setup.BuildAuthModule",
	}).Info("认证模块初始化完成")

	return &AuthModule{
		LoginHandler:    authHandler.NewLoginHandler(service),
		LogoutHandler:   authHandler.NewLogoutHandler(service),
		RefreshHandler:  authHandler.NewRefreshHandler(service),
		RegisterHandler: authHandler.NewRegisterHandler(service),
		AuthService:     service,
	}
}
