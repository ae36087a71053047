package auth

import (
	"context"
	"testing"
	"time"

	"approvalmaster/internal/model"
	"approvalmaster/internal/model/system"
	authPkg "approvalmaster/internal/pkg/auth"
	sysRepo "approvalmaster/internal/repo/mysql/system"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// setupAuthService 初始化认证服务测试环境
// 会话仓库传nil，会话写入是尽力而为不影响登录主链路
func setupAuthService(t *testing.T) *AuthService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	userRepo := sysRepo.NewUserRepository(db)
	passwordManager := authPkg.NewPasswordManager(nil)
	jwtManager := authPkg.NewJWTManager("test-secret-key", 15*time.Minute, 24*time.Hour)
	return NewAuthService(userRepo, nil, passwordManager, jwtManager, time.Hour)
}

// TestAuthService_RegisterAndLogin 测试注册后登录签发令牌
func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{
		TenantID: 1,
		Username: "alice",
		Email:    "alice@example.com",
		Password: "passw0rd",
		Nickname: "Alice",
	})
	assert.NoError(t, err)
	assert.Equal(t, "user", user.Roles)
	assert.NotEqual(t, "passw0rd", user.Password) // 密码哈希后入库

	tokens, got, err := svc.Login(ctx, "alice", "passw0rd", "127.0.0.1", "test-agent")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	// 密码错误
	_, _, err = svc.Login(ctx, "alice", "wrong-pass1", "127.0.0.1", "test-agent")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// 用户不存在
	_, _, err = svc.Login(ctx, "nobody", "passw0rd", "127.0.0.1", "test-agent")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// TestAuthService_RegisterValidation 测试注册参数校验与唯一性
func TestAuthService_RegisterValidation(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		TenantID: 0, Username: "bob", Email: "bob@example.com", Password: "passw0rd",
	})
	assert.ErrorIs(t, err, system.ErrInvalidTenantID)

	// 弱密码
	_, err = svc.Register(ctx, &RegisterRequest{
		TenantID: 1, Username: "bob", Email: "bob@example.com", Password: "password",
	})
	assert.Error(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{
		TenantID: 1, Username: "bob", Email: "bob@example.com", Password: "passw0rd",
	})
	assert.NoError(t, err)

	// 用户名与邮箱重复
	_, err = svc.Register(ctx, &RegisterRequest{
		TenantID: 1, Username: "bob", Email: "bob2@example.com", Password: "passw0rd",
	})
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = svc.Register(ctx, &RegisterRequest{
		TenantID: 1, Username: "bob2", Email: "bob@example.com", Password: "passw0rd",
	})
	assert.ErrorIs(t, err, ErrUserExists)
}

// TestAuthService_DisabledUser 测试禁用用户不可登录与刷新
func TestAuthService_DisabledUser(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{
		TenantID: 1, Username: "carol", Email: "carol@example.com", Password: "passw0rd",
	})
	assert.NoError(t, err)

	tokens, _, err := svc.Login(ctx, "carol", "passw0rd", "127.0.0.1", "test-agent")
	assert.NoError(t, err)

	err = svc.userRepo.UpdateStatus(ctx, user.ID, model.UserStatusDisabled)
	assert.NoError(t, err)

	_, _, err = svc.Login(ctx, "carol", "passw0rd", "127.0.0.1", "test-agent")
	assert.ErrorIs(t, err, ErrUserDisabled)

	_, err = svc.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrUserDisabled)
}

// TestAuthService_RefreshToken 测试令牌刷新
func TestAuthService_RefreshToken(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		TenantID: 1, Username: "dave", Email: "dave@example.com", Password: "passw0rd",
	})
	assert.NoError(t, err)

	tokens, _, err := svc.Login(ctx, "dave", "passw0rd", "127.0.0.1", "test-agent")
	assert.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, tokens.RefreshToken)
	assert.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// 非法刷新令牌
	_, err = svc.RefreshToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, system.ErrTokenInvalid)

	// 访问令牌不能当刷新令牌用
	_, err = svc.RefreshToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, system.ErrTokenInvalid)
}
