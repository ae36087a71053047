/**
 * 仓库:用户数据访问层
 * @author: sun977
 * @date: 2025.12.20
 * @description: 用户表的数据访问，仅做数据读写，业务规则由服务层处理
 * @func:
 * 1.用户创建与查询
 * 2.登录信息与密码更新
 */

//  基础CRUD操作:
//  	CreateUser - 创建用户
//  	GetUserByID - 根据ID获取用户
//  	GetUserByUsername - 根据用户名获取用户
//  	GetUserByEmail - 根据邮箱获取用户
//  状态管理:
//  	UpdateLastLogin - 更新最后登录时间与IP
//  	UpdatePassword - 更新用户密码
//  	UpdateStatus - 更新用户启用状态

package system

import (
	"context"
	"time"

	"approvalmaster/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问层
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库实例
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser 创建用户
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID 根据ID获取用户
// 用户不存在时返回 (nil, nil)，由业务层处理
func (r *UserRepository) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername 根据用户名获取用户
// 用户不存在时返回 (nil, nil)，由业务层处理
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail 根据邮箱获取用户
// 用户不存在时返回 (nil, nil)，由业务层处理
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin 更新最后登录时间与IP
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uint64, loginAt time.Time, clientIP string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_login_at": loginAt,
			"last_login_ip": clientIP,
			"updated_at":    loginAt,
		}).Error
}

// UpdatePassword 更新用户密码
func (r *UserRepository) UpdatePassword(ctx context.Context, id uint64, hashedPassword string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("password", hashedPassword).Error
}

// UpdateStatus 更新用户启用状态
func (r *UserRepository) UpdateStatus(ctx context.Context, id uint64, status model.UserStatus) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("status", status).Error
}
