/**
 * 模型:用户模型
 * @author: sun977
 * @date: 2025.12.20
 * @description: 用户数据模型，租户所有，角色以逗号分隔字符串存储，随令牌下发
 * @func: User 结构体及相关方法
 */
package model

import (
	"strings"
	"time"
)

// User 用户模型
type User struct {
	ID          uint64     `json:"id" gorm:"primaryKey;autoIncrement"`                                                       // 用户唯一标识ID，主键自增
	TenantID    uint64     `json:"tenant_id" gorm:"index;not null;comment:租户ID"`                                             // 所属租户
	Username    string     `json:"username" gorm:"uniqueIndex;not null;size:50" validate:"required,min=3,max=50"`            // 用户名，全局唯一，3-50字符
	Email       string     `json:"email" gorm:"uniqueIndex;not null;size:100" validate:"required,email"`                     // 邮箱地址，唯一索引
	Password    string     `json:"-" gorm:"not null;size:255"`                                                               // 用户密码，加密存储，不在JSON中返回
	Nickname    string     `json:"nickname" gorm:"size:50"`                                                                  // 用户昵称，最大50字符
	Roles       string     `json:"roles" gorm:"size:255;default:user;comment:角色列表,逗号分隔"`                                     // 角色列表，如 "user" 或 "user,admin"
	Status      UserStatus `json:"status" gorm:"default:1;comment:用户状态:0-禁用,1-启用"`                                           // 用户状态，默认启用
	LastLoginAt *time.Time `json:"last_login_at" gorm:"comment:最后登录时间"`                                                      // 最后登录时间，可为空
	LastLoginIP string     `json:"last_login_ip" gorm:"size:45;comment:最后登录IP"`                                              // 最后登录IP地址，支持IPv6
	CreatedAt   time.Time  `json:"created_at"`                                                                               // 创建时间，自动管理
	UpdatedAt   time.Time  `json:"updated_at"`                                                                               // 更新时间，自动管理
	DeletedAt   *time.Time `json:"-" gorm:"index"`                                                                           // 软删除时间，不在JSON中返回
}

// UserStatus 用户状态枚举
type UserStatus int

const (
	UserStatusDisabled UserStatus = 0 // 禁用状态
	UserStatusEnabled  UserStatus = 1 // 启用状态
)

// TableName 指定用户表名
func (User) TableName() string {
	return "users"
}

// RoleList 返回用户角色名称列表
func (u *User) RoleList() []string {
	if u.Roles == "" {
		return nil
	}
	parts := strings.Split(u.Roles, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			roles = append(roles, name)
		}
	}
	return roles
}

// HasRole 检查用户是否拥有指定角色
func (u *User) HasRole(roleName string) bool {
	for _, role := range u.RoleList() {
		if role == roleName {
			return true
		}
	}
	return false
}

// IsActive 检查用户是否处于活跃状态
func (u *User) IsActive() bool {
	return u.Status == UserStatusEnabled
}
