/*
 * 工作流配置仓库层：工作流配置数据访问
 * @author: sun977
 * @date: 2025.12.20
 * @description: 单纯数据访问，不应该包含业务逻辑
 * @func:
 * 1.创建/更新/删除工作流配置
 * 2.分页查询与租户过滤
 * 3.激活配置集合查询（配置选择器使用）
 */

//  基础CRUD操作:
//  	CreateConfiguration - 创建工作流配置
//  	GetConfigurationByID - 根据ID获取工作流配置
//  	UpdateConfiguration - 更新工作流配置信息
//  	UpdateConfigurationFields - 使用map更新特定字段
//  	DeleteConfiguration - 软删除工作流配置
//  高级查询功能:
//  	ListConfigurations - 分页获取工作流配置列表
//  	GetActiveConfigurations - 获取指定请求类型的激活配置集合
//  状态管理:
//  	UpdateConfigurationStatus - 更新配置生命周期状态

package workflow

import (
	"context"
	"time"

	"approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/logger"

	"gorm.io/gorm"
)

// ConfigurationRepository 工作流配置仓库结构体
// 负责处理工作流配置相关的数据访问，不包含业务逻辑
type ConfigurationRepository struct {
	db *gorm.DB // 数据库连接
}

// NewConfigurationRepository 创建工作流配置仓库实例
func NewConfigurationRepository(db *gorm.DB) *ConfigurationRepository {
	return &ConfigurationRepository{
		db: db,
	}
}

// CreateConfiguration 创建工作流配置
// @param ctx 上下文
// @param config 工作流配置对象
// @return 错误信息
func (r *ConfigurationRepository) CreateConfiguration(ctx context.Context, config *workflow.WorkflowConfiguration) error {
	config.CreatedAt = time.Now()
	config.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Create(config).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "configuration_create", "REPO", map[string]interface{}{
			"operation":       "create_configuration",
			"tenant_id":       config.TenantID,
			"request_type_id": config.RequestTypeID,
			"timestamp":       logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// GetConfigurationByID 根据ID获取工作流配置
// 未找到返回 nil 而不是错误，让业务层处理
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 配置ID
// @return 工作流配置对象和错误信息
func (r *ConfigurationRepository) GetConfigurationByID(ctx context.Context, tenantID, id uint64) (*workflow.WorkflowConfiguration, error) {
	var config workflow.WorkflowConfiguration
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&config).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogBusinessError(err, "", 0, "", "configuration_get", "REPO", map[string]interface{}{
			"operation": "get_configuration_by_id",
			"tenant_id": tenantID,
			"id":        id,
			"timestamp": logger.NowFormatted(),
		})
		return nil, err
	}
	return &config, nil
}

// UpdateConfiguration 更新工作流配置
// @param ctx 上下文
// @param config 工作流配置对象
// @return 错误信息
func (r *ConfigurationRepository) UpdateConfiguration(ctx context.Context, config *workflow.WorkflowConfiguration) error {
	config.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(config).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "configuration_update", "REPO", map[string]interface{}{
			"operation": "update_configuration",
			"config_id": config.ID,
			"tenant_id": config.TenantID,
			"timestamp": logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// UpdateConfigurationFields 使用map更新特定字段
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 配置ID
// @param fields 更新字段映射
// @return 错误信息
func (r *ConfigurationRepository) UpdateConfigurationFields(ctx context.Context, tenantID, id uint64, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	err := r.db.WithContext(ctx).
		Model(&workflow.WorkflowConfiguration{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(fields).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "configuration_update_fields", "REPO", map[string]interface{}{
			"operation": "update_configuration_fields",
			"tenant_id": tenantID,
			"config_id": id,
			"timestamp": logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// DeleteConfiguration 软删除工作流配置
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 配置ID
// @return 错误信息
func (r *ConfigurationRepository) DeleteConfiguration(ctx context.Context, tenantID, id uint64) error {
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&workflow.WorkflowConfiguration{}, id).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "configuration_delete", "REPO", map[string]interface{}{
			"operation": "delete_configuration",
			"tenant_id": tenantID,
			"config_id": id,
			"timestamp": logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// ListConfigurations 分页获取工作流配置列表
// @param ctx 上下文
// @param tenantID 租户ID
// @param req 查询条件
// @param offset 偏移量
// @param limit 每页数量
// @return 配置列表、总数和错误信息
func (r *ConfigurationRepository) ListConfigurations(ctx context.Context, tenantID uint64, req *workflow.ListConfigurationsRequest, offset, limit int) ([]*workflow.WorkflowConfiguration, int64, error) {
	var configs []*workflow.WorkflowConfiguration
	var total int64

	query := r.db.WithContext(ctx).
		Model(&workflow.WorkflowConfiguration{}).
		Where("tenant_id = ?", tenantID)

	if req != nil {
		if req.RequestTypeID != nil {
			query = query.Where("request_type_id = ?", *req.RequestTypeID)
		}
		if req.Status != nil {
			query = query.Where("status = ?", *req.Status)
		}
		if req.IsActive != nil {
			query = query.Where("is_active = ?", *req.IsActive)
		}
		if req.Keyword != nil && *req.Keyword != "" {
			query = query.Where("name LIKE ?", "%"+*req.Keyword+"%")
		}
	}

	// 获取总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	err := query.Offset(offset).Limit(limit).
		Order("priority DESC, updated_at DESC").
		Find(&configs).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "configuration_list", "REPO", map[string]interface{}{
			"operation": "list_configurations",
			"tenant_id": tenantID,
			"timestamp": logger.NowFormatted(),
		})
		return nil, 0, err
	}

	return configs, total, nil
}

// GetActiveConfigurations 获取指定请求类型的激活配置集合
// 配置选择器使用，按优先级降序、更新时间降序排列，
// 同一请求类型允许多个激活配置同时存在
// @param ctx 上下文
// @param tenantID 租户ID
// @param requestTypeID 请求类型ID
// @return 配置列表和错误信息
func (r *ConfigurationRepository) GetActiveConfigurations(ctx context.Context, tenantID, requestTypeID uint64) ([]*workflow.WorkflowConfiguration, error) {
	var configs []*workflow.WorkflowConfiguration
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND request_type_id = ? AND is_active = ? AND status = ?",
			tenantID, requestTypeID, true, workflow.ConfigStatusActive).
		Order("priority DESC, updated_at DESC").
		Find(&configs).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "configuration_get_active", "REPO", map[string]interface{}{
			"operation":       "get_active_configurations",
			"tenant_id":       tenantID,
			"request_type_id": requestTypeID,
			"timestamp":       logger.NowFormatted(),
		})
		return nil, err
	}
	return configs, nil
}

// UpdateConfigurationStatus 更新配置生命周期状态
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 配置ID
// @param status 目标状态
// @return 错误信息
func (r *ConfigurationRepository) UpdateConfigurationStatus(ctx context.Context, tenantID, id uint64, status workflow.ConfigStatus) error {
	err := r.db.WithContext(ctx).
		Model(&workflow.WorkflowConfiguration{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "configuration_update_status", "REPO", map[string]interface{}{
			"operation": "update_configuration_status",
			"tenant_id": tenantID,
			"config_id": id,
			"status":    status,
			"timestamp": logger.NowFormatted(),
		})
		return err
	}
	return nil
}
