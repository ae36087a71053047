/*
 * 工作流实例仓库层：工作流实例与状态迁移流水数据访问
 * @author: sun977
 * @date: 2025.12.20
 * @description: 单纯数据访问，不应该包含业务逻辑
 * @func:
 * 1.创建工作流实例
 * 2.实例状态更新与迁移记录（同事务）
 * 3.实例与迁移流水查询
 */

//  基础CRUD操作:
//  	CreateInstance - 创建工作流实例
//  	GetInstanceByInstanceID - 根据实例UUID获取实例
//  	GetInstanceByRequestID - 根据请求ID获取实例
//  高级查询功能:
//  	ListInstances - 分页获取实例列表
//  	ListTransitions - 获取实例的状态迁移流水
//  状态管理:
//  	UpdateInstanceStatus - 更新实例状态并追加迁移记录（事务内）
//  	AppendTransition - 追加状态迁移记录

package workflow

import (
	"context"
	"time"

	"approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/logger"

	"gorm.io/gorm"
)

// InstanceRepository 工作流实例仓库结构体
type InstanceRepository struct {
	db *gorm.DB // 数据库连接
}

// NewInstanceRepository 创建工作流实例仓库实例
func NewInstanceRepository(db *gorm.DB) *InstanceRepository {
	return &InstanceRepository{
		db: db,
	}
}

// CreateInstance 创建工作流实例
// @param ctx 上下文
// @param instance 工作流实例对象
// @return 错误信息
func (r *InstanceRepository) CreateInstance(ctx context.Context, instance *workflow.WorkflowInstance) error {
	instance.CreatedAt = time.Now()
	instance.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Create(instance).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "instance_create", "REPO", map[string]interface{}{
			"operation":   "create_instance",
			"instance_id": instance.InstanceID,
			"tenant_id":   instance.TenantID,
			"timestamp":   logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// GetInstanceByInstanceID 根据实例UUID获取实例
// 未找到返回 nil 而不是错误，让业务层处理
// @param ctx 上下文
// @param tenantID 租户ID
// @param instanceID 实例UUID
// @return 工作流实例对象和错误信息
func (r *InstanceRepository) GetInstanceByInstanceID(ctx context.Context, tenantID uint64, instanceID string) (*workflow.WorkflowInstance, error) {
	var instance workflow.WorkflowInstance
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND instance_id = ?", tenantID, instanceID).
		First(&instance).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogBusinessError(err, "", 0, "", "instance_get", "REPO", map[string]interface{}{
			"operation":   "get_instance_by_instance_id",
			"tenant_id":   tenantID,
			"instance_id": instanceID,
			"timestamp":   logger.NowFormatted(),
		})
		return nil, err
	}
	return &instance, nil
}

// GetInstanceByRequestID 根据审批请求ID获取实例
// 未找到返回 nil 而不是错误，让业务层处理
// @param ctx 上下文
// @param tenantID 租户ID
// @param requestID 审批请求ID
// @return 工作流实例对象和错误信息
func (r *InstanceRepository) GetInstanceByRequestID(ctx context.Context, tenantID, requestID uint64) (*workflow.WorkflowInstance, error) {
	var instance workflow.WorkflowInstance
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND request_id = ?", tenantID, requestID).
		First(&instance).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

// ListInstances 分页获取实例列表
// @param ctx 上下文
// @param tenantID 租户ID
// @param req 查询条件
// @param offset 偏移量
// @param limit 每页数量
// @return 实例列表、总数和错误信息
func (r *InstanceRepository) ListInstances(ctx context.Context, tenantID uint64, req *workflow.ListInstancesRequest, offset, limit int) ([]*workflow.WorkflowInstance, int64, error) {
	var instances []*workflow.WorkflowInstance
	var total int64

	query := r.db.WithContext(ctx).
		Model(&workflow.WorkflowInstance{}).
		Where("tenant_id = ?", tenantID)

	if req != nil {
		if req.Status != nil {
			query = query.Where("status = ?", *req.Status)
		}
		if req.ConfigID != nil {
			query = query.Where("config_id = ?", *req.ConfigID)
		}
		if req.RequestID != nil {
			query = query.Where("request_id = ?", *req.RequestID)
		}
	}

	// 获取总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	err := query.Offset(offset).Limit(limit).
		Order("started_at DESC").
		Find(&instances).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "instance_list", "REPO", map[string]interface{}{
			"operation": "list_instances",
			"tenant_id": tenantID,
			"timestamp": logger.NowFormatted(),
		})
		return nil, 0, err
	}

	return instances, total, nil
}

// ListTransitions 获取实例的状态迁移流水
// 按发生时间升序返回，形成完整追踪链
// @param ctx 上下文
// @param tenantID 租户ID
// @param instanceID 实例UUID
// @return 迁移记录列表和错误信息
func (r *InstanceRepository) ListTransitions(ctx context.Context, tenantID uint64, instanceID string) ([]*workflow.WorkflowInstanceTransition, error) {
	var transitions []*workflow.WorkflowInstanceTransition
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND instance_id = ?", tenantID, instanceID).
		Order("occurred_at ASC, id ASC").
		Find(&transitions).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "transition_list", "REPO", map[string]interface{}{
			"operation":   "list_transitions",
			"tenant_id":   tenantID,
			"instance_id": instanceID,
			"timestamp":   logger.NowFormatted(),
		})
		return nil, err
	}
	return transitions, nil
}

// UpdateInstanceStatus 更新实例状态并追加迁移记录
// 状态更新与迁移流水写入在同一事务中完成，保证追踪链完整
// @param ctx 上下文
// @param tenantID 租户ID
// @param instanceID 实例UUID
// @param fields 实例更新字段映射（需包含 status）
// @param transition 迁移记录
// @return 错误信息
func (r *InstanceRepository) UpdateInstanceStatus(ctx context.Context, tenantID uint64, instanceID string, fields map[string]interface{}, transition *workflow.WorkflowInstanceTransition) error {
	fields["updated_at"] = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&workflow.WorkflowInstance{}).
			Where("tenant_id = ? AND instance_id = ?", tenantID, instanceID).
			Updates(fields).Error; err != nil {
			return err
		}
		if transition != nil {
			if err := tx.Create(transition).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "instance_update_status", "REPO", map[string]interface{}{
			"operation":   "update_instance_status",
			"tenant_id":   tenantID,
			"instance_id": instanceID,
			"timestamp":   logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// AppendTransition 追加状态迁移记录
// @param ctx 上下文
// @param transition 迁移记录
// @return 错误信息
func (r *InstanceRepository) AppendTransition(ctx context.Context, transition *workflow.WorkflowInstanceTransition) error {
	err := r.db.WithContext(ctx).Create(transition).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "transition_append", "REPO", map[string]interface{}{
			"operation":   "append_transition",
			"instance_id": transition.InstanceID,
			"tenant_id":   transition.TenantID,
			"timestamp":   logger.NowFormatted(),
		})
		return err
	}
	return nil
}
