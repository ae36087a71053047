/*
 * 审批请求仓库层：审批请求数据访问
 * @author: sun977
 * @date: 2025.12.20
 * @description: 单纯数据访问，不应该包含业务逻辑
 * @func:
 * 1.创建/查询/更新审批请求
 * 2.带条件的原子状态更新（并发安全）
 * 3.逾期候选扫描（调度器使用）
 */

//  基础CRUD操作:
//  	CreateRequest - 创建审批请求
//  	GetRequestByID - 根据ID获取审批请求
//  	UpdateRequestFields - 使用map更新特定字段
//  高级查询功能:
//  	ListRequests - 分页获取审批请求列表
//  	GetOverdueCandidates - 获取已过截止时间且未终结的请求
//  	GetActiveTenantIDs - 获取存在未终结请求的租户ID集合
//  状态管理:
//  	UpdateRequestStatus - 更新请求状态
//  	UpdateRequestStatusFrom - 从指定状态原子迁移（RowsAffected判定）
//  	UpdateRequestStatusFromAny - 从候选状态集合原子迁移

package approval

import (
	"context"
	"time"

	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/pkg/logger"

	"gorm.io/gorm"
)

// RequestRepository 审批请求仓库结构体
// 负责处理审批请求相关的数据访问，不包含业务逻辑
type RequestRepository struct {
	db *gorm.DB // 数据库连接
}

// NewRequestRepository 创建审批请求仓库实例
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{
		db: db,
	}
}

// CreateRequest 创建审批请求
// @param ctx 上下文
// @param request 审批请求对象
// @return 错误信息
func (r *RequestRepository) CreateRequest(ctx context.Context, request *approval.Request) error {
	request.CreatedAt = time.Now()
	request.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Create(request).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "request_create", "REPO", map[string]interface{}{
			"operation":       "create_request",
			"tenant_id":       request.TenantID,
			"request_type_id": request.RequestTypeID,
			"requester_id":    request.RequesterID,
			"timestamp":       logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// GetRequestByID 根据ID获取审批请求
// 未找到返回 nil 而不是错误，让业务层处理
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 请求ID
// @return 审批请求对象和错误信息
func (r *RequestRepository) GetRequestByID(ctx context.Context, tenantID, id uint64) (*approval.Request, error) {
	var request approval.Request
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&request).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogBusinessError(err, "", 0, "", "request_get", "REPO", map[string]interface{}{
			"operation":  "get_request_by_id",
			"tenant_id":  tenantID,
			"request_id": id,
			"timestamp":  logger.NowFormatted(),
		})
		return nil, err
	}
	return &request, nil
}

// UpdateRequestFields 使用map更新特定字段
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 请求ID
// @param fields 更新字段映射
// @return 错误信息
func (r *RequestRepository) UpdateRequestFields(ctx context.Context, tenantID, id uint64, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	err := r.db.WithContext(ctx).
		Model(&approval.Request{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(fields).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "request_update_fields", "REPO", map[string]interface{}{
			"operation":  "update_request_fields",
			"tenant_id":  tenantID,
			"request_id": id,
			"timestamp":  logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// UpdateRequestStatus 更新请求状态
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 请求ID
// @param status 目标状态
// @return 错误信息
func (r *RequestRepository) UpdateRequestStatus(ctx context.Context, tenantID, id uint64, status approval.RequestStatus) error {
	return r.UpdateRequestFields(ctx, tenantID, id, map[string]interface{}{
		"status": status,
	})
}

// UpdateRequestStatusFrom 从指定状态原子迁移到目标状态
// WHERE 条件携带原状态，通过 RowsAffected 判定是否命中，
// 并发竞争时只有一个调用方能完成迁移
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 请求ID
// @param from 期望的当前状态
// @param fields 更新字段映射（需包含 status）
// @return 是否命中迁移和错误信息
func (r *RequestRepository) UpdateRequestStatusFrom(ctx context.Context, tenantID, id uint64, from approval.RequestStatus, fields map[string]interface{}) (bool, error) {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&approval.Request{}).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantID, id, from).
		Updates(fields)
	if result.Error != nil {
		logger.LogBusinessError(result.Error, "", 0, "", "request_update_status_from", "REPO", map[string]interface{}{
			"operation":  "update_request_status_from",
			"tenant_id":  tenantID,
			"request_id": id,
			"from":       from,
			"timestamp":  logger.NowFormatted(),
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateRequestStatusFromAny 从若干候选状态之一原子迁移到目标状态
// 取消与阶段聚合使用：请求可能处于 pending/in_progress/overdue 之一，
// 已进入终态的请求不会被覆盖
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 请求ID
// @param froms 允许的当前状态集合
// @param fields 更新字段映射（需包含 status）
// @return 是否命中迁移和错误信息
func (r *RequestRepository) UpdateRequestStatusFromAny(ctx context.Context, tenantID, id uint64, froms []approval.RequestStatus, fields map[string]interface{}) (bool, error) {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&approval.Request{}).
		Where("tenant_id = ? AND id = ? AND status IN ?", tenantID, id, froms).
		Updates(fields)
	if result.Error != nil {
		logger.LogBusinessError(result.Error, "", 0, "", "request_update_status_from_any", "REPO", map[string]interface{}{
			"operation":  "update_request_status_from_any",
			"tenant_id":  tenantID,
			"request_id": id,
			"timestamp":  logger.NowFormatted(),
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListRequests 分页获取审批请求列表
// @param ctx 上下文
// @param tenantID 租户ID
// @param req 查询条件
// @param offset 偏移量
// @param limit 每页数量
// @return 请求列表、总数和错误信息
func (r *RequestRepository) ListRequests(ctx context.Context, tenantID uint64, req *approval.ListRequestsRequest, offset, limit int) ([]*approval.Request, int64, error) {
	var requests []*approval.Request
	var total int64

	query := r.db.WithContext(ctx).
		Model(&approval.Request{}).
		Where("tenant_id = ?", tenantID)

	if req != nil {
		if req.Status != nil {
			query = query.Where("status = ?", *req.Status)
		}
		if req.RequestTypeID != nil {
			query = query.Where("request_type_id = ?", *req.RequestTypeID)
		}
		if req.RequesterID != nil {
			query = query.Where("requester_id = ?", *req.RequesterID)
		}
		if req.Keyword != nil && *req.Keyword != "" {
			query = query.Where("title LIKE ?", "%"+*req.Keyword+"%")
		}
	}

	// 获取总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	err := query.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "request_list", "REPO", map[string]interface{}{
			"operation": "list_requests",
			"tenant_id": tenantID,
			"timestamp": logger.NowFormatted(),
		})
		return nil, 0, err
	}

	return requests, total, nil
}

// GetOverdueCandidates 获取已过截止时间且未终结的请求
// 调度器逾期扫描使用，已处于 overdue 的请求不再返回
// @param ctx 上下文
// @param tenantID 租户ID
// @param now 当前时间（由调用方时钟注入）
// @param limit 单批数量上限
// @return 请求列表和错误信息
func (r *RequestRepository) GetOverdueCandidates(ctx context.Context, tenantID uint64, now time.Time, limit int) ([]*approval.Request, error) {
	var requests []*approval.Request
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND due_date IS NOT NULL AND due_date < ? AND status IN ?",
			tenantID, now, []approval.RequestStatus{
				approval.RequestStatusPending,
				approval.RequestStatusInProgress,
			}).
		Order("due_date ASC").
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "request_get_overdue", "REPO", map[string]interface{}{
			"operation": "get_overdue_candidates",
			"tenant_id": tenantID,
			"timestamp": logger.NowFormatted(),
		})
		return nil, err
	}
	return requests, nil
}

// GetActiveTenantIDs 获取存在未终结请求的租户ID集合
// 调度器按租户迭代扫描时使用
// @param ctx 上下文
// @return 租户ID列表和错误信息
func (r *RequestRepository) GetActiveTenantIDs(ctx context.Context) ([]uint64, error) {
	var tenantIDs []uint64
	err := r.db.WithContext(ctx).
		Model(&approval.Request{}).
		Where("status IN ?", []approval.RequestStatus{
			approval.RequestStatusPending,
			approval.RequestStatusInProgress,
			approval.RequestStatusOverdue,
		}).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenantIDs).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "request_active_tenants", "REPO", map[string]interface{}{
			"operation": "get_active_tenant_ids",
			"timestamp": logger.NowFormatted(),
		})
		return nil, err
	}
	return tenantIDs, nil
}
