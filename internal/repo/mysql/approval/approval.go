/*
 * 审批记录仓库层：审批记录数据访问
 * @author: sun977
 * @date: 2025.12.20
 * @description: 单纯数据访问，不应该包含业务逻辑
 * @func:
 * 1.创建/查询审批记录
 * 2.待处理记录的原子决策更新（RowsAffected 判定竞争结果）
 * 3.阶段聚合统计与滞留记录扫描
 */

//  基础CRUD操作:
//  	CreateApproval - 创建审批记录
//  	GetApprovalByID - 根据ID获取审批记录
//  	GetPendingApproval - 获取指定审批人在请求上的待处理记录
//  高级查询功能:
//  	ListApprovalsByRequest - 获取请求的全部审批记录
//  	ListApprovalsByRequestStage - 获取请求在指定阶段的审批记录
//  	GetPendingApprovalsPage - 分页获取审批人的待处理记录
//  	GetStaleApprovals - 获取超过滞留阈值的待处理记录（升级扫描）
//  状态管理:
//  	UpdateStatusFromPending - 从 pending 原子迁移决策状态
//  	CountUndecidedByRequestStage - 统计请求指定阶段未决记录数

package approval

import (
	"context"
	"time"

	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/pkg/logger"

	"gorm.io/gorm"
)

// ApprovalRepository 审批记录仓库结构体
// 负责处理审批记录相关的数据访问，不包含业务逻辑
type ApprovalRepository struct {
	db *gorm.DB // 数据库连接
}

// NewApprovalRepository 创建审批记录仓库实例
func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{
		db: db,
	}
}

// CreateApproval 创建审批记录
// @param ctx 上下文
// @param record 审批记录对象
// @return 错误信息
func (r *ApprovalRepository) CreateApproval(ctx context.Context, record *approval.Approval) error {
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "approval_create", "REPO", map[string]interface{}{
			"operation":   "create_approval",
			"tenant_id":   record.TenantID,
			"request_id":  record.RequestID,
			"approver_id": record.ApproverID,
			"stage":       record.Stage,
			"timestamp":   logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// GetApprovalByID 根据ID获取审批记录
// 未找到返回 nil 而不是错误，让业务层处理
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 审批记录ID
// @return 审批记录对象和错误信息
func (r *ApprovalRepository) GetApprovalByID(ctx context.Context, tenantID, id uint64) (*approval.Approval, error) {
	var record approval.Approval
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogBusinessError(err, "", 0, "", "approval_get", "REPO", map[string]interface{}{
			"operation":   "get_approval_by_id",
			"tenant_id":   tenantID,
			"approval_id": id,
			"timestamp":   logger.NowFormatted(),
		})
		return nil, err
	}
	return &record, nil
}

// GetPendingApproval 获取指定审批人在请求上的待处理记录
// 同一 (request_id, approver_id) 最多存在一条 pending 记录，
// 未找到返回 nil 而不是错误，让业务层处理
// @param ctx 上下文
// @param tenantID 租户ID
// @param requestID 请求ID
// @param approverID 审批人ID
// @return 审批记录对象和错误信息
func (r *ApprovalRepository) GetPendingApproval(ctx context.Context, tenantID, requestID, approverID uint64) (*approval.Approval, error) {
	var record approval.Approval
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND request_id = ? AND approver_id = ? AND status = ?",
			tenantID, requestID, approverID, approval.ApprovalStatusPending).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogBusinessError(err, "", 0, "", "approval_get_pending", "REPO", map[string]interface{}{
			"operation":   "get_pending_approval",
			"tenant_id":   tenantID,
			"request_id":  requestID,
			"approver_id": approverID,
			"timestamp":   logger.NowFormatted(),
		})
		return nil, err
	}
	return &record, nil
}

// UpdateStatusFromPending 从 pending 原子迁移决策状态
// WHERE 条件限定 status = 'pending'，RowsAffected = 0 表示
// 已被并发的另一方决策，调用方据此返回幂等失败而非报错
// @param ctx 上下文
// @param tenantID 租户ID
// @param id 审批记录ID
// @param status 目标状态
// @param fields 附加更新字段（comments/approved_at 等，可为 nil）
// @return 是否命中迁移和错误信息
func (r *ApprovalRepository) UpdateStatusFromPending(ctx context.Context, tenantID, id uint64, status approval.ApprovalStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).
		Model(&approval.Approval{}).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantID, id, approval.ApprovalStatusPending).
		Updates(updates)
	if result.Error != nil {
		logger.LogBusinessError(result.Error, "", 0, "", "approval_update_status", "REPO", map[string]interface{}{
			"operation":   "update_status_from_pending",
			"tenant_id":   tenantID,
			"approval_id": id,
			"status":      status,
			"timestamp":   logger.NowFormatted(),
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListApprovalsByRequest 获取请求的全部审批记录
// @param ctx 上下文
// @param tenantID 租户ID
// @param requestID 请求ID
// @return 审批记录列表和错误信息
func (r *ApprovalRepository) ListApprovalsByRequest(ctx context.Context, tenantID, requestID uint64) ([]*approval.Approval, error) {
	var records []*approval.Approval
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND request_id = ?", tenantID, requestID).
		Order("stage ASC, id ASC").
		Find(&records).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "approval_list_by_request", "REPO", map[string]interface{}{
			"operation":  "list_approvals_by_request",
			"tenant_id":  tenantID,
			"request_id": requestID,
			"timestamp":  logger.NowFormatted(),
		})
		return nil, err
	}
	return records, nil
}

// ListApprovalsByRequestStage 获取请求在指定阶段的审批记录
// 阶段聚合判定使用
// @param ctx 上下文
// @param tenantID 租户ID
// @param requestID 请求ID
// @param stage 阶段序号
// @return 审批记录列表和错误信息
func (r *ApprovalRepository) ListApprovalsByRequestStage(ctx context.Context, tenantID, requestID uint64, stage int) ([]*approval.Approval, error) {
	var records []*approval.Approval
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND request_id = ? AND stage = ?", tenantID, requestID, stage).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountUndecidedByRequestStage 统计请求指定阶段未决记录数
// 仅统计 pending（升级记录会产生新的 pending 替身），计数为 0 表示该阶段已排空
// @param ctx 上下文
// @param tenantID 租户ID
// @param requestID 请求ID
// @param stage 阶段序号
// @return 未决记录数和错误信息
func (r *ApprovalRepository) CountUndecidedByRequestStage(ctx context.Context, tenantID, requestID uint64, stage int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&approval.Approval{}).
		Where("tenant_id = ? AND request_id = ? AND stage = ? AND status = ?",
			tenantID, requestID, stage, approval.ApprovalStatusPending).
		Count(&count).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "approval_count_undecided", "REPO", map[string]interface{}{
			"operation":  "count_undecided_by_request_stage",
			"tenant_id":  tenantID,
			"request_id": requestID,
			"stage":      stage,
			"timestamp":  logger.NowFormatted(),
		})
		return 0, err
	}
	return count, nil
}

// GetPendingApprovalsPage 分页获取审批人的待处理记录
// @param ctx 上下文
// @param tenantID 租户ID
// @param approverID 审批人ID
// @param offset 偏移量
// @param limit 每页数量
// @return 审批记录列表、总数和错误信息
func (r *ApprovalRepository) GetPendingApprovalsPage(ctx context.Context, tenantID, approverID uint64, offset, limit int) ([]*approval.Approval, int64, error) {
	var records []*approval.Approval
	var total int64

	query := r.db.WithContext(ctx).
		Model(&approval.Approval{}).
		Where("tenant_id = ? AND approver_id = ? AND status = ?",
			tenantID, approverID, approval.ApprovalStatusPending)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Offset(offset).Limit(limit).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "approval_pending_page", "REPO", map[string]interface{}{
			"operation":   "get_pending_approvals_page",
			"tenant_id":   tenantID,
			"approver_id": approverID,
			"timestamp":   logger.NowFormatted(),
		})
		return nil, 0, err
	}
	return records, total, nil
}

// GetStaleApprovals 获取超过滞留阈值的待处理记录
// 升级扫描使用：pending 状态、创建时间早于 cutoff、
// 且所属请求设置了截止时间并仍在活跃状态。
// 终态请求(取消/拒绝等)遗留的 pending 记录不参与升级与提醒
// @param ctx 上下文
// @param tenantID 租户ID
// @param cutoff 滞留时间分界点
// @param limit 单批数量上限
// @return 审批记录列表和错误信息
func (r *ApprovalRepository) GetStaleApprovals(ctx context.Context, tenantID uint64, cutoff time.Time, limit int) ([]*approval.Approval, error) {
	activeStatuses := []approval.RequestStatus{
		approval.RequestStatusPending,
		approval.RequestStatusInProgress,
		approval.RequestStatusOverdue,
	}
	var records []*approval.Approval
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND created_at < ?",
			tenantID, approval.ApprovalStatusPending, cutoff).
		Where("request_id IN (?)", r.db.
			Model(&approval.Request{}).
			Select("id").
			Where("tenant_id = ? AND due_date IS NOT NULL AND status IN ?", tenantID, activeStatuses)).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "approval_get_stale", "REPO", map[string]interface{}{
			"operation": "get_stale_approvals",
			"tenant_id": tenantID,
			"timestamp": logger.NowFormatted(),
		})
		return nil, err
	}
	return records, nil
}
