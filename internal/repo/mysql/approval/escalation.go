/*
 * 审批升级仓库层：升级记录数据访问
 * @author: sun977
 * @date: 2025.12.20
 * @description: 单纯数据访问，不应该包含业务逻辑
 * @func:
 * 1.创建升级记录
 * 2.待处理升级存在性判定（幂等保证）
 * 3.升级记录解决与历史清理
 */

//  基础CRUD操作:
//  	CreateEscalation - 创建升级记录
//  	ListEscalationsByRequest - 获取请求的升级记录列表
//  状态管理:
//  	HasPendingEscalation - 判定审批记录是否为未解决升级的承接记录
//  	ResolvePendingByApproval - 解决审批记录上的待处理升级
//  历史清理:
//  	DeleteResolvedBefore - 清理指定时间前已解决的升级记录

package approval

import (
	"context"
	"time"

	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/pkg/logger"

	"gorm.io/gorm"
)

// EscalationRepository 审批升级仓库结构体
type EscalationRepository struct {
	db *gorm.DB // 数据库连接
}

// NewEscalationRepository 创建审批升级仓库实例
func NewEscalationRepository(db *gorm.DB) *EscalationRepository {
	return &EscalationRepository{
		db: db,
	}
}

// CreateEscalation 创建升级记录
// @param ctx 上下文
// @param escalation 升级记录对象
// @return 错误信息
func (r *EscalationRepository) CreateEscalation(ctx context.Context, escalation *approval.ApprovalEscalation) error {
	escalation.CreatedAt = time.Now()
	escalation.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Create(escalation).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "escalation_create", "REPO", map[string]interface{}{
			"operation":   "create_escalation",
			"tenant_id":   escalation.TenantID,
			"approval_id": escalation.ApprovalID,
			"request_id":  escalation.RequestID,
			"timestamp":   logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// HasPendingEscalation 判定审批记录是否为未解决升级的承接记录
// 自动升级防链式使用：已是升级承接的滞留审批不再二次升级
// @param ctx 上下文
// @param tenantID 租户ID
// @param approvalID 审批记录ID
// @return 是否存在和错误信息
func (r *EscalationRepository) HasPendingEscalation(ctx context.Context, tenantID, approvalID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&approval.ApprovalEscalation{}).
		Where("tenant_id = ? AND approval_id = ? AND status = ?",
			tenantID, approvalID, approval.EscalationStatusPending).
		Count(&count).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "escalation_has_pending", "REPO", map[string]interface{}{
			"operation":   "has_pending_escalation",
			"tenant_id":   tenantID,
			"approval_id": approvalID,
			"timestamp":   logger.NowFormatted(),
		})
		return false, err
	}
	return count > 0, nil
}

// ResolvePendingByApproval 解决审批记录上的待处理升级
// 升级承接的决策落地后调用
// @param ctx 上下文
// @param tenantID 租户ID
// @param approvalID 审批记录ID
// @param resolvedAt 解决时间
// @return 错误信息
func (r *EscalationRepository) ResolvePendingByApproval(ctx context.Context, tenantID, approvalID uint64, resolvedAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&approval.ApprovalEscalation{}).
		Where("tenant_id = ? AND approval_id = ? AND status = ?",
			tenantID, approvalID, approval.EscalationStatusPending).
		Updates(map[string]interface{}{
			"status":      approval.EscalationStatusResolved,
			"resolved_at": resolvedAt,
			"updated_at":  time.Now(),
		}).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "escalation_resolve", "REPO", map[string]interface{}{
			"operation":   "resolve_pending_by_approval",
			"tenant_id":   tenantID,
			"approval_id": approvalID,
			"timestamp":   logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// ListEscalationsByRequest 获取请求的升级记录列表
// @param ctx 上下文
// @param tenantID 租户ID
// @param requestID 请求ID
// @return 升级记录列表和错误信息
func (r *EscalationRepository) ListEscalationsByRequest(ctx context.Context, tenantID, requestID uint64) ([]*approval.ApprovalEscalation, error) {
	var escalations []*approval.ApprovalEscalation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND request_id = ?", tenantID, requestID).
		Order("escalated_at ASC").
		Find(&escalations).Error
	if err != nil {
		return nil, err
	}
	return escalations, nil
}

// DeleteResolvedBefore 清理指定时间前已解决的升级记录
// 历史数据清理任务使用
// @param ctx 上下文
// @param cutoff 保留分界点
// @return 删除数量和错误信息
func (r *EscalationRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND resolved_at IS NOT NULL AND resolved_at < ?",
			approval.EscalationStatusResolved, cutoff).
		Delete(&approval.ApprovalEscalation{})
	if result.Error != nil {
		logger.LogBusinessError(result.Error, "", 0, "", "escalation_cleanup", "REPO", map[string]interface{}{
			"operation": "delete_resolved_before",
			"cutoff":    cutoff,
			"timestamp": logger.NowFormatted(),
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
