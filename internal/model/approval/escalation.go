/**
 * 模型:审批升级
 * @author: sun977
 * @date: 2025.12.20
 * @description: 审批升级记录表，同一审批同时至多一条 Pending 升级，保证定时扫描幂等
 * @func: ApprovalEscalation 结构体及 EscalationStatus 状态枚举
 */
package approval

import (
	"time"

	"approvalmaster/internal/model/basemodel"
)

// EscalationStatus 升级记录状态
type EscalationStatus string

const (
	EscalationStatusPending  EscalationStatus = "pending"  // 升级已创建，等待新审批人处理
	EscalationStatusResolved EscalationStatus = "resolved" // 升级已被处理
	EscalationStatusExpired  EscalationStatus = "expired"  // 升级已失效
)

// ApprovalEscalation 审批升级记录表
type ApprovalEscalation struct {
	basemodel.BaseModel

	TenantID       uint64           `json:"tenant_id" gorm:"index;not null;comment:租户ID"`
	ApprovalID     uint64           `json:"approval_id" gorm:"index;not null;comment:承接升级的新审批记录ID"`
	RequestID      uint64           `json:"request_id" gorm:"index;not null;comment:审批请求ID"`
	FromApproverID uint64           `json:"from_approver_id" gorm:"not null;comment:原审批人ID"`
	ToApproverID   uint64           `json:"to_approver_id" gorm:"not null;comment:升级目标审批人ID"`
	Reason         string           `json:"reason" gorm:"size:500;comment:升级原因"`
	Status         EscalationStatus `json:"status" gorm:"size:20;index;default:'pending';comment:升级状态"`
	EscalatedAt    time.Time        `json:"escalated_at" gorm:"not null;comment:升级时间"`
	ResolvedAt     *time.Time       `json:"resolved_at" gorm:"comment:处理时间"`
}

// TableName 定义数据库表名
func (ApprovalEscalation) TableName() string {
	return "approval_escalations"
}
