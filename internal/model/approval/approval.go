/**
 * 模型:审批记录
 * @author: sun977
 * @date: 2025.12.20
 * @description: 审批记录表，同一 (request, approver) 同时至多一条 Pending，决策路径依赖该不变量做并发防护
 * @func: Approval 结构体及 ApprovalStatus 状态枚举
 */
package approval

import (
	"time"

	"approvalmaster/internal/model/basemodel"
)

// ApprovalStatus 审批记录状态
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"   // 待处理
	ApprovalStatusApproved  ApprovalStatus = "approved"  // 已通过
	ApprovalStatusRejected  ApprovalStatus = "rejected"  // 已拒绝
	ApprovalStatusEscalated ApprovalStatus = "escalated" // 已升级
)

// Approval 审批记录表
// 同一阶段可存在多条记录以支持并行审批，阶段完成以全部非 Pending 为准
type Approval struct {
	basemodel.BaseModel

	TenantID   uint64         `json:"tenant_id" gorm:"index;not null;comment:租户ID"`
	RequestID  uint64         `json:"request_id" gorm:"index:idx_appr_req_approver,priority:1;not null;comment:审批请求ID"`
	ApproverID uint64         `json:"approver_id" gorm:"index:idx_appr_req_approver,priority:2;not null;comment:审批人ID"`
	Stage      int            `json:"stage" gorm:"not null;default:1;comment:审批阶段，从1开始"`
	Status     ApprovalStatus `json:"status" gorm:"size:20;index;default:'pending';comment:审批状态"`
	Comments   string         `json:"comments" gorm:"size:1000;comment:审批意见"`
	ApprovedAt *time.Time     `json:"approved_at" gorm:"comment:决策时间"`
}

// TableName 定义数据库表名
func (Approval) TableName() string {
	return "approvals"
}

// IsDecided 判断该审批是否已被处理
func (a *Approval) IsDecided() bool {
	return a.Status != ApprovalStatusPending
}
