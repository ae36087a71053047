/**
 * 模型:审批请求
 * @author: sun977
 * @date: 2025.12.20
 * @description: 审批请求表，状态由审批聚合结果推导，人工仅能触发取消
 * @func: Request 结构体及 RequestStatus 状态枚举
 */
package approval

import (
	"encoding/json"
	"time"

	"approvalmaster/internal/model/basemodel"

	"gorm.io/gorm"
)

// RequestStatus 审批请求状态
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"     // 已提交，尚未进入审批
	RequestStatusInProgress RequestStatus = "in_progress" // 审批中
	RequestStatusApproved   RequestStatus = "approved"    // 已自动通过
	RequestStatusRejected   RequestStatus = "rejected"    // 已拒绝
	RequestStatusCancelled  RequestStatus = "cancelled"   // 已取消，唯一人工可设置的终态
	RequestStatusCompleted  RequestStatus = "completed"   // 审批流程完成
	RequestStatusOverdue    RequestStatus = "overdue"     // 已超期
)

// IsTerminal 判断请求状态是否为终态
// Overdue 不是终态，超期请求仍可被审批
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled, RequestStatusCompleted:
		return true
	}
	return false
}

// Request 审批请求表
type Request struct {
	basemodel.BaseModel

	TenantID        uint64        `json:"tenant_id" gorm:"index:idx_req_tenant_status,priority:1;not null;comment:租户ID"`
	RequestTypeID   uint64        `json:"request_type_id" gorm:"index;not null;comment:请求类型ID"`
	Title           string        `json:"title" gorm:"size:200;comment:请求标题"`
	RequesterID     uint64        `json:"requester_id" gorm:"index;not null;comment:申请人ID"`
	Status          RequestStatus `json:"status" gorm:"size:20;index:idx_req_tenant_status,priority:2;default:'pending';comment:请求状态"`
	Priority        int           `json:"priority" gorm:"default:0;comment:请求优先级"`
	Data            string        `json:"data" gorm:"type:json;comment:请求数据包(JSON)"`
	ConfigID        uint64        `json:"config_id" gorm:"comment:命中的工作流配置ID"`
	CurrentStage    int           `json:"current_stage" gorm:"default:0;comment:当前审批阶段，0表示未进入审批"`
	DueDate         *time.Time    `json:"due_date" gorm:"index;comment:截止时间"`
	RejectionReason string        `json:"rejection_reason" gorm:"size:500;comment:拒绝原因"`
	CompletedAt     *time.Time    `json:"completed_at" gorm:"comment:完成时间"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index;comment:软删除时间"`
}

// TableName 定义数据库表名
func (Request) TableName() string {
	return "approval_requests"
}

// ParseData 解析请求数据包
func (r *Request) ParseData() (map[string]interface{}, error) {
	if r.Data == "" {
		return nil, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(r.Data), &data); err != nil {
		return nil, err
	}
	return data, nil
}
