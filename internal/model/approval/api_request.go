/**
 * 模型:审批请求模型
 * @author: sun977
 * @date: 2025.12.20
 * @description: 审批域API请求结构体，提交/决策/列表查询
 * @func: 各种Request结构体定义
 */
package approval

import "time"

// SubmitRequest 提交审批请求结构
type SubmitRequest struct {
	RequestTypeID uint64                 `json:"request_type_id" validate:"required"` // 请求类型ID，必填
	Title         string                 `json:"title" validate:"required,max=200"`   // 请求标题，必填
	Priority      int                    `json:"priority"`                            // 请求优先级，可选
	Data          map[string]interface{} `json:"data"`                                // 请求数据包，可选
	DueDate       *time.Time             `json:"due_date"`                            // 截止时间，可选
}

// DecisionRequest 审批决策请求结构
// Approve 仅需 Comments，Reject/Escalate 需要 Reason
type DecisionRequest struct {
	Reason   string `json:"reason" validate:"max=500"`    // 拒绝/升级原因
	Comments string `json:"comments" validate:"max=1000"` // 审批意见，可选
}

// CreateApprovalRequest 创建审批记录请求结构
type CreateApprovalRequest struct {
	RequestID  uint64 `json:"request_id" validate:"required"`   // 审批请求ID，必填
	ApproverID uint64 `json:"approver_id" validate:"required"`  // 审批人ID，必填
	Stage      int    `json:"stage" validate:"required,min=1"`  // 审批阶段，必填，从1开始
}

// EscalateRequest 审批升级请求结构
type EscalateRequest struct {
	ToApproverID uint64 `json:"to_approver_id" validate:"required"`  // 升级目标审批人ID，必填
	Reason       string `json:"reason" validate:"required,max=500"` // 升级原因，必填
}

// CancelRequestRequest 取消审批请求结构
type CancelRequestRequest struct {
	Reason string `json:"reason" validate:"max=500"` // 取消原因，可选
}

// ListRequestsRequest 获取审批请求列表请求结构
type ListRequestsRequest struct {
	Page          int            `json:"page" validate:"min=1"`              // 页码，默认1
	PageSize      int            `json:"page_size" validate:"min=1,max=100"` // 每页数量，默认10
	Status        *RequestStatus `json:"status"`                             // 状态过滤，可选
	RequestTypeID *uint64        `json:"request_type_id"`                    // 请求类型过滤，可选
	RequesterID   *uint64        `json:"requester_id"`                       // 申请人过滤，可选
	Keyword       *string        `json:"keyword"`                            // 标题关键词搜索，可选
}
