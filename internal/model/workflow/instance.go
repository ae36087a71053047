/**
 * 模型:工作流实例
 * @author: sun977
 * @date: 2025.12.20
 * @description: 工作流实例台账，追加式记录每个请求的工作流运行轨迹与状态流转历史
 * @func: WorkflowInstance / WorkflowInstanceTransition 结构体及状态枚举
 */
package workflow

import (
	"encoding/json"
	"time"

	"approvalmaster/internal/model/basemodel"
)

// InstanceStatus 工作流实例状态
type InstanceStatus string

const (
	InstanceStatusStarted   InstanceStatus = "started"   // 已创建，尚未执行
	InstanceStatusRunning   InstanceStatus = "running"   // 执行中
	InstanceStatusSuspended InstanceStatus = "suspended" // 挂起，等待外部输入
	InstanceStatusCompleted InstanceStatus = "completed" // 正常结束
	InstanceStatusFailed    InstanceStatus = "failed"    // 异常结束
	InstanceStatusCancelled InstanceStatus = "cancelled" // 人工取消
)

// IsTerminal 判断实例状态是否为终态
func (s InstanceStatus) IsTerminal() bool {
	switch s {
	case InstanceStatusCompleted, InstanceStatusFailed, InstanceStatusCancelled:
		return true
	}
	return false
}

// WorkflowInstance 工作流实例表
// InstanceID 为对外暴露的UUID，内部主键仅用于存储
type WorkflowInstance struct {
	basemodel.BaseModel

	InstanceID   string         `json:"instance_id" gorm:"size:36;uniqueIndex;not null;comment:实例UUID"`
	TenantID     uint64         `json:"tenant_id" gorm:"index:idx_wi_tenant_status,priority:1;not null;comment:租户ID"`
	RequestID    uint64         `json:"request_id" gorm:"index;comment:关联的审批请求ID"`
	ConfigID     uint64         `json:"config_id" gorm:"comment:工作流配置ID"`
	WorkflowName string         `json:"workflow_name" gorm:"size:100;comment:工作流名称"`
	Status       InstanceStatus `json:"status" gorm:"size:20;index:idx_wi_tenant_status,priority:2;default:'started';comment:实例状态"`
	CurrentStage int            `json:"current_stage" gorm:"default:0;comment:当前审批阶段"`
	Data         string         `json:"data" gorm:"type:json;comment:实例数据快照(JSON)"`
	StartedAt    time.Time      `json:"started_at" gorm:"comment:启动时间"`
	FinishedAt   *time.Time     `json:"finished_at" gorm:"comment:结束时间"`
	ErrorMessage string         `json:"error_message" gorm:"type:text;comment:失败原因"`
}

// TableName 定义数据库表名
func (WorkflowInstance) TableName() string {
	return "workflow_instances"
}

// ParseData 解析实例数据快照
func (i *WorkflowInstance) ParseData() (map[string]interface{}, error) {
	if i.Data == "" {
		return nil, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(i.Data), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// WorkflowInstanceTransition 实例状态流转记录表
// 追加写入，不更新不删除，用于审计查询与幂等判断
type WorkflowInstanceTransition struct {
	basemodel.BaseModel

	InstanceID string         `json:"instance_id" gorm:"size:36;index;not null;comment:实例UUID"`
	TenantID   uint64         `json:"tenant_id" gorm:"index;not null;comment:租户ID"`
	FromStatus InstanceStatus `json:"from_status" gorm:"size:20;comment:流转前状态"`
	ToStatus   InstanceStatus `json:"to_status" gorm:"size:20;not null;comment:流转后状态"`
	Stage      int            `json:"stage" gorm:"comment:流转时所处阶段"`
	Reason     string         `json:"reason" gorm:"size:500;comment:流转原因"`
	OperatorID uint64         `json:"operator_id" gorm:"comment:操作者ID，0表示系统"`
	OccurredAt time.Time      `json:"occurred_at" gorm:"not null;comment:流转发生时间"`
}

// TableName 定义数据库表名
func (WorkflowInstanceTransition) TableName() string {
	return "workflow_instance_transitions"
}
