/**
 * 模型:工作流配置请求模型
 * @author: sun977
 * @date: 2025.12.20
 * @description: 工作流配置管理与实例查询相关的请求结构体
 * @func: 配置创建/更新/列表、实例列表等请求模型
 */
package workflow

import "approvalmaster/internal/pkg/rule_engine"

// CreateConfigurationRequest 创建工作流配置请求结构
type CreateConfigurationRequest struct {
	Name                   string                       `json:"name" validate:"required,min=1,max=100"`  // 配置名称，必填
	Description            string                       `json:"description" validate:"max=500"`          // 描述，可选
	RequestTypeID          uint64                       `json:"request_type_id" validate:"required"`     // 请求类型ID，必填
	EvaluationRules        []rule_engine.EvaluationRule `json:"evaluation_rules"`                        // 路由规则，可选
	StartConditions        []rule_engine.Condition      `json:"start_conditions"`                        // 启动条件，可选
	CompletionConditions   []rule_engine.Condition      `json:"completion_conditions"`                   // 完成条件，可选
	StageDefinitions       []StageDefinition            `json:"stage_definitions"`                       // 阶段定义，可选
	EscalationSettings     *EscalationConfig            `json:"escalation_settings"`                     // 升级策略，可选
	Priority               int                          `json:"priority"`                                // 配置优先级，可选
	RequiresManualApproval bool                         `json:"requires_manual_approval"`                // 是否需要人工审批
	MaxExecutionTimeHours  int                          `json:"max_execution_time_hours" validate:"min=0"` // 最大执行时长，可选
	MaxRetryCount          int                          `json:"max_retry_count" validate:"min=0"`        // 最大重试次数，可选
}

// UpdateConfigurationRequest 更新工作流配置请求结构
// 指针字段为nil表示不更新该字段，更新成功后版本号+1
type UpdateConfigurationRequest struct {
	Name                   *string                      `json:"name" validate:"omitempty,min=1,max=100"` // 配置名称，可选
	Description            *string                      `json:"description" validate:"omitempty,max=500"` // 描述，可选
	EvaluationRules        []rule_engine.EvaluationRule `json:"evaluation_rules"`                        // 路由规则，可选
	StartConditions        []rule_engine.Condition      `json:"start_conditions"`                        // 启动条件，可选
	CompletionConditions   []rule_engine.Condition      `json:"completion_conditions"`                   // 完成条件，可选
	StageDefinitions       []StageDefinition            `json:"stage_definitions"`                       // 阶段定义，可选
	EscalationSettings     *EscalationConfig            `json:"escalation_settings"`                     // 升级策略，可选
	Priority               *int                         `json:"priority"`                                // 配置优先级，可选
	IsActive               *bool                        `json:"is_active"`                               // 启用开关，可选
	RequiresManualApproval *bool                        `json:"requires_manual_approval"`                // 是否需要人工审批，可选
	MaxExecutionTimeHours  *int                         `json:"max_execution_time_hours"`                // 最大执行时长，可选
	MaxRetryCount          *int                         `json:"max_retry_count"`                         // 最大重试次数，可选
}

// ListConfigurationsRequest 获取工作流配置列表请求结构
type ListConfigurationsRequest struct {
	Page          int           `json:"page" validate:"min=1"`              // 页码，默认1
	PageSize      int           `json:"page_size" validate:"min=1,max=100"` // 每页数量，默认10
	RequestTypeID *uint64       `json:"request_type_id"`                    // 请求类型过滤，可选
	Status        *ConfigStatus `json:"status"`                             // 状态过滤，可选
	IsActive      *bool         `json:"is_active"`                          // 启用开关过滤，可选
	Keyword       *string       `json:"keyword"`                            // 名称关键词搜索，可选
}

// SelectConfigurationRequest 配置选择请求结构
type SelectConfigurationRequest struct {
	RequestTypeID uint64                 `json:"request_type_id" validate:"required"` // 请求类型ID，必填
	Data          map[string]interface{} `json:"data"`                                // 请求数据包，可选
}

// ListInstancesRequest 获取工作流实例列表请求结构
type ListInstancesRequest struct {
	Page      int             `json:"page" validate:"min=1"`              // 页码，默认1
	PageSize  int             `json:"page_size" validate:"min=1,max=100"` // 每页数量，默认10
	Status    *InstanceStatus `json:"status"`                             // 状态过滤，可选
	RequestID *uint64         `json:"request_id"`                         // 关联请求过滤，可选
	ConfigID  *uint64         `json:"config_id"`                          // 关联配置过滤，可选
}
