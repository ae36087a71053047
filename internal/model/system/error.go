/**
 * 模型:错误定义
 * @author: sun977
 * @date: 2025.12.20
 * @description: 系统错误常量和错误类型定义
 * @func: 各种错误常量和ValidationError结构体
 */
package system

import "errors"

// 工作流配置相关错误
var (
	// 验证错误
	ErrInvalidTenantID      = errors.New("租户ID无效")
	ErrInvalidRequestType   = errors.New("请求类型无效")
	ErrInvalidStage         = errors.New("审批阶段无效，阶段编号从1开始")
	ErrInvalidPriority      = errors.New("优先级无效")
	ErrInvalidOperator      = errors.New("不支持的操作符")
	ErrInvalidRuleValue     = errors.New("规则值类型无效")
	ErrInvalidEscalation    = errors.New("升级配置无效")
	ErrInvalidPageParameter = errors.New("分页参数无效")

	// 配置生命周期错误
	ErrConfigNotFound       = errors.New("工作流配置不存在")
	ErrConfigNotDraft       = errors.New("仅草稿状态的配置可以激活")
	ErrConfigArchived       = errors.New("配置已归档，不可修改")
	ErrConfigRulesMalformed = errors.New("配置规则JSON格式错误")

	// 审批业务错误
	ErrRequestNotFound        = errors.New("审批请求不存在")
	ErrRequestTerminal        = errors.New("审批请求已处于终态")
	ErrApprovalNotFound       = errors.New("待处理审批不存在")
	ErrApprovalAlreadyPending = errors.New("该审批人已存在待处理审批")
	ErrEscalationPending      = errors.New("已存在待处理的审批升级")
	ErrStageNotDrained        = errors.New("当前阶段尚有待处理审批，不能推进到下一阶段")
	ErrStageNotApproved       = errors.New("当前阶段未全部通过，不能推进到下一阶段")
	ErrNoNextStage            = errors.New("没有可推进的下一阶段")

	// 工作流实例错误
	ErrInstanceNotFound = errors.New("工作流实例不存在")
	ErrInstanceTerminal = errors.New("工作流实例已结束")

	// 认证错误
	ErrTokenExpired = errors.New("令牌已过期")
	ErrTokenInvalid = errors.New("令牌无效")
	ErrUnauthorized = errors.New("未授权访问")
)

// ValidationError 验证错误结构体
type ValidationError struct {
	Field   string `json:"field"`   // 字段名
	Message string `json:"message"` // 错误消息
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		Message: message,
	}
}

// NewFieldValidationError 创建带字段名的验证错误
func NewFieldValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}
