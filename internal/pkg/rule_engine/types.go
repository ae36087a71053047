/**
 * 规则引擎:类型定义
 * @author: sun977
 * @date: 2025.12.20
 * @description: 评估规则/条件的数据结构定义，JSON 字段名与配置存储格式保持一致，不可随意变更
 * @func: EvaluationRule / Condition / EvaluationResult 结构体定义
 */
package rule_engine

// 支持的操作符集合（封闭集，不支持动态扩展）
const (
	OpEquals         = "equals"         // 相等（字符串比较忽略大小写）
	OpNotEquals      = "notEquals"      // 不相等
	OpGreaterThan    = "greaterThan"    // 大于
	OpLessThan       = "lessThan"       // 小于
	OpGreaterOrEqual = "greaterOrEqual" // 大于等于
	OpLessOrEqual    = "lessOrEqual"    // 小于等于
	OpContains       = "contains"       // 字符串包含
	OpIn             = "in"             // 值在数组中
	OpNotIn          = "notIn"          // 值不在数组中
	OpBetween        = "between"        // 闭区间 [low, high]
)

// 逻辑操作符
const (
	LogicalAnd = "AND"
	LogicalOr  = "OR"
)

// EvaluationRule 评估规则
// 表示一条独立的路由决策规则，与 AND/OR 分组无关
// JSON 字段名为配置的持久化格式，需要保持跨系统可移植
type EvaluationRule struct {
	Field    string      `json:"field"`    // 数据字段名，支持 "a.b.c" 嵌套访问
	Operator string      `json:"operator"` // 操作符（见上方常量）
	Value    interface{} `json:"value"`    // 期望值
	Action   string      `json:"action"`   // 规则命中后的动作
	Priority int         `json:"priority"` // 优先级，数值越小越先评估
	IsActive bool        `json:"isActive"` // 是否启用
}

// Condition 条件
// 同一 groupId 内的条件按 AND 组合，组与组之间按 OR 组合
// LogicalOperator 字段保留用于配置可移植性，分组语义以 GroupID 为准
type Condition struct {
	Field           string      `json:"field"`           // 数据字段名
	Operator        string      `json:"operator"`        // 操作符
	Value           interface{} `json:"value"`           // 期望值
	LogicalOperator string      `json:"logicalOperator"` // AND / OR
	GroupID         int         `json:"groupId"`         // 条件分组ID
	Priority        int         `json:"priority"`        // 组内评估顺序
}

// EvaluationResult 规则集评估结果
type EvaluationResult struct {
	IsValid      bool             `json:"is_valid"`      // 规则集本身是否合法（存在畸形规则时为false）
	MatchedRules []EvaluationRule `json:"matched_rules"` // 命中的规则列表（按评估顺序）
	ResultAction string           `json:"result_action"` // 最终动作
	Errors       []string         `json:"errors"`        // 畸形规则的错误描述（不会中断评估）
}
