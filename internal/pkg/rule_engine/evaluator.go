/**
 * 规则引擎:评估器
 * @author: sun977
 * @date: 2025.12.20
 * @description: 对请求数据包评估路由规则与启动/完成条件。纯计算，不做任何持久化
 * @func:
 * 	1.Evaluate 评估规则集并产出动作
 * 	2.EvaluateConditions 评估条件组（组内AND，组间OR）
 * 	3.ValidateRule / ValidateCondition 配置合法性校验
 */
package rule_engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Evaluator 规则评估器
type Evaluator struct {
	logger           *logrus.Logger
	stopOnFirstMatch bool // 命中第一条规则后停止评估
}

// NewEvaluator 创建评估器实例
func NewEvaluator(logger *logrus.Logger, stopOnFirstMatch bool) *Evaluator {
	return &Evaluator{
		logger:           logger,
		stopOnFirstMatch: stopOnFirstMatch,
	}
}

// Evaluate 评估规则集
// 规则按 priority 升序评估；禁用规则跳过；没有任何命中时返回 defaultAction
// 畸形规则记录到 Errors 并置 IsValid=false，但不会中断其余规则的评估
func (e *Evaluator) Evaluate(rules []EvaluationRule, data map[string]interface{}, defaultAction string) EvaluationResult {
	result := EvaluationResult{
		IsValid:      true,
		MatchedRules: make([]EvaluationRule, 0),
		ResultAction: defaultAction,
	}

	ordered := make([]EvaluationRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for _, rule := range ordered {
		if !rule.IsActive {
			continue
		}

		matched, err := e.evaluateOperator(rule.Field, rule.Operator, rule.Value, data)
		if err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, fmt.Sprintf("rule field=%s operator=%s: %v", rule.Field, rule.Operator, err))
			continue
		}
		if !matched {
			continue
		}

		result.MatchedRules = append(result.MatchedRules, rule)
		// 命中规则按评估顺序排列，最先命中者优先级最高，取其动作
		if len(result.MatchedRules) == 1 && rule.Action != "" {
			result.ResultAction = rule.Action
		}
		if e.stopOnFirstMatch {
			break
		}
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"rule_count":    len(rules),
			"matched_count": len(result.MatchedRules),
			"result_action": result.ResultAction,
			"is_valid":      result.IsValid,
			"func_name":     "evaluator.Evaluate",
		}).Debug("规则集评估完成")
	}

	return result
}

// EvaluateConditions 评估条件列表
// 条件按 GroupID 分组：组内全部为真则该组满足，任一组满足则整体满足
// 空条件列表视为恒真；畸形条件视为该条件不满足
func (e *Evaluator) EvaluateConditions(conditions []Condition, data map[string]interface{}) bool {
	if len(conditions) == 0 {
		return true
	}

	groups := make(map[int][]Condition)
	groupIDs := make([]int, 0)
	for _, cond := range conditions {
		if _, ok := groups[cond.GroupID]; !ok {
			groupIDs = append(groupIDs, cond.GroupID)
		}
		groups[cond.GroupID] = append(groups[cond.GroupID], cond)
	}
	sort.Ints(groupIDs)

	for _, gid := range groupIDs {
		if e.evaluateGroup(groups[gid], data) {
			return true
		}
	}
	return false
}

// evaluateGroup 评估单个条件组（组内AND）
func (e *Evaluator) evaluateGroup(conditions []Condition, data map[string]interface{}) bool {
	ordered := make([]Condition, len(conditions))
	copy(ordered, conditions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for _, cond := range ordered {
		matched, err := e.evaluateOperator(cond.Field, cond.Operator, cond.Value, data)
		if err != nil {
			if e.logger != nil {
				e.logger.WithFields(logrus.Fields{
					"field":     cond.Field,
					"operator":  cond.Operator,
					"group_id":  cond.GroupID,
					"error":     err.Error(),
					"func_name": "evaluator.evaluateGroup",
				}).Warn("条件评估失败，视为不满足")
			}
			return false
		}
		if !matched {
			return false
		}
	}
	return true
}

// evaluateOperator 对单个字段执行操作符比较
// 字段在数据包中不存在时视为不匹配（非错误）
func (e *Evaluator) evaluateOperator(field, operator string, expected interface{}, data map[string]interface{}) (bool, error) {
	raw, exists := e.getFieldValue(field, data)
	if !exists {
		return false, nil
	}

	fieldValue := FromAny(raw)
	expectedValue := FromAny(expected)

	switch operator {
	case OpEquals:
		return fieldValue.EqualsFold(expectedValue), nil
	case OpNotEquals:
		return !fieldValue.EqualsFold(expectedValue), nil
	case OpGreaterThan:
		return fieldValue.Compare(expectedValue) > 0, nil
	case OpLessThan:
		return fieldValue.Compare(expectedValue) < 0, nil
	case OpGreaterOrEqual:
		return fieldValue.Compare(expectedValue) >= 0, nil
	case OpLessOrEqual:
		return fieldValue.Compare(expectedValue) <= 0, nil
	case OpContains:
		return strings.Contains(
			strings.ToLower(fieldValue.AsString()),
			strings.ToLower(expectedValue.AsString()),
		), nil
	case OpIn:
		return e.evaluateIn(fieldValue, expectedValue)
	case OpNotIn:
		matched, err := e.evaluateIn(fieldValue, expectedValue)
		if err != nil {
			return false, err
		}
		return !matched, nil
	case OpBetween:
		return e.evaluateBetween(fieldValue, expectedValue)
	default:
		return false, fmt.Errorf("unsupported operator: %s", operator)
	}
}

// evaluateIn 字段值是否在期望数组中
func (e *Evaluator) evaluateIn(fieldValue, expectedValue Value) (bool, error) {
	items, ok := expectedValue.AsList()
	if !ok {
		return false, fmt.Errorf("operator %s requires an array value", OpIn)
	}
	for _, item := range items {
		if fieldValue.EqualsFold(item) {
			return true, nil
		}
	}
	return false, nil
}

// evaluateBetween 闭区间比较，期望值必须是 [low, high] 两元素数组
func (e *Evaluator) evaluateBetween(fieldValue, expectedValue Value) (bool, error) {
	bounds, ok := expectedValue.AsList()
	if !ok || len(bounds) != 2 {
		return false, fmt.Errorf("operator %s requires a [low, high] array value", OpBetween)
	}
	return fieldValue.Compare(bounds[0]) >= 0 && fieldValue.Compare(bounds[1]) <= 0, nil
}

// getFieldValue 从数据包中获取字段值
// 支持嵌套字段访问，如 "request.amount"
func (e *Evaluator) getFieldValue(field string, data map[string]interface{}) (interface{}, bool) {
	parts := strings.Split(field, ".")
	current := data

	for i, part := range parts {
		if current == nil {
			return nil, false
		}

		value, exists := current[part]
		if !exists {
			return nil, false
		}

		if i == len(parts)-1 {
			return value, true
		}

		if nextMap, ok := value.(map[string]interface{}); ok {
			current = nextMap
		} else {
			return nil, false
		}
	}

	return nil, false
}

// ValidateRule 校验规则配置
func (e *Evaluator) ValidateRule(rule EvaluationRule) error {
	if rule.Field == "" {
		return fmt.Errorf("rule field cannot be empty")
	}
	if err := validateOperatorValue(rule.Operator, rule.Value); err != nil {
		return err
	}
	if rule.Action == "" {
		return fmt.Errorf("rule action cannot be empty")
	}
	return nil
}

// ValidateCondition 校验条件配置
func (e *Evaluator) ValidateCondition(condition Condition) error {
	if condition.Field == "" {
		return fmt.Errorf("condition field cannot be empty")
	}
	if condition.LogicalOperator != "" &&
		condition.LogicalOperator != LogicalAnd &&
		condition.LogicalOperator != LogicalOr {
		return fmt.Errorf("invalid logical operator: %s", condition.LogicalOperator)
	}
	return validateOperatorValue(condition.Operator, condition.Value)
}

// validateOperatorValue 校验操作符与期望值的组合
func validateOperatorValue(operator string, value interface{}) error {
	switch operator {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan,
		OpGreaterOrEqual, OpLessOrEqual, OpContains:
		if value == nil {
			return fmt.Errorf("operator %s requires a value", operator)
		}
		return nil
	case OpIn, OpNotIn:
		if _, ok := FromAny(value).AsList(); !ok {
			return fmt.Errorf("operator %s requires an array value", operator)
		}
		return nil
	case OpBetween:
		items, ok := FromAny(value).AsList()
		if !ok || len(items) != 2 {
			return fmt.Errorf("operator %s requires a [low, high] array value", operator)
		}
		return nil
	default:
		return fmt.Errorf("invalid operator: %s", operator)
	}
}
