package rule_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestEvaluator_Operators 测试操作符的匹配语义
// 重点验证：
// 1. 数值操作符在两侧可解析时按数值比较，否则退化为字符串比较
// 2. 字符串比较忽略大小写
// 3. 字段缺失视为不匹配而非错误
func TestEvaluator_Operators(t *testing.T) {
	e := NewEvaluator(nil, false)

	data := map[string]interface{}{
		"amount":   float64(15000),
		"currency": "USD",
		"dept":     "Finance",
		"level":    "3",
		"nested": map[string]interface{}{
			"owner": "alice",
		},
	}

	tests := []struct {
		name     string
		field    string
		operator string
		value    interface{}
		want     bool
	}{
		{"equals 数值", "amount", OpEquals, 15000, true},
		{"equals 字符串忽略大小写", "currency", OpEquals, "usd", true},
		{"equals 不相等", "currency", OpEquals, "EUR", false},
		{"notEquals", "currency", OpNotEquals, "EUR", true},
		{"greaterThan 命中", "amount", OpGreaterThan, 10000, true},
		{"greaterThan 未命中", "amount", OpGreaterThan, 20000, false},
		{"greaterThan 字符串数值", "level", OpGreaterThan, "2", true},
		{"lessThan", "amount", OpLessThan, 20000, true},
		{"greaterOrEqual 边界", "amount", OpGreaterOrEqual, 15000, true},
		{"lessOrEqual 边界", "amount", OpLessOrEqual, 15000, true},
		{"contains 忽略大小写", "dept", OpContains, "fin", true},
		{"contains 未命中", "dept", OpContains, "hr", false},
		{"in 命中", "currency", OpIn, []interface{}{"EUR", "USD"}, true},
		{"in 未命中", "currency", OpIn, []interface{}{"EUR", "GBP"}, false},
		{"notIn", "currency", OpNotIn, []interface{}{"EUR", "GBP"}, true},
		{"between 区间内", "amount", OpBetween, []interface{}{10000, 20000}, true},
		{"between 下边界", "amount", OpBetween, []interface{}{15000, 20000}, true},
		{"between 区间外", "amount", OpBetween, []interface{}{1, 100}, false},
		{"嵌套字段访问", "nested.owner", OpEquals, "Alice", true},
		{"字段缺失视为不匹配", "missing", OpEquals, "x", false},
		{"嵌套字段缺失", "nested.missing", OpEquals, "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.evaluateOperator(tt.field, tt.operator, tt.value, data)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestEvaluator_Evaluate_RoutingScenario 测试典型路由场景
// 金额超过阈值的请求进入人工审批，否则走默认动作自动通过
func TestEvaluator_Evaluate_RoutingScenario(t *testing.T) {
	e := NewEvaluator(nil, false)

	rules := []EvaluationRule{
		{Field: "amount", Operator: OpGreaterThan, Value: 10000, Action: "RequireApproval", Priority: 1, IsActive: true},
	}

	// 大额请求命中规则
	result := e.Evaluate(rules, map[string]interface{}{"amount": 15000}, "AutoApprove")
	assert.True(t, result.IsValid)
	assert.Len(t, result.MatchedRules, 1)
	assert.Equal(t, "RequireApproval", result.ResultAction)

	// 小额请求走默认动作
	result = e.Evaluate(rules, map[string]interface{}{"amount": 500}, "AutoApprove")
	assert.True(t, result.IsValid)
	assert.Empty(t, result.MatchedRules)
	assert.Equal(t, "AutoApprove", result.ResultAction)
}

// TestEvaluator_Evaluate_PriorityAndStopOnFirstMatch 测试优先级顺序与首中即停
func TestEvaluator_Evaluate_PriorityAndStopOnFirstMatch(t *testing.T) {
	rules := []EvaluationRule{
		{Field: "amount", Operator: OpGreaterThan, Value: 1, Action: "ActionLow", Priority: 5, IsActive: true},
		{Field: "amount", Operator: OpGreaterThan, Value: 2, Action: "ActionHigh", Priority: 1, IsActive: true},
		{Field: "amount", Operator: OpGreaterThan, Value: 3, Action: "ActionMid", Priority: 3, IsActive: true},
	}
	data := map[string]interface{}{"amount": 100}

	// 首中即停：只返回优先级最小的那条命中规则
	stopper := NewEvaluator(nil, true)
	result := stopper.Evaluate(rules, data, "Default")
	assert.Len(t, result.MatchedRules, 1)
	assert.Equal(t, 1, result.MatchedRules[0].Priority)
	assert.Equal(t, "ActionHigh", result.ResultAction)

	// 全量评估：收集全部命中，动作仍取最先命中者
	collector := NewEvaluator(nil, false)
	result = collector.Evaluate(rules, data, "Default")
	assert.Len(t, result.MatchedRules, 3)
	assert.Equal(t, "ActionHigh", result.ResultAction)

	// 禁用规则不参与评估
	rules[1].IsActive = false
	result = collector.Evaluate(rules, data, "Default")
	assert.Len(t, result.MatchedRules, 2)
	assert.Equal(t, "ActionMid", result.ResultAction)
}

// TestEvaluator_Evaluate_MalformedRules 测试畸形规则不中断评估
func TestEvaluator_Evaluate_MalformedRules(t *testing.T) {
	e := NewEvaluator(nil, false)

	rules := []EvaluationRule{
		{Field: "amount", Operator: OpBetween, Value: "not-an-array", Action: "X", Priority: 1, IsActive: true},
		{Field: "amount", Operator: OpIn, Value: 42, Action: "Y", Priority: 2, IsActive: true},
		{Field: "amount", Operator: "like", Value: "a", Action: "Z", Priority: 3, IsActive: true},
		{Field: "amount", Operator: OpGreaterThan, Value: 10, Action: "Matched", Priority: 4, IsActive: true},
	}

	result := e.Evaluate(rules, map[string]interface{}{"amount": 100}, "Default")
	assert.False(t, result.IsValid)
	assert.Len(t, result.Errors, 3)
	// 合法规则仍然正常评估
	assert.Len(t, result.MatchedRules, 1)
	assert.Equal(t, "Matched", result.ResultAction)
}

// TestEvaluator_EvaluateConditions 测试条件分组语义
// 组内AND，组间OR，空列表恒真
func TestEvaluator_EvaluateConditions(t *testing.T) {
	e := NewEvaluator(nil, false)

	data := map[string]interface{}{
		"amount": float64(5000),
		"dept":   "Finance",
		"vip":    true,
	}

	tests := []struct {
		name       string
		conditions []Condition
		want       bool
	}{
		{
			name:       "空条件列表恒真",
			conditions: []Condition{},
			want:       true,
		},
		{
			name: "单组全部满足",
			conditions: []Condition{
				{Field: "amount", Operator: OpGreaterThan, Value: 1000, GroupID: 1},
				{Field: "dept", Operator: OpEquals, Value: "finance", GroupID: 1},
			},
			want: true,
		},
		{
			name: "单组部分满足则组不满足",
			conditions: []Condition{
				{Field: "amount", Operator: OpGreaterThan, Value: 1000, GroupID: 1},
				{Field: "dept", Operator: OpEquals, Value: "HR", GroupID: 1},
			},
			want: false,
		},
		{
			name: "任一组满足即整体满足",
			conditions: []Condition{
				{Field: "amount", Operator: OpGreaterThan, Value: 99999, GroupID: 1},
				{Field: "vip", Operator: OpEquals, Value: true, GroupID: 2},
			},
			want: true,
		},
		{
			name: "所有组都不满足",
			conditions: []Condition{
				{Field: "amount", Operator: OpGreaterThan, Value: 99999, GroupID: 1},
				{Field: "dept", Operator: OpEquals, Value: "HR", GroupID: 2},
			},
			want: false,
		},
		{
			name: "畸形条件视为组不满足",
			conditions: []Condition{
				{Field: "amount", Operator: OpBetween, Value: "bad", GroupID: 1},
				{Field: "vip", Operator: OpEquals, Value: true, GroupID: 2},
			},
			want: true, // 组1失败但组2满足
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.EvaluateConditions(tt.conditions, data))
		})
	}
}

// TestEvaluator_Validate 测试配置校验
func TestEvaluator_Validate(t *testing.T) {
	e := NewEvaluator(nil, false)

	assert.NoError(t, e.ValidateRule(EvaluationRule{
		Field: "amount", Operator: OpGreaterThan, Value: 100, Action: "RequireApproval",
	}))
	assert.Error(t, e.ValidateRule(EvaluationRule{
		Field: "", Operator: OpEquals, Value: 1, Action: "A",
	}))
	assert.Error(t, e.ValidateRule(EvaluationRule{
		Field: "amount", Operator: "matches", Value: 1, Action: "A",
	}))
	assert.Error(t, e.ValidateRule(EvaluationRule{
		Field: "amount", Operator: OpBetween, Value: []interface{}{1}, Action: "A",
	}))
	assert.Error(t, e.ValidateRule(EvaluationRule{
		Field: "amount", Operator: OpGreaterThan, Value: 100, Action: "",
	}))

	assert.NoError(t, e.ValidateCondition(Condition{
		Field: "dept", Operator: OpIn, Value: []interface{}{"a", "b"}, LogicalOperator: LogicalAnd,
	}))
	assert.Error(t, e.ValidateCondition(Condition{
		Field: "dept", Operator: OpEquals, Value: "a", LogicalOperator: "XOR",
	}))
}
