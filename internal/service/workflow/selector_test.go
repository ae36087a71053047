package workflow

import (
	"context"
	"testing"

	"approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/rule_engine"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newSelectorService(t *testing.T) (*SelectorService, *ConfigurationService, *gorm.DB) {
	db := setupWorkflowTestDB(t)
	repo := workflowrepo.NewConfigurationRepository(db)
	evaluator := rule_engine.NewEvaluator(nil, false)
	return NewSelectorService(repo, evaluator), NewConfigurationService(repo, evaluator), db
}

// createActiveConfig 创建并激活一个配置
func createActiveConfig(t *testing.T, svc *ConfigurationService, tenantID uint64, req *workflow.CreateConfigurationRequest) *workflow.WorkflowConfiguration {
	ctx := context.Background()
	config, err := svc.CreateConfiguration(ctx, tenantID, 100, req)
	if err != nil {
		t.Fatalf("failed to create configuration: %v", err)
	}
	if err := svc.ActivateConfiguration(ctx, tenantID, config.ID, 100); err != nil {
		t.Fatalf("failed to activate configuration: %v", err)
	}
	return config
}

// TestSelectorService_PriorityWins 测试高优先级配置优先被选中
func TestSelectorService_PriorityWins(t *testing.T) {
	selector, configSvc, _ := newSelectorService(t)
	ctx := context.Background()

	createActiveConfig(t, configSvc, 1, &workflow.CreateConfigurationRequest{
		Name: "low_priority", RequestTypeID: 1, Priority: 1,
	})
	high := createActiveConfig(t, configSvc, 1, &workflow.CreateConfigurationRequest{
		Name: "high_priority", RequestTypeID: 1, Priority: 10,
	})

	config, err := selector.SelectConfiguration(ctx, 1, &workflow.SelectConfigurationRequest{
		RequestTypeID: 1,
		Data:          map[string]interface{}{"amount": 100},
	})
	assert.NoError(t, err)
	assert.NotNil(t, config)
	assert.Equal(t, high.ID, config.ID)
}

// TestSelectorService_StartConditions 测试启动条件匹配与不匹配
func TestSelectorService_StartConditions(t *testing.T) {
	selector, configSvc, _ := newSelectorService(t)
	ctx := context.Background()

	conditional := createActiveConfig(t, configSvc, 1, &workflow.CreateConfigurationRequest{
		Name: "large_expense", RequestTypeID: 1, Priority: 10,
		StartConditions: []rule_engine.Condition{
			{Field: "amount", Operator: rule_engine.OpGreaterThan, Value: 5000, GroupID: 1},
		},
	})
	fallback := createActiveConfig(t, configSvc, 1, &workflow.CreateConfigurationRequest{
		Name: "any_expense", RequestTypeID: 1, Priority: 1,
	})

	// 满足条件时命中高优先级配置
	config, err := selector.SelectConfiguration(ctx, 1, &workflow.SelectConfigurationRequest{
		RequestTypeID: 1,
		Data:          map[string]interface{}{"amount": 9000},
	})
	assert.NoError(t, err)
	assert.Equal(t, conditional.ID, config.ID)

	// 不满足条件时回落到无条件配置
	config, err = selector.SelectConfiguration(ctx, 1, &workflow.SelectConfigurationRequest{
		RequestTypeID: 1,
		Data:          map[string]interface{}{"amount": 100},
	})
	assert.NoError(t, err)
	assert.Equal(t, fallback.ID, config.ID)
}

// TestSelectorService_NoCandidate 测试无可用配置时返回空
func TestSelectorService_NoCandidate(t *testing.T) {
	selector, configSvc, _ := newSelectorService(t)
	ctx := context.Background()

	// 草稿配置不参与选择
	_, err := configSvc.CreateConfiguration(ctx, 1, 100, &workflow.CreateConfigurationRequest{
		Name: "draft_only", RequestTypeID: 1,
	})
	assert.NoError(t, err)

	config, err := selector.SelectConfiguration(ctx, 1, &workflow.SelectConfigurationRequest{
		RequestTypeID: 1,
		Data:          map[string]interface{}{"amount": 100},
	})
	assert.NoError(t, err)
	assert.Nil(t, config)

	// 请求为空同样返回空
	config, err = selector.SelectConfiguration(ctx, 1, nil)
	assert.NoError(t, err)
	assert.Nil(t, config)
}

// TestSelectorService_MalformedConditionsSkipped 测试启动条件损坏的配置被跳过
func TestSelectorService_MalformedConditionsSkipped(t *testing.T) {
	selector, configSvc, db := newSelectorService(t)
	ctx := context.Background()

	broken := createActiveConfig(t, configSvc, 1, &workflow.CreateConfigurationRequest{
		Name: "broken", RequestTypeID: 1, Priority: 10,
	})
	// 绕过服务层校验直接写入损坏的条件JSON
	err := db.Model(&workflow.WorkflowConfiguration{}).
		Where("id = ?", broken.ID).
		Update("start_conditions", "{not json").Error
	assert.NoError(t, err)

	healthy := createActiveConfig(t, configSvc, 1, &workflow.CreateConfigurationRequest{
		Name: "healthy", RequestTypeID: 1, Priority: 1,
	})

	config, err := selector.SelectConfiguration(ctx, 1, &workflow.SelectConfigurationRequest{
		RequestTypeID: 1,
		Data:          map[string]interface{}{"amount": 100},
	})
	assert.NoError(t, err)
	assert.NotNil(t, config)
	assert.Equal(t, healthy.ID, config.ID)
}

// TestSelectorService_EvaluateConditions 测试单配置的启动/完成条件评估
func TestSelectorService_EvaluateConditions(t *testing.T) {
	selector, configSvc, _ := newSelectorService(t)
	ctx := context.Background()

	config, err := configSvc.CreateConfiguration(ctx, 1, 100, &workflow.CreateConfigurationRequest{
		Name: "conditional", RequestTypeID: 1,
		StartConditions: []rule_engine.Condition{
			{Field: "amount", Operator: rule_engine.OpGreaterThan, Value: 1000, GroupID: 1},
		},
		CompletionConditions: []rule_engine.Condition{
			{Field: "receipt_attached", Operator: rule_engine.OpEquals, Value: true, GroupID: 1},
		},
	})
	assert.NoError(t, err)

	ok, err := selector.EvaluateStartConditions(config, map[string]interface{}{"amount": 2000})
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = selector.EvaluateStartConditions(config, map[string]interface{}{"amount": 500})
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = selector.EvaluateCompletionConditions(config, map[string]interface{}{"receipt_attached": true})
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = selector.EvaluateCompletionConditions(config, map[string]interface{}{"receipt_attached": false})
	assert.NoError(t, err)
	assert.False(t, ok)
}

// TestSelectorService_TenantIsolation 测试跨租户配置不参与选择
func TestSelectorService_TenantIsolation(t *testing.T) {
	selector, configSvc, _ := newSelectorService(t)
	ctx := context.Background()

	createActiveConfig(t, configSvc, 1, &workflow.CreateConfigurationRequest{
		Name: "tenant1_config", RequestTypeID: 1,
	})

	config, err := selector.SelectConfiguration(ctx, 2, &workflow.SelectConfigurationRequest{
		RequestTypeID: 1,
		Data:          map[string]interface{}{"amount": 100},
	})
	assert.NoError(t, err)
	assert.Nil(t, config)
}
