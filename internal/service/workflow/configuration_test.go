package workflow

import (
	"context"
	"errors"
	"testing"

	"approvalmaster/internal/model/system"
	"approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/rule_engine"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// setupWorkflowTestDB 初始化工作流测试环境 (使用 SQLite 内存数据库)
func setupWorkflowTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&workflow.WorkflowConfiguration{},
		&workflow.WorkflowInstance{},
		&workflow.WorkflowInstanceTransition{},
	)
	if err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newConfigurationService(t *testing.T) (*ConfigurationService, *gorm.DB) {
	db := setupWorkflowTestDB(t)
	repo := workflowrepo.NewConfigurationRepository(db)
	evaluator := rule_engine.NewEvaluator(nil, false)
	return NewConfigurationService(repo, evaluator), db
}

// approvalStages 单阶段示例定义
func approvalStages() []workflow.StageDefinition {
	return []workflow.StageDefinition{
		{Stage: 1, Name: "主管审批", ApproverIDs: []uint64{10}},
	}
}

// TestConfigurationService_Lifecycle 测试配置生命周期 draft -> active -> archived
func TestConfigurationService_Lifecycle(t *testing.T) {
	svc, _ := newConfigurationService(t)
	ctx := context.Background()

	config, err := svc.CreateConfiguration(ctx, 1, 100, &workflow.CreateConfigurationRequest{
		Name:             "expense_default",
		RequestTypeID:    1,
		StageDefinitions: approvalStages(),
	})
	assert.NoError(t, err)
	assert.Equal(t, workflow.ConfigStatusDraft, config.Status)
	assert.Equal(t, 1, config.Version)
	assert.Equal(t, 72, config.MaxExecutionTimeHours) // 未指定时取默认值

	// draft 可激活
	err = svc.ActivateConfiguration(ctx, 1, config.ID, 100)
	assert.NoError(t, err)

	got, err := svc.GetConfiguration(ctx, 1, config.ID)
	assert.NoError(t, err)
	assert.Equal(t, workflow.ConfigStatusActive, got.Status)

	// active 不可再次激活
	err = svc.ActivateConfiguration(ctx, 1, config.ID, 100)
	assert.ErrorIs(t, err, system.ErrConfigNotDraft)

	// active 可归档
	err = svc.ArchiveConfiguration(ctx, 1, config.ID, 100)
	assert.NoError(t, err)

	// 归档后不可修改
	name := "renamed"
	_, err = svc.UpdateConfiguration(ctx, 1, config.ID, 100, &workflow.UpdateConfigurationRequest{Name: &name})
	assert.ErrorIs(t, err, system.ErrConfigArchived)

	// 归档后不可再次归档
	err = svc.ArchiveConfiguration(ctx, 1, config.ID, 100)
	assert.ErrorIs(t, err, system.ErrConfigArchived)
}

// TestConfigurationService_CreateValidation 测试创建时的结构校验
func TestConfigurationService_CreateValidation(t *testing.T) {
	svc, _ := newConfigurationService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		tenant  uint64
		req     *workflow.CreateConfigurationRequest
		wantErr error
	}{
		{
			name:    "租户ID缺失",
			tenant:  0,
			req:     &workflow.CreateConfigurationRequest{Name: "c", RequestTypeID: 1},
			wantErr: system.ErrInvalidTenantID,
		},
		{
			name:   "非法操作符",
			tenant: 1,
			req: &workflow.CreateConfigurationRequest{
				Name:          "c",
				RequestTypeID: 1,
				EvaluationRules: []rule_engine.EvaluationRule{
					{Field: "amount", Operator: "matches", Value: 1, Action: "RequireApproval"},
				},
			},
			wantErr: system.ErrConfigRulesMalformed,
		},
		{
			name:   "阶段编号不连续",
			tenant: 1,
			req: &workflow.CreateConfigurationRequest{
				Name:          "c",
				RequestTypeID: 1,
				StageDefinitions: []workflow.StageDefinition{
					{Stage: 1, ApproverIDs: []uint64{10}},
					{Stage: 3, ApproverIDs: []uint64{11}},
				},
			},
			wantErr: system.ErrInvalidStage,
		},
		{
			name:   "阶段缺少审批人",
			tenant: 1,
			req: &workflow.CreateConfigurationRequest{
				Name:          "c",
				RequestTypeID: 1,
				StageDefinitions: []workflow.StageDefinition{
					{Stage: 1, ApproverIDs: nil},
				},
			},
			wantErr: system.ErrInvalidStage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateConfiguration(ctx, tt.tenant, 100, tt.req)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

// TestConfigurationService_UpdateBumpsVersion 测试更新成功后版本号递增
func TestConfigurationService_UpdateBumpsVersion(t *testing.T) {
	svc, _ := newConfigurationService(t)
	ctx := context.Background()

	config, err := svc.CreateConfiguration(ctx, 1, 100, &workflow.CreateConfigurationRequest{
		Name:          "leave_default",
		RequestTypeID: 2,
	})
	assert.NoError(t, err)

	name := "leave_v2"
	priority := 20
	updated, err := svc.UpdateConfiguration(ctx, 1, config.ID, 101, &workflow.UpdateConfigurationRequest{
		Name:     &name,
		Priority: &priority,
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "leave_v2", updated.Name)
	assert.Equal(t, 20, updated.Priority)
	assert.Equal(t, uint64(101), updated.UpdatedBy)
}

// TestConfigurationService_TenantIsolation 测试跨租户不可见
func TestConfigurationService_TenantIsolation(t *testing.T) {
	svc, _ := newConfigurationService(t)
	ctx := context.Background()

	config, err := svc.CreateConfiguration(ctx, 1, 100, &workflow.CreateConfigurationRequest{
		Name:          "tenant1_only",
		RequestTypeID: 1,
	})
	assert.NoError(t, err)

	_, err = svc.GetConfiguration(ctx, 2, config.ID)
	assert.ErrorIs(t, err, system.ErrConfigNotFound)

	err = svc.DeleteConfiguration(ctx, 2, config.ID)
	assert.ErrorIs(t, err, system.ErrConfigNotFound)
}

// TestConfigurationService_Evaluate 测试规则试算
func TestConfigurationService_Evaluate(t *testing.T) {
	svc, _ := newConfigurationService(t)
	ctx := context.Background()

	config, err := svc.CreateConfiguration(ctx, 1, 100, &workflow.CreateConfigurationRequest{
		Name:          "expense_probe",
		RequestTypeID: 1,
		EvaluationRules: []rule_engine.EvaluationRule{
			{Field: "amount", Operator: rule_engine.OpGreaterThan, Value: 5000, Action: "RequireApproval", Priority: 1, IsActive: true},
		},
	})
	assert.NoError(t, err)

	// 命中规则
	result, err := svc.EvaluateConfiguration(ctx, 1, config.ID, map[string]interface{}{"amount": 9000}, "AutoApprove")
	assert.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, "RequireApproval", result.ResultAction)
	assert.Equal(t, 1, result.MatchedCount)

	// 未命中走默认动作
	result, err = svc.EvaluateConfiguration(ctx, 1, config.ID, map[string]interface{}{"amount": 100}, "AutoApprove")
	assert.NoError(t, err)
	assert.Equal(t, "AutoApprove", result.ResultAction)
	assert.Equal(t, 0, result.MatchedCount)
}

// TestConfigurationService_ListFilters 测试列表过滤与分页
func TestConfigurationService_ListFilters(t *testing.T) {
	svc, _ := newConfigurationService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateConfiguration(ctx, 1, 100, &workflow.CreateConfigurationRequest{
			Name:          "expense_rule",
			RequestTypeID: 1,
		})
		assert.NoError(t, err)
	}
	_, err := svc.CreateConfiguration(ctx, 1, 100, &workflow.CreateConfigurationRequest{
		Name:          "leave_rule",
		RequestTypeID: 2,
	})
	assert.NoError(t, err)

	typeID := uint64(1)
	configs, total, err := svc.ListConfigurations(ctx, 1, &workflow.ListConfigurationsRequest{
		Page: 1, PageSize: 2, RequestTypeID: &typeID,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, configs, 2)

	keyword := "leave"
	configs, total, err = svc.ListConfigurations(ctx, 1, &workflow.ListConfigurationsRequest{
		Page: 1, PageSize: 10, Keyword: &keyword,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "leave_rule", configs[0].Name)
}
