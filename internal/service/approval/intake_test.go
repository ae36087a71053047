package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/model/system"
	workflowmodel "approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/rule_engine"
	"approvalmaster/internal/pkg/utils"
	approvalrepo "approvalmaster/internal/repo/mysql/approval"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"
	workflowsvc "approvalmaster/internal/service/workflow"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// captureNotifier 测试用通知捕获器，记录所有投递的通知
type captureNotifier struct {
	mu          sync.Mutex
	reminders   []uint64 // 收到提醒的审批ID
	overdue     []uint64 // 收到超期通知的请求ID
	escalations []uint64 // 收到升级通知的审批ID
	decisions   []string // 决策通知内容
}

func (n *captureNotifier) SendReminder(ctx context.Context, tenantID, recipientID, requestID, approvalID uint64, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, approvalID)
}

func (n *captureNotifier) SendOverdueNotice(ctx context.Context, tenantID, recipientID, requestID uint64, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.overdue = append(n.overdue, requestID)
}

func (n *captureNotifier) SendEscalationNotice(ctx context.Context, tenantID, recipientID, requestID, approvalID uint64, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.escalations = append(n.escalations, approvalID)
}

func (n *captureNotifier) SendDecisionNotice(ctx context.Context, tenantID, recipientID, requestID uint64, title, content string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.decisions = append(n.decisions, content)
}

// approvalTestEnv 审批服务测试环境
type approvalTestEnv struct {
	db           *gorm.DB
	clock        *utils.FixedClock
	notifier     *captureNotifier
	configSvc    *workflowsvc.ConfigurationService
	instanceSvc  *workflowsvc.InstanceService
	intake       *IntakeService
	engine       *EngineService
	query        *QueryService
	requestRepo  *approvalrepo.RequestRepository
	approvalRepo *approvalrepo.ApprovalRepository
}

// setupApprovalTestEnv 初始化审批测试环境 (SQLite 内存数据库 + 固定时钟 + 捕获通知器)
func setupApprovalTestEnv(t *testing.T) *approvalTestEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&workflowmodel.WorkflowConfiguration{},
		&workflowmodel.WorkflowInstance{},
		&workflowmodel.WorkflowInstanceTransition{},
		&approval.Request{},
		&approval.Approval{},
		&approval.ApprovalEscalation{},
		&approval.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	clock := utils.NewFixedClock(time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC))
	notifier := &captureNotifier{}
	evaluator := rule_engine.NewEvaluator(nil, false)

	configRepo := workflowrepo.NewConfigurationRepository(db)
	instanceRepo := workflowrepo.NewInstanceRepository(db)
	requestRepo := approvalrepo.NewRequestRepository(db)
	approvalRepo := approvalrepo.NewApprovalRepository(db)
	escalationRepo := approvalrepo.NewEscalationRepository(db)

	configSvc := workflowsvc.NewConfigurationService(configRepo, evaluator)
	selector := workflowsvc.NewSelectorService(configRepo, evaluator)
	instanceSvc := workflowsvc.NewInstanceService(instanceRepo, clock)

	return &approvalTestEnv{
		db:           db,
		clock:        clock,
		notifier:     notifier,
		configSvc:    configSvc,
		instanceSvc:  instanceSvc,
		intake:       NewIntakeService(requestRepo, approvalRepo, selector, instanceSvc, nil, evaluator, notifier, clock, ""),
		engine:       NewEngineService(requestRepo, approvalRepo, escalationRepo, configRepo, instanceSvc, notifier, clock),
		query:        NewQueryService(requestRepo, approvalRepo, escalationRepo),
		requestRepo:  requestRepo,
		approvalRepo: approvalRepo,
	}
}

// mustActiveConfig 创建并激活工作流配置
func (env *approvalTestEnv) mustActiveConfig(t *testing.T, tenantID uint64, req *workflowmodel.CreateConfigurationRequest) *workflowmodel.WorkflowConfiguration {
	ctx := context.Background()
	config, err := env.configSvc.CreateConfiguration(ctx, tenantID, 1, req)
	if err != nil {
		t.Fatalf("failed to create configuration: %v", err)
	}
	if err := env.configSvc.ActivateConfiguration(ctx, tenantID, config.ID, 1); err != nil {
		t.Fatalf("failed to activate configuration: %v", err)
	}
	return config
}

// pendingApproval 查询指定审批人的待处理审批记录
func (env *approvalTestEnv) pendingApproval(t *testing.T, requestID, approverID uint64) *approval.Approval {
	var record approval.Approval
	err := env.db.Where("request_id = ? AND approver_id = ? AND status = ?",
		requestID, approverID, approval.ApprovalStatusPending).First(&record).Error
	if err != nil {
		t.Fatalf("failed to find pending approval: %v", err)
	}
	return &record
}

// twoStageConfigRequest 两阶段人工审批配置样例
func twoStageConfigRequest(name string) *workflowmodel.CreateConfigurationRequest {
	return &workflowmodel.CreateConfigurationRequest{
		Name:          name,
		RequestTypeID: 1,
		StageDefinitions: []workflowmodel.StageDefinition{
			{Stage: 1, Name: "主管审批", ApproverIDs: []uint64{20, 21}},
			{Stage: 2, Name: "财务审批", ApproverIDs: []uint64{30}},
		},
		MaxExecutionTimeHours: 48,
	}
}

// TestIntakeService_AutoApprove 测试低金额请求自动通过
func TestIntakeService_AutoApprove(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	env.mustActiveConfig(t, 1, &workflowmodel.CreateConfigurationRequest{
		Name:          "expense_auto",
		RequestTypeID: 1,
		EvaluationRules: []rule_engine.EvaluationRule{
			{Field: "amount", Operator: rule_engine.OpLessOrEqual, Value: 500, Action: ActionAutoApprove, Priority: 1, IsActive: true},
		},
	})

	request, err := env.intake.SubmitRequest(ctx, 1, 10, &approval.SubmitRequest{
		RequestTypeID: 1,
		Title:         "打车报销",
		Data:          map[string]interface{}{"amount": 120},
	})
	assert.NoError(t, err)

	got, err := env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.RequestStatusApproved, got.Status)
	assert.NotNil(t, got.CompletedAt)

	// 实例同步结束并通知请求人
	instances, _, err := env.instanceSvc.ListInstances(ctx, 1, &workflowmodel.ListInstancesRequest{Page: 1, PageSize: 10})
	assert.NoError(t, err)
	assert.Len(t, instances, 1)
	assert.Equal(t, workflowmodel.InstanceStatusCompleted, instances[0].Status)
	assert.Len(t, env.notifier.decisions, 1)
}

// TestIntakeService_AutoReject 测试命中拒绝规则时自动拒绝
func TestIntakeService_AutoReject(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	env.mustActiveConfig(t, 1, &workflowmodel.CreateConfigurationRequest{
		Name:          "expense_reject",
		RequestTypeID: 1,
		EvaluationRules: []rule_engine.EvaluationRule{
			{Field: "amount", Operator: rule_engine.OpGreaterThan, Value: 100000, Action: ActionAutoReject, Priority: 1, IsActive: true},
		},
	})

	request, err := env.intake.SubmitRequest(ctx, 1, 10, &approval.SubmitRequest{
		RequestTypeID: 1,
		Title:         "巨额报销",
		Data:          map[string]interface{}{"amount": 200000},
	})
	assert.NoError(t, err)

	got, err := env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.RequestStatusRejected, got.Status)
	assert.NotEmpty(t, got.RejectionReason)

	instances, _, err := env.instanceSvc.ListInstances(ctx, 1, &workflowmodel.ListInstancesRequest{Page: 1, PageSize: 10})
	assert.NoError(t, err)
	assert.Equal(t, workflowmodel.InstanceStatusFailed, instances[0].Status)
}

// TestIntakeService_RequireApproval 测试进入人工审批的完整入口流程
func TestIntakeService_RequireApproval(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	env.mustActiveConfig(t, 1, twoStageConfigRequest("expense_manual"))

	request, err := env.intake.SubmitRequest(ctx, 1, 10, &approval.SubmitRequest{
		RequestTypeID: 1,
		Title:         "差旅报销",
		Data:          map[string]interface{}{"amount": 8000},
	})
	assert.NoError(t, err)

	got, err := env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.RequestStatusInProgress, got.Status)
	assert.Equal(t, 1, got.CurrentStage)

	// 截止时间按配置最大执行时长推导
	assert.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(env.clock.Now().Add(48*time.Hour)))

	// 第一阶段两位审批人各有一条待处理记录
	pending, total, err := env.query.GetPendingApprovals(ctx, 1, 20, 1, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, request.ID, pending[0].RequestID)
	_, total, err = env.query.GetPendingApprovals(ctx, 1, 21, 1, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

// TestIntakeService_ManualOverride 测试强制人工审批配置覆盖自动通过
func TestIntakeService_ManualOverride(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	env.mustActiveConfig(t, 1, &workflowmodel.CreateConfigurationRequest{
		Name:          "expense_forced_manual",
		RequestTypeID: 1,
		EvaluationRules: []rule_engine.EvaluationRule{
			{Field: "amount", Operator: rule_engine.OpLessOrEqual, Value: 500, Action: ActionAutoApprove, Priority: 1, IsActive: true},
		},
		StageDefinitions: []workflowmodel.StageDefinition{
			{Stage: 1, Name: "主管审批", ApproverIDs: []uint64{20}},
		},
		RequiresManualApproval: true,
	})

	request, err := env.intake.SubmitRequest(ctx, 1, 10, &approval.SubmitRequest{
		RequestTypeID: 1,
		Title:         "小额报销",
		Data:          map[string]interface{}{"amount": 100},
	})
	assert.NoError(t, err)

	got, err := env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.RequestStatusInProgress, got.Status)
}

// TestIntakeService_NoConfigMatched 测试无配置命中时请求保持待处理
func TestIntakeService_NoConfigMatched(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	request, err := env.intake.SubmitRequest(ctx, 1, 10, &approval.SubmitRequest{
		RequestTypeID: 99,
		Title:         "未知类型请求",
		Data:          map[string]interface{}{"amount": 100},
	})
	assert.NoError(t, err)

	got, err := env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.RequestStatusPending, got.Status)

	// 不创建工作流实例
	instances, _, err := env.instanceSvc.ListInstances(ctx, 1, &workflowmodel.ListInstancesRequest{Page: 1, PageSize: 10})
	assert.NoError(t, err)
	assert.Len(t, instances, 0)
}

// TestIntakeService_CancelRequest 测试取消请求与终态保护
func TestIntakeService_CancelRequest(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	env.mustActiveConfig(t, 1, twoStageConfigRequest("expense_cancel"))

	request, err := env.intake.SubmitRequest(ctx, 1, 10, &approval.SubmitRequest{
		RequestTypeID: 1,
		Title:         "待取消请求",
		Data:          map[string]interface{}{"amount": 8000},
	})
	assert.NoError(t, err)

	err = env.intake.CancelRequest(ctx, 1, request.ID, 10, "不再需要")
	assert.NoError(t, err)

	got, err := env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.RequestStatusCancelled, got.Status)

	instances, _, err := env.instanceSvc.ListInstances(ctx, 1, &workflowmodel.ListInstancesRequest{Page: 1, PageSize: 10})
	assert.NoError(t, err)
	assert.Equal(t, workflowmodel.InstanceStatusCancelled, instances[0].Status)

	// 终态请求不可再取消
	err = env.intake.CancelRequest(ctx, 1, request.ID, 10, "重复取消")
	assert.ErrorIs(t, err, system.ErrRequestTerminal)
}

// TestIntakeService_InvalidSubmit 测试非法提交参数
func TestIntakeService_InvalidSubmit(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	_, err := env.intake.SubmitRequest(ctx, 0, 10, &approval.SubmitRequest{RequestTypeID: 1, Title: "t"})
	assert.ErrorIs(t, err, system.ErrInvalidTenantID)

	_, err = env.intake.SubmitRequest(ctx, 1, 10, nil)
	assert.Error(t, err)
}
