package approval

import (
	"context"
	"testing"

	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/model/system"
	workflowmodel "approvalmaster/internal/model/workflow"

	"github.com/stretchr/testify/assert"
)

// submitManualRequest 提交一个进入人工审批的请求
func submitManualRequest(t *testing.T, env *approvalTestEnv, title string) *approval.Request {
	ctx := context.Background()
	request, err := env.intake.SubmitRequest(ctx, 1, 10, &approval.SubmitRequest{
		RequestTypeID: 1,
		Title:         title,
		Data:          map[string]interface{}{"amount": 8000},
	})
	if err != nil {
		t.Fatalf("failed to submit request: %v", err)
	}
	return request
}

// TestEngineService_CreateApproval 测试审批记录创建约束
func TestEngineService_CreateApproval(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	env.mustActiveConfig(t, 1, twoStageConfigRequest("engine_create"))
	request := submitManualRequest(t, env, "测试请求")

	// 阶段编号非法
	_, err := env.engine.CreateApproval(ctx, 1, &approval.CreateApprovalRequest{
		RequestID: request.ID, ApproverID: 40, Stage: 0,
	})
	assert.ErrorIs(t, err, system.ErrInvalidStage)

	// 请求不存在
	_, err = env.engine.CreateApproval(ctx, 1, &approval.CreateApprovalRequest{
		RequestID: 9999, ApproverID: 40, Stage: 1,
	})
	assert.ErrorIs(t, err, system.ErrRequestNotFound)

	// 同一审批人重复 pending
	_, err = env.engine.CreateApproval(ctx, 1, &approval.CreateApprovalRequest{
		RequestID: request.ID, ApproverID: 20, Stage: 1,
	})
	assert.ErrorIs(t, err, system.ErrApprovalAlreadyPending)

	// 新审批人可以追加
	record, err := env.engine.CreateApproval(ctx, 1, &approval.CreateApprovalRequest{
		RequestID: request.ID, ApproverID: 40, Stage: 1,
	})
	assert.NoError(t, err)
	assert.Equal(t, approval.ApprovalStatusPending, record.Status)
}

// TestEngineService_MultiStageApprove 测试多阶段逐级通过直至完成
func TestEngineService_MultiStageApprove(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	env.mustActiveConfig(t, 1, twoStageConfigRequest("engine_advance"))
	request := submitManualRequest(t, env, "两阶段报销")

	// 阶段1: 第一位审批人通过后阶段尚未排空
	first := env.pendingApproval(t, request.ID, 20)
	resp, err := env.engine.Approve(ctx, 1, first.ID, 20, &approval.DecisionRequest{Comments: "同意"})
	assert.NoError(t, err)
	assert.True(t, resp.OK)

	got, err := env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.RequestStatusInProgress, got.Status)
	assert.Equal(t, 1, got.CurrentStage)

	// 阶段1排空后推进到阶段2
	second := env.pendingApproval(t, request.ID, 21)
	resp, err = env.engine.Approve(ctx, 1, second.ID, 21, nil)
	assert.NoError(t, err)
	assert.True(t, resp.OK)

	got, err = env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStage)
	_, total, err := env.query.GetPendingApprovals(ctx, 1, 30, 1, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// 阶段2通过后请求完成
	final := env.pendingApproval(t, request.ID, 30)
	resp, err = env.engine.Approve(ctx, 1, final.ID, 30, nil)
	assert.NoError(t, err)
	assert.True(t, resp.OK)

	got, err = env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.RequestStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	instances, _, err := env.instanceSvc.ListInstances(ctx, 1, &workflowmodel.ListInstancesRequest{Page: 1, PageSize: 10})
	assert.NoError(t, err)
	assert.Equal(t, workflowmodel.InstanceStatusCompleted, instances[0].Status)
}

// TestEngineService_Reject 测试拒绝原因必填与任一拒绝终结请求
func TestEngineService_Reject(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	env.mustActiveConfig(t, 1, twoStageConfigRequest("engine_reject"))
	request := submitManualRequest(t, env, "待拒绝报销")

	record := env.pendingApproval(t, request.ID, 20)

	// 缺少原因
	_, err := env.engine.Reject(ctx, 1, record.ID, 20, &approval.DecisionRequest{})
	assert.Error(t, err)
	_, err = env.engine.Reject(ctx, 1, record.ID, 20, nil)
	assert.Error(t, err)

	// 任一审批人拒绝即终结请求
	resp, err := env.engine.Reject(ctx, 1, record.ID, 20, &approval.DecisionRequest{Reason: "票据不全"})
	assert.NoError(t, err)
	assert.True(t, resp.OK)

	got, err := env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.RequestStatusRejected, got.Status)
	assert.NotEmpty(t, got.RejectionReason)

	instances, _, err := env.instanceSvc.ListInstances(ctx, 1, &workflowmodel.ListInstancesRequest{Page: 1, PageSize: 10})
	assert.NoError(t, err)
	assert.Equal(t, workflowmodel.InstanceStatusFailed, instances[0].Status)

	// 终态后另一审批人不可再决策
	other := env.pendingApproval(t, request.ID, 21)
	_, err = env.engine.Approve(ctx, 1, other.ID, 21, nil)
	assert.ErrorIs(t, err, system.ErrRequestTerminal)
}

// TestEngineService_DecisionGuards 测试决策归属与并发防护
func TestEngineService_DecisionGuards(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	env.mustActiveConfig(t, 1, twoStageConfigRequest("engine_guards"))
	request := submitManualRequest(t, env, "防护测试")

	record := env.pendingApproval(t, request.ID, 20)

	// 审批记录不存在
	_, err := env.engine.Approve(ctx, 1, 9999, 20, nil)
	assert.ErrorIs(t, err, system.ErrApprovalNotFound)

	// 非本人审批记录
	_, err = env.engine.Approve(ctx, 1, record.ID, 21, nil)
	assert.ErrorIs(t, err, system.ErrUnauthorized)

	// 已决策记录重复决策返回 ok=false
	resp, err := env.engine.Approve(ctx, 1, record.ID, 20, nil)
	assert.NoError(t, err)
	assert.True(t, resp.OK)
	resp, err = env.engine.Approve(ctx, 1, record.ID, 20, nil)
	assert.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, "approval already decided", resp.Message)
}

// TestEngineService_Escalate 测试人工升级与升级记录解决
func TestEngineService_Escalate(t *testing.T) {
	env := setupApprovalTestEnv(t)
	ctx := context.Background()

	env.mustActiveConfig(t, 1, twoStageConfigRequest("engine_escalate"))
	request := submitManualRequest(t, env, "升级测试")

	record := env.pendingApproval(t, request.ID, 20)

	// 原因与目标必填
	_, err := env.engine.Escalate(ctx, 1, record.ID, 40, "", 1)
	assert.Error(t, err)
	_, err = env.engine.Escalate(ctx, 1, record.ID, 0, "审批人休假", 1)
	assert.Error(t, err)

	// 目标审批人已有 pending 记录时拒绝升级
	_, err = env.engine.Escalate(ctx, 1, record.ID, 21, "审批人休假", 1)
	assert.ErrorIs(t, err, system.ErrApprovalAlreadyPending)

	// 正常升级：原记录 escalated，目标获得新 pending 记录
	resp, err := env.engine.Escalate(ctx, 1, record.ID, 40, "审批人休假", 1)
	assert.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Len(t, env.notifier.escalations, 1)

	var escalated approval.Approval
	err = env.db.First(&escalated, record.ID).Error
	assert.NoError(t, err)
	assert.Equal(t, approval.ApprovalStatusEscalated, escalated.Status)
	assert.Equal(t, "审批人休假", escalated.Comments)

	replacement := env.pendingApproval(t, request.ID, 40)
	assert.Equal(t, record.Stage, replacement.Stage)

	detail, err := env.query.GetRequestDetail(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Len(t, detail.Escalations, 1)
	assert.Equal(t, approval.EscalationStatusPending, detail.Escalations[0].Status)
	assert.Equal(t, uint64(20), detail.Escalations[0].FromApproverID)
	assert.Equal(t, uint64(40), detail.Escalations[0].ToApproverID)

	// 承接人决策后升级记录标记为已解决，escalated+approved 混合可排空阶段
	resp, err = env.engine.Approve(ctx, 1, replacement.ID, 40, nil)
	assert.NoError(t, err)
	assert.True(t, resp.OK)

	other := env.pendingApproval(t, request.ID, 21)
	resp, err = env.engine.Approve(ctx, 1, other.ID, 21, nil)
	assert.NoError(t, err)
	assert.True(t, resp.OK)

	got, err := env.query.GetRequest(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStage) // 阶段1已排空，推进到阶段2

	detail, err = env.query.GetRequestDetail(ctx, 1, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.EscalationStatusResolved, detail.Escalations[0].Status)
	assert.NotNil(t, detail.Escalations[0].ResolvedAt)
}
