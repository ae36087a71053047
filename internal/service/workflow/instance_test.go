package workflow

import (
	"context"
	"testing"
	"time"

	"approvalmaster/internal/model/system"
	"approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/utils"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"

	"github.com/stretchr/testify/assert"
)

func newInstanceService(t *testing.T, clock utils.Clock) *InstanceService {
	db := setupWorkflowTestDB(t)
	return NewInstanceService(workflowrepo.NewInstanceRepository(db), clock)
}

// TestInstanceService_StartInstance 测试实例创建与初始流转记录
func TestInstanceService_StartInstance(t *testing.T) {
	now := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	clock := utils.NewFixedClock(now)
	svc := newInstanceService(t, clock)
	ctx := context.Background()

	instance, err := svc.StartInstance(ctx, 1, 100, 5, "expense_approval", map[string]interface{}{"amount": 9000})
	assert.NoError(t, err)
	assert.NotEmpty(t, instance.InstanceID)
	assert.Equal(t, workflow.InstanceStatusStarted, instance.Status)
	assert.Equal(t, uint64(100), instance.RequestID)
	assert.True(t, instance.StartedAt.Equal(now))

	// 创建时写入首条流转记录
	got, transitions, err := svc.GetInstanceTrace(ctx, 1, instance.InstanceID)
	assert.NoError(t, err)
	assert.Equal(t, instance.InstanceID, got.InstanceID)
	assert.Len(t, transitions, 1)
	assert.Equal(t, workflow.InstanceStatusStarted, transitions[0].ToStatus)
}

// TestInstanceService_TransitionChain 测试状态流转链路与终态保护
func TestInstanceService_TransitionChain(t *testing.T) {
	clock := utils.NewFixedClock(time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC))
	svc := newInstanceService(t, clock)
	ctx := context.Background()

	instance, err := svc.StartInstance(ctx, 1, 100, 5, "expense_approval", nil)
	assert.NoError(t, err)

	err = svc.TransitionInstance(ctx, 1, instance.InstanceID, workflow.InstanceStatusRunning, 1, "entered first stage", 0)
	assert.NoError(t, err)

	clock.Advance(time.Hour)
	err = svc.TransitionInstance(ctx, 1, instance.InstanceID, workflow.InstanceStatusCompleted, 1, "all stages done", 10)
	assert.NoError(t, err)

	got, transitions, err := svc.GetInstanceTrace(ctx, 1, instance.InstanceID)
	assert.NoError(t, err)
	assert.Equal(t, workflow.InstanceStatusCompleted, got.Status)
	assert.NotNil(t, got.FinishedAt)
	assert.Len(t, transitions, 3)
	assert.Equal(t, workflow.InstanceStatusRunning, transitions[1].ToStatus)
	assert.Equal(t, workflow.InstanceStatusRunning, transitions[2].FromStatus)

	// 终态实例不可再流转
	err = svc.TransitionInstance(ctx, 1, instance.InstanceID, workflow.InstanceStatusRunning, 1, "reopen", 10)
	assert.ErrorIs(t, err, system.ErrInstanceTerminal)
}

// TestInstanceService_FailedRecordsError 测试失败流转记录错误信息
func TestInstanceService_FailedRecordsError(t *testing.T) {
	clock := utils.NewFixedClock(time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC))
	svc := newInstanceService(t, clock)
	ctx := context.Background()

	instance, err := svc.StartInstance(ctx, 1, 100, 5, "expense_approval", nil)
	assert.NoError(t, err)

	err = svc.TransitionInstance(ctx, 1, instance.InstanceID, workflow.InstanceStatusFailed, 1, "rejected at stage 1", 10)
	assert.NoError(t, err)

	got, err := svc.GetInstance(ctx, 1, instance.InstanceID)
	assert.NoError(t, err)
	assert.Equal(t, workflow.InstanceStatusFailed, got.Status)
	assert.NotNil(t, got.FinishedAt)
	assert.Equal(t, "rejected at stage 1", got.ErrorMessage)
}

// TestInstanceService_TransitionByRequest 测试按请求流转在无实例或终态时静默跳过
func TestInstanceService_TransitionByRequest(t *testing.T) {
	clock := utils.NewFixedClock(time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC))
	svc := newInstanceService(t, clock)
	ctx := context.Background()

	// 请求没有对应实例时不报错
	err := svc.TransitionByRequest(ctx, 1, 999, workflow.InstanceStatusCancelled, 0, "cancelled by requester", 10)
	assert.NoError(t, err)

	instance, err := svc.StartInstance(ctx, 1, 100, 5, "expense_approval", nil)
	assert.NoError(t, err)

	err = svc.TransitionByRequest(ctx, 1, 100, workflow.InstanceStatusCancelled, 0, "cancelled by requester", 10)
	assert.NoError(t, err)

	got, err := svc.GetInstance(ctx, 1, instance.InstanceID)
	assert.NoError(t, err)
	assert.Equal(t, workflow.InstanceStatusCancelled, got.Status)

	// 终态后再次流转也不会报错
	err = svc.TransitionByRequest(ctx, 1, 100, workflow.InstanceStatusRunning, 1, "reopen", 10)
	assert.NoError(t, err)
}

// TestInstanceService_NotFound 测试实例查询不存在的情况
func TestInstanceService_NotFound(t *testing.T) {
	svc := newInstanceService(t, utils.NewSystemClock())
	ctx := context.Background()

	_, err := svc.GetInstance(ctx, 1, "no-such-instance")
	assert.ErrorIs(t, err, system.ErrInstanceNotFound)

	err = svc.TransitionInstance(ctx, 1, "no-such-instance", workflow.InstanceStatusRunning, 1, "noop", 0)
	assert.ErrorIs(t, err, system.ErrInstanceNotFound)
}

// TestInstanceService_ListInstances 测试实例列表过滤
func TestInstanceService_ListInstances(t *testing.T) {
	clock := utils.NewFixedClock(time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC))
	svc := newInstanceService(t, clock)
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		_, err := svc.StartInstance(ctx, 1, 100+i, 5, "expense_approval", nil)
		assert.NoError(t, err)
	}

	requestID := uint64(101)
	instances, total, err := svc.ListInstances(ctx, 1, &workflow.ListInstancesRequest{
		Page: 1, PageSize: 10, RequestID: &requestID,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, instances, 1)
	assert.Equal(t, uint64(101), instances[0].RequestID)
}
