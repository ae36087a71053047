/**
 * 服务层:工作流实例追踪
 * @author: sun977
 * @date: 2025.12.20
 * @description: 审批请求全生命周期的执行流水账(实例+状态迁移链)
 * @func:
 * 1.实例创建(UUID标识,初始started)
 * 2.状态迁移(终态后拒绝迁移,迁移与流水同事务)
 * 3.实例与迁移链查询
 */
package workflow

import (
	"context"
	"encoding/json"

	"approvalmaster/internal/model/system"
	"approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/utils"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"

	"github.com/google/uuid"
)

// InstanceService 工作流实例服务
type InstanceService struct {
	repo  *workflowrepo.InstanceRepository
	clock utils.Clock
}

// NewInstanceService 创建 InstanceService 实例
func NewInstanceService(repo *workflowrepo.InstanceRepository, clock utils.Clock) *InstanceService {
	return &InstanceService{
		repo:  repo,
		clock: clock,
	}
}

// StartInstance 为审批请求创建工作流实例
// 实例以UUID对外标识，初始状态 started，并落第一条迁移流水
func (s *InstanceService) StartInstance(ctx context.Context, tenantID, requestID, configID uint64, workflowName string, data map[string]interface{}) (*workflow.WorkflowInstance, error) {
	now := s.clock.Now()

	var dataJSON string
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		dataJSON = string(raw)
	}

	instance := &workflow.WorkflowInstance{
		InstanceID:   uuid.NewString(),
		TenantID:     tenantID,
		RequestID:    requestID,
		ConfigID:     configID,
		WorkflowName: workflowName,
		CurrentStage: 0,
		Status:       workflow.InstanceStatusStarted,
		Data:         dataJSON,
		StartedAt:    now,
	}

	if err := s.repo.CreateInstance(ctx, instance); err != nil {
		logger.LogBusinessError(err, "", 0, "", "start_instance", "SERVICE", map[string]interface{}{
			"operation":  "start_instance",
			"tenant_id":  tenantID,
			"request_id": requestID,
		})
		return nil, err
	}

	// 创建即记录第一条流水，追踪链从 started 开始
	transition := &workflow.WorkflowInstanceTransition{
		InstanceID: instance.InstanceID,
		TenantID:   tenantID,
		FromStatus: "",
		ToStatus:   workflow.InstanceStatusStarted,
		Stage:      0,
		Reason:     "instance created",
		OperatorID: 0,
		OccurredAt: now,
	}
	if err := s.repo.AppendTransition(ctx, transition); err != nil {
		return nil, err
	}

	return instance, nil
}

// TransitionInstance 迁移实例状态
// 终态实例拒绝任何迁移，状态更新与迁移流水同事务写入
func (s *InstanceService) TransitionInstance(ctx context.Context, tenantID uint64, instanceID string, toStatus workflow.InstanceStatus, stage int, reason string, operatorID uint64) error {
	instance, err := s.repo.GetInstanceByInstanceID(ctx, tenantID, instanceID)
	if err != nil {
		return err
	}
	if instance == nil {
		return system.ErrInstanceNotFound
	}
	if instance.Status.IsTerminal() {
		return system.ErrInstanceTerminal
	}

	now := s.clock.Now()
	fields := map[string]interface{}{
		"status":        toStatus,
		"current_stage": stage,
	}
	if toStatus.IsTerminal() {
		fields["finished_at"] = now
	}
	if toStatus == workflow.InstanceStatusFailed {
		fields["error_message"] = reason
	}

	transition := &workflow.WorkflowInstanceTransition{
		InstanceID: instanceID,
		TenantID:   tenantID,
		FromStatus: instance.Status,
		ToStatus:   toStatus,
		Stage:      stage,
		Reason:     reason,
		OperatorID: operatorID,
		OccurredAt: now,
	}

	if err := s.repo.UpdateInstanceStatus(ctx, tenantID, instanceID, fields, transition); err != nil {
		logger.LogBusinessError(err, "", 0, "", "transition_instance", "SERVICE", map[string]interface{}{
			"operation":   "transition_instance",
			"tenant_id":   tenantID,
			"instance_id": instanceID,
			"to_status":   toStatus,
		})
		return err
	}
	return nil
}

// TransitionByRequest 按请求ID迁移实例状态
// 审批引擎在请求状态变化时同步实例，实例不存在时静默跳过
// （自动通过等场景可能不创建实例）
func (s *InstanceService) TransitionByRequest(ctx context.Context, tenantID, requestID uint64, toStatus workflow.InstanceStatus, stage int, reason string, operatorID uint64) error {
	instance, err := s.repo.GetInstanceByRequestID(ctx, tenantID, requestID)
	if err != nil {
		return err
	}
	if instance == nil {
		return nil
	}
	if instance.Status.IsTerminal() {
		return nil
	}
	return s.TransitionInstance(ctx, tenantID, instance.InstanceID, toStatus, stage, reason, operatorID)
}

// GetInstance 获取实例详情
func (s *InstanceService) GetInstance(ctx context.Context, tenantID uint64, instanceID string) (*workflow.WorkflowInstance, error) {
	instance, err := s.repo.GetInstanceByInstanceID(ctx, tenantID, instanceID)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, system.ErrInstanceNotFound
	}
	return instance, nil
}

// GetInstanceTrace 获取实例及其完整迁移链
func (s *InstanceService) GetInstanceTrace(ctx context.Context, tenantID uint64, instanceID string) (*workflow.WorkflowInstance, []*workflow.WorkflowInstanceTransition, error) {
	instance, err := s.GetInstance(ctx, tenantID, instanceID)
	if err != nil {
		return nil, nil, err
	}
	transitions, err := s.repo.ListTransitions(ctx, tenantID, instanceID)
	if err != nil {
		return nil, nil, err
	}
	return instance, transitions, nil
}

// ListInstances 分页获取实例列表
func (s *InstanceService) ListInstances(ctx context.Context, tenantID uint64, req *workflow.ListInstancesRequest) ([]*workflow.WorkflowInstance, int64, error) {
	page, pageSize := 1, 10
	if req != nil {
		if req.Page >= 1 {
			page = req.Page
		}
		if req.PageSize >= 1 {
			pageSize = req.PageSize
		}
	}
	offset := (page - 1) * pageSize

	instances, total, err := s.repo.ListInstances(ctx, tenantID, req, offset, pageSize)
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "list_instances", "SERVICE", map[string]interface{}{
			"operation": "list_instances",
			"tenant_id": tenantID,
		})
		return nil, 0, err
	}
	return instances, total, nil
}
