/**
 * 服务层:审批请求接收与路由
 * @author: sun977
 * @date: 2025.12.20
 * @description: 请求提交入口(选配置->评估规则->自动通过/自动拒绝/进入人工审批)与取消
 * @func:
 * 1.请求提交与规则路由
 * 2.配置缺失时请求保持pending等待人工处理
 * 3.取消(唯一可人工设置的终态)
 */
package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/model/system"
	workflowmodel "approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/rule_engine"
	"approvalmaster/internal/pkg/utils"
	approvalrepo "approvalmaster/internal/repo/mysql/approval"
	redisrepo "approvalmaster/internal/repo/redis"
	"approvalmaster/internal/service/notification"
	workflowsvc "approvalmaster/internal/service/workflow"
)

// 规则评估结果动作
const (
	ActionAutoApprove     = "AutoApprove"     // 自动通过
	ActionAutoReject      = "AutoReject"      // 自动拒绝
	ActionRequireApproval = "RequireApproval" // 进入人工审批
)

// IntakeService 审批请求接收服务
type IntakeService struct {
	requestRepo   *approvalrepo.RequestRepository
	approvalRepo  *approvalrepo.ApprovalRepository
	selector      *workflowsvc.SelectorService
	instances     *workflowsvc.InstanceService
	reminderRepo  *redisrepo.ReminderRepository
	evaluator     *rule_engine.Evaluator
	notifier      notification.Notifier
	clock         utils.Clock
	defaultAction string // 无规则命中时的兜底动作
}

// NewIntakeService 创建 IntakeService 实例
func NewIntakeService(
	requestRepo *approvalrepo.RequestRepository,
	approvalRepo *approvalrepo.ApprovalRepository,
	selector *workflowsvc.SelectorService,
	instances *workflowsvc.InstanceService,
	reminderRepo *redisrepo.ReminderRepository,
	evaluator *rule_engine.Evaluator,
	notifier notification.Notifier,
	clock utils.Clock,
	defaultAction string,
) *IntakeService {
	if defaultAction == "" {
		defaultAction = ActionRequireApproval
	}
	return &IntakeService{
		requestRepo:   requestRepo,
		approvalRepo:  approvalRepo,
		selector:      selector,
		instances:     instances,
		reminderRepo:  reminderRepo,
		evaluator:     evaluator,
		notifier:      notifier,
		clock:         clock,
		defaultAction: defaultAction,
	}
}

// SubmitRequest 提交审批请求
// 路由流程：选择配置 -> 评估路由规则 -> 按结果动作分派。
// 没有任何配置命中时请求保持 pending，等待人工介入
func (s *IntakeService) SubmitRequest(ctx context.Context, tenantID, requesterID uint64, req *approval.SubmitRequest) (*approval.Request, error) {
	if req == nil {
		return nil, fmt.Errorf("request data cannot be nil")
	}
	if tenantID == 0 {
		return nil, system.ErrInvalidTenantID
	}

	var dataJSON string
	if len(req.Data) > 0 {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return nil, err
		}
		dataJSON = string(raw)
	}

	request := &approval.Request{
		TenantID:      tenantID,
		RequestTypeID: req.RequestTypeID,
		Title:         req.Title,
		RequesterID:   requesterID,
		Priority:      req.Priority,
		Data:          dataJSON,
		Status:        approval.RequestStatusPending,
		DueDate:       req.DueDate,
	}
	if err := s.requestRepo.CreateRequest(ctx, request); err != nil {
		logger.LogBusinessError(err, "", 0, "", "submit_request", "SERVICE", map[string]interface{}{
			"operation":       "submit_request",
			"tenant_id":       tenantID,
			"request_type_id": req.RequestTypeID,
		})
		return nil, err
	}

	config, err := s.selector.SelectConfiguration(ctx, tenantID, &workflowmodel.SelectConfigurationRequest{
		RequestTypeID: req.RequestTypeID,
		Data:          req.Data,
	})
	if err != nil {
		return nil, err
	}
	if config == nil {
		logger.LogInfo("No workflow configuration matched, request stays pending", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":       tenantID,
			"request_id":      request.ID,
			"request_type_id": req.RequestTypeID,
		})
		return request, nil
	}

	return request, s.route(ctx, request, config, req.Data)
}

// route 按选中配置路由请求
func (s *IntakeService) route(ctx context.Context, request *approval.Request, config *workflowmodel.WorkflowConfiguration, data map[string]interface{}) error {
	now := s.clock.Now()

	// 截止时间未显式指定时按配置的最大执行时长推导
	fields := map[string]interface{}{
		"config_id": config.ID,
	}
	if request.DueDate == nil && config.MaxExecutionTimeHours > 0 {
		due := now.Add(time.Duration(config.MaxExecutionTimeHours) * time.Hour)
		request.DueDate = &due
		fields["due_date"] = due
	}
	request.ConfigID = config.ID
	if err := s.requestRepo.UpdateRequestFields(ctx, request.TenantID, request.ID, fields); err != nil {
		return err
	}

	if _, err := s.instances.StartInstance(ctx, request.TenantID, request.ID, config.ID, config.Name, data); err != nil {
		return err
	}

	rules, err := config.ParseEvaluationRules()
	if err != nil {
		// 激活时已校验过，落库后损坏按畸形配置处理
		return system.ErrConfigRulesMalformed
	}
	result := s.evaluator.Evaluate(rules, data, s.defaultAction)

	action := result.ResultAction
	// 配置强制人工审批时覆盖自动通过
	if action == ActionAutoApprove && config.RequiresManualApproval {
		action = ActionRequireApproval
	}

	switch action {
	case ActionAutoApprove:
		return s.autoFinalize(ctx, request, approval.RequestStatusApproved,
			workflowmodel.InstanceStatusCompleted, "auto-approved by evaluation rules")
	case ActionAutoReject:
		return s.autoFinalize(ctx, request, approval.RequestStatusRejected,
			workflowmodel.InstanceStatusFailed, "auto-rejected by evaluation rules")
	default:
		return s.enterFirstStage(ctx, request, config)
	}
}

// autoFinalize 规则直接终结请求（自动通过/自动拒绝）
func (s *IntakeService) autoFinalize(ctx context.Context, request *approval.Request, status approval.RequestStatus, instanceStatus workflowmodel.InstanceStatus, reason string) error {
	now := s.clock.Now()
	fields := map[string]interface{}{
		"status":       status,
		"completed_at": now,
	}
	if status == approval.RequestStatusRejected {
		fields["rejection_reason"] = reason
	}
	if err := s.requestRepo.UpdateRequestFields(ctx, request.TenantID, request.ID, fields); err != nil {
		return err
	}

	if err := s.instances.TransitionByRequest(ctx, request.TenantID, request.ID,
		instanceStatus, 0, reason, 0); err != nil {
		logger.LogWarn("Failed to transition instance after auto decision", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":  request.TenantID,
			"request_id": request.ID,
			"error":      err.Error(),
		})
	}

	s.notifier.SendDecisionNotice(ctx, request.TenantID, request.RequesterID, request.ID,
		fmt.Sprintf("审批结果: %s", request.Title), reason)
	return nil
}

// enterFirstStage 进入第一阶段人工审批
// 配置未定义阶段时请求保持 pending 等待人工路由
func (s *IntakeService) enterFirstStage(ctx context.Context, request *approval.Request, config *workflowmodel.WorkflowConfiguration) error {
	approvers, err := config.StageApprovers(1)
	if err != nil {
		return system.ErrConfigRulesMalformed
	}
	if len(approvers) == 0 {
		logger.LogWarn("Configuration has no stage definitions, request stays pending", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":  request.TenantID,
			"request_id": request.ID,
			"config_id":  config.ID,
		})
		return nil
	}

	for _, approverID := range approvers {
		record := &approval.Approval{
			TenantID:   request.TenantID,
			RequestID:  request.ID,
			ApproverID: approverID,
			Stage:      1,
			Status:     approval.ApprovalStatusPending,
		}
		if err := s.approvalRepo.CreateApproval(ctx, record); err != nil {
			return err
		}
	}

	if err := s.requestRepo.UpdateRequestFields(ctx, request.TenantID, request.ID, map[string]interface{}{
		"status":        approval.RequestStatusInProgress,
		"current_stage": 1,
	}); err != nil {
		return err
	}

	if err := s.instances.TransitionByRequest(ctx, request.TenantID, request.ID,
		workflowmodel.InstanceStatusRunning, 1, "entered stage 1", 0); err != nil {
		logger.LogWarn("Failed to transition instance after entering stage", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":  request.TenantID,
			"request_id": request.ID,
			"error":      err.Error(),
		})
	}
	return nil
}

// CancelRequest 取消审批请求
// cancelled 是唯一可由人工直接设置的终态，已终结的请求不可取消
func (s *IntakeService) CancelRequest(ctx context.Context, tenantID, requestID, operatorID uint64, reason string) error {
	request, err := s.requestRepo.GetRequestByID(ctx, tenantID, requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return system.ErrRequestNotFound
	}
	if request.Status.IsTerminal() {
		return system.ErrRequestTerminal
	}

	now := s.clock.Now()
	fields := map[string]interface{}{
		"status":       approval.RequestStatusCancelled,
		"completed_at": now,
	}
	if reason != "" {
		fields["rejection_reason"] = reason
	}
	ok, err := s.requestRepo.UpdateRequestStatusFromAny(ctx, tenantID, requestID,
		activeRequestStatuses(), fields)
	if err != nil {
		return err
	}
	if !ok {
		return system.ErrRequestTerminal
	}

	if err := s.instances.TransitionByRequest(ctx, tenantID, requestID,
		workflowmodel.InstanceStatusCancelled, request.CurrentStage, reason, operatorID); err != nil {
		logger.LogWarn("Failed to transition instance after cancel", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":  tenantID,
			"request_id": requestID,
			"error":      err.Error(),
		})
	}

	// 清理该请求下的提醒抑制残留
	if s.reminderRepo != nil {
		if err := s.reminderRepo.ClearRequestReminderMarks(ctx, tenantID, requestID); err != nil {
			logger.LogWarn("Failed to clear reminder marks after cancel", "", 0, "", "", "", map[string]interface{}{
				"tenant_id":  tenantID,
				"request_id": requestID,
				"error":      err.Error(),
			})
		}
	}
	return nil
}
