/**
 * 服务层:审批决策引擎
 * @author: sun977
 * @date: 2025.12.20
 * @description: 审批记录的创建与决策(approve/reject/escalate)，多阶段推进的聚合判定
 * @func:
 * 1.审批记录创建(同一请求同一审批人至多一条pending)
 * 2.决策路径并发防护(UPDATE ... WHERE status='pending' 原子迁移,RowsAffected=0视为竞争失败)
 * 3.单票否决:拒绝落地即终结请求,不等待同阶段其他审批人
 * 4.阶段排空聚合(全部approved->阶段完成;approved+escalated混合->阶段完成)
 * 5.阶段推进与请求终结
 */
package approval

import (
	"context"
	"fmt"

	"approvalmaster/internal/model"
	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/model/system"
	workflowmodel "approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/utils"
	approvalrepo "approvalmaster/internal/repo/mysql/approval"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"
	"approvalmaster/internal/service/notification"
	workflowsvc "approvalmaster/internal/service/workflow"
)

// EngineService 审批决策引擎服务
type EngineService struct {
	requestRepo    *approvalrepo.RequestRepository
	approvalRepo   *approvalrepo.ApprovalRepository
	escalationRepo *approvalrepo.EscalationRepository
	configRepo     *workflowrepo.ConfigurationRepository
	instances      *workflowsvc.InstanceService
	notifier       notification.Notifier
	clock          utils.Clock
}

// NewEngineService 创建 EngineService 实例
func NewEngineService(
	requestRepo *approvalrepo.RequestRepository,
	approvalRepo *approvalrepo.ApprovalRepository,
	escalationRepo *approvalrepo.EscalationRepository,
	configRepo *workflowrepo.ConfigurationRepository,
	instances *workflowsvc.InstanceService,
	notifier notification.Notifier,
	clock utils.Clock,
) *EngineService {
	return &EngineService{
		requestRepo:    requestRepo,
		approvalRepo:   approvalRepo,
		escalationRepo: escalationRepo,
		configRepo:     configRepo,
		instances:      instances,
		notifier:       notifier,
		clock:          clock,
	}
}

// CreateApproval 创建审批记录
// 同一 (request, approver) 同时至多一条 pending，违反时返回 ErrApprovalAlreadyPending
func (s *EngineService) CreateApproval(ctx context.Context, tenantID uint64, req *approval.CreateApprovalRequest) (*approval.Approval, error) {
	if req == nil {
		return nil, fmt.Errorf("approval data cannot be nil")
	}
	if req.Stage < 1 {
		return nil, system.ErrInvalidStage
	}

	request, err := s.requestRepo.GetRequestByID(ctx, tenantID, req.RequestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, system.ErrRequestNotFound
	}
	if request.Status.IsTerminal() {
		return nil, system.ErrRequestTerminal
	}

	existing, err := s.approvalRepo.GetPendingApproval(ctx, tenantID, req.RequestID, req.ApproverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, system.ErrApprovalAlreadyPending
	}

	record := &approval.Approval{
		TenantID:   tenantID,
		RequestID:  req.RequestID,
		ApproverID: req.ApproverID,
		Stage:      req.Stage,
		Status:     approval.ApprovalStatusPending,
	}
	if err := s.approvalRepo.CreateApproval(ctx, record); err != nil {
		logger.LogBusinessError(err, "", 0, "", "create_approval", "SERVICE", map[string]interface{}{
			"operation":   "create_approval",
			"tenant_id":   tenantID,
			"request_id":  req.RequestID,
			"approver_id": req.ApproverID,
		})
		return nil, err
	}
	return record, nil
}

// Approve 审批通过
// 并发竞争或记录已被处理时返回 ok=false 而非错误，调用方据此幂等重试
func (s *EngineService) Approve(ctx context.Context, tenantID, approvalID, approverID uint64, req *approval.DecisionRequest) (*model.DecisionResponse, error) {
	record, request, err := s.loadDecisionTarget(ctx, tenantID, approvalID, approverID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	comments := ""
	if req != nil {
		comments = req.Comments
	}
	ok, err := s.approvalRepo.UpdateStatusFromPending(ctx, tenantID, approvalID, approval.ApprovalStatusApproved, map[string]interface{}{
		"comments":    comments,
		"approved_at": now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.DecisionResponse{OK: false, Message: "approval already decided"}, nil
	}

	// 升级承接的决策落地后，原升级记录标记为已解决
	if err := s.escalationRepo.ResolvePendingByApproval(ctx, tenantID, approvalID, now); err != nil {
		logger.LogWarn("Failed to resolve escalation after approval", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":   tenantID,
			"approval_id": approvalID,
			"error":       err.Error(),
		})
	}

	if err := s.onApprovalDecided(ctx, request, record.Stage); err != nil {
		return nil, err
	}
	return &model.DecisionResponse{OK: true}, nil
}

// Reject 审批拒绝
// 拒绝需要原因，同样走原子迁移防护。
// 单票否决：拒绝落地后立即终结请求，不等待同阶段其他审批人
func (s *EngineService) Reject(ctx context.Context, tenantID, approvalID, approverID uint64, req *approval.DecisionRequest) (*model.DecisionResponse, error) {
	if req == nil || req.Reason == "" {
		return nil, system.NewFieldValidationError("reason", "rejection reason is required")
	}

	record, request, err := s.loadDecisionTarget(ctx, tenantID, approvalID, approverID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ok, err := s.approvalRepo.UpdateStatusFromPending(ctx, tenantID, approvalID, approval.ApprovalStatusRejected, map[string]interface{}{
		"comments":    req.Reason,
		"approved_at": now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.DecisionResponse{OK: false, Message: "approval already decided"}, nil
	}

	if err := s.escalationRepo.ResolvePendingByApproval(ctx, tenantID, approvalID, now); err != nil {
		logger.LogWarn("Failed to resolve escalation after rejection", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":   tenantID,
			"approval_id": approvalID,
			"error":       err.Error(),
		})
	}

	if err := s.finalizeRejected(ctx, request, record.Stage); err != nil {
		return nil, err
	}
	return &model.DecisionResponse{OK: true}, nil
}

// Escalate 人工升级审批
// 原记录迁移至 escalated，为目标审批人创建同阶段的新 pending 记录
func (s *EngineService) Escalate(ctx context.Context, tenantID, approvalID, toApproverID uint64, reason string, operatorID uint64) (*model.DecisionResponse, error) {
	if reason == "" {
		return nil, system.NewFieldValidationError("reason", "escalation reason is required")
	}
	if toApproverID == 0 {
		return nil, system.NewFieldValidationError("to_approver_id", "escalation target is required")
	}

	record, err := s.approvalRepo.GetApprovalByID(ctx, tenantID, approvalID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, system.ErrApprovalNotFound
	}

	request, err := s.requestRepo.GetRequestByID(ctx, tenantID, record.RequestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, system.ErrRequestNotFound
	}
	if request.Status.IsTerminal() {
		return nil, system.ErrRequestTerminal
	}

	// 目标审批人已有 pending 记录时不允许升级，避免破坏唯一性不变量
	existing, err := s.approvalRepo.GetPendingApproval(ctx, tenantID, record.RequestID, toApproverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, system.ErrApprovalAlreadyPending
	}

	now := s.clock.Now()
	ok, err := s.approvalRepo.UpdateStatusFromPending(ctx, tenantID, approvalID, approval.ApprovalStatusEscalated, map[string]interface{}{
		"comments": reason,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.DecisionResponse{OK: false, Message: "approval already decided"}, nil
	}

	// 被升级走的审批人若自身是升级承接人，其未解决的升级记录一并解决
	if err := s.escalationRepo.ResolvePendingByApproval(ctx, tenantID, approvalID, now); err != nil {
		logger.LogWarn("Failed to resolve superseded escalation", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":   tenantID,
			"approval_id": approvalID,
			"error":       err.Error(),
		})
	}

	replacement := &approval.Approval{
		TenantID:   tenantID,
		RequestID:  record.RequestID,
		ApproverID: toApproverID,
		Stage:      record.Stage,
		Status:     approval.ApprovalStatusPending,
	}
	if err := s.approvalRepo.CreateApproval(ctx, replacement); err != nil {
		return nil, err
	}

	// ApprovalID 指向承接的新 pending 记录，承接记录决策落地时升级随之解决
	escalation := &approval.ApprovalEscalation{
		TenantID:       tenantID,
		ApprovalID:     replacement.ID,
		RequestID:      record.RequestID,
		FromApproverID: record.ApproverID,
		ToApproverID:   toApproverID,
		Reason:         reason,
		Status:         approval.EscalationStatusPending,
		EscalatedAt:    now,
	}
	if err := s.escalationRepo.CreateEscalation(ctx, escalation); err != nil {
		return nil, err
	}

	s.notifier.SendEscalationNotice(ctx, tenantID, toApproverID, record.RequestID, replacement.ID, request.Title)
	return &model.DecisionResponse{OK: true}, nil
}

// loadDecisionTarget 加载决策目标并做归属校验
func (s *EngineService) loadDecisionTarget(ctx context.Context, tenantID, approvalID, approverID uint64) (*approval.Approval, *approval.Request, error) {
	record, err := s.approvalRepo.GetApprovalByID(ctx, tenantID, approvalID)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, system.ErrApprovalNotFound
	}
	if record.ApproverID != approverID {
		return nil, nil, system.ErrUnauthorized
	}

	request, err := s.requestRepo.GetRequestByID(ctx, tenantID, record.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if request == nil {
		return nil, nil, system.ErrRequestNotFound
	}
	if request.Status.IsTerminal() {
		return nil, nil, system.ErrRequestTerminal
	}
	return record, request, nil
}

// onApprovalDecided 通过决策落地后的阶段排空检查
// 当前阶段仍有 pending 记录时直接返回，排空后阶段完成，推进下一阶段或终结为 completed。
// 拒绝不走排空路径，但排空时仍兜底检查 rejected：并发下拒绝与通过同时落地时以拒绝为准
func (s *EngineService) onApprovalDecided(ctx context.Context, request *approval.Request, stage int) error {
	undecided, err := s.approvalRepo.CountUndecidedByRequestStage(ctx, request.TenantID, request.ID, stage)
	if err != nil {
		return err
	}
	if undecided > 0 {
		return nil
	}

	records, err := s.approvalRepo.ListApprovalsByRequestStage(ctx, request.TenantID, request.ID, stage)
	if err != nil {
		return err
	}

	anyRejected := false
	for _, r := range records {
		if r.Status == approval.ApprovalStatusRejected {
			anyRejected = true
			break
		}
	}

	if anyRejected {
		return s.finalizeRejected(ctx, request, stage)
	}
	return s.advanceOrComplete(ctx, request, stage)
}

// finalizeRejected 阶段存在拒绝时终结请求
func (s *EngineService) finalizeRejected(ctx context.Context, request *approval.Request, stage int) error {
	now := s.clock.Now()
	reason := fmt.Sprintf("rejected at stage %d", stage)

	// 并发终结是幂等的：请求已进入终态时跳过
	ok, err := s.requestRepo.UpdateRequestStatusFromAny(ctx, request.TenantID, request.ID,
		activeRequestStatuses(), map[string]interface{}{
			"status":           approval.RequestStatusRejected,
			"rejection_reason": reason,
			"completed_at":     now,
		})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := s.instances.TransitionByRequest(ctx, request.TenantID, request.ID,
		workflowmodel.InstanceStatusFailed, stage, reason, 0); err != nil {
		logger.LogWarn("Failed to transition instance after rejection", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":  request.TenantID,
			"request_id": request.ID,
			"error":      err.Error(),
		})
	}

	s.notifier.SendDecisionNotice(ctx, request.TenantID, request.RequesterID, request.ID,
		fmt.Sprintf("审批被拒绝: %s", request.Title), reason)
	return nil
}

// advanceOrComplete 阶段完成后推进下一阶段或终结请求
func (s *EngineService) advanceOrComplete(ctx context.Context, request *approval.Request, stage int) error {
	config, err := s.configRepo.GetConfigurationByID(ctx, request.TenantID, request.ConfigID)
	if err != nil {
		return err
	}

	maxStage := stage
	if config != nil {
		if maxStage, err = config.MaxStage(); err != nil {
			return err
		}
	}

	if stage >= maxStage {
		return s.finalizeCompleted(ctx, request, stage)
	}

	nextStage := stage + 1
	approvers, err := config.StageApprovers(nextStage)
	if err != nil {
		return err
	}
	if len(approvers) == 0 {
		return fmt.Errorf("%w: stage %d has no approvers", system.ErrNoNextStage, nextStage)
	}

	for _, approverID := range approvers {
		existing, err := s.approvalRepo.GetPendingApproval(ctx, request.TenantID, request.ID, approverID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		record := &approval.Approval{
			TenantID:   request.TenantID,
			RequestID:  request.ID,
			ApproverID: approverID,
			Stage:      nextStage,
			Status:     approval.ApprovalStatusPending,
		}
		if err := s.approvalRepo.CreateApproval(ctx, record); err != nil {
			return err
		}
	}

	if err := s.requestRepo.UpdateRequestFields(ctx, request.TenantID, request.ID, map[string]interface{}{
		"current_stage": nextStage,
	}); err != nil {
		return err
	}

	if err := s.instances.TransitionByRequest(ctx, request.TenantID, request.ID,
		workflowmodel.InstanceStatusRunning, nextStage,
		fmt.Sprintf("advanced to stage %d", nextStage), 0); err != nil {
		logger.LogWarn("Failed to transition instance after stage advance", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":  request.TenantID,
			"request_id": request.ID,
			"error":      err.Error(),
		})
	}
	return nil
}

// finalizeCompleted 全部阶段完成后终结请求
func (s *EngineService) finalizeCompleted(ctx context.Context, request *approval.Request, stage int) error {
	now := s.clock.Now()

	ok, err := s.requestRepo.UpdateRequestStatusFromAny(ctx, request.TenantID, request.ID,
		activeRequestStatuses(), map[string]interface{}{
			"status":       approval.RequestStatusCompleted,
			"completed_at": now,
		})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := s.instances.TransitionByRequest(ctx, request.TenantID, request.ID,
		workflowmodel.InstanceStatusCompleted, stage, "all stages approved", 0); err != nil {
		logger.LogWarn("Failed to transition instance after completion", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":  request.TenantID,
			"request_id": request.ID,
			"error":      err.Error(),
		})
	}

	s.notifier.SendDecisionNotice(ctx, request.TenantID, request.RequesterID, request.ID,
		fmt.Sprintf("审批已通过: %s", request.Title), "all approval stages completed")
	return nil
}

// activeRequestStatuses 返回可被引擎终结的非终态集合
// overdue 不是终态，超期请求仍可被审批终结
func activeRequestStatuses() []approval.RequestStatus {
	return []approval.RequestStatus{
		approval.RequestStatusPending,
		approval.RequestStatusInProgress,
		approval.RequestStatusOverdue,
	}
}
