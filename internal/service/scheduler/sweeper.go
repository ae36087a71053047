/**
 * 服务层:后台扫描任务
 * @author: sun977
 * @date: 2025.12.20
 * @description: 四类周期扫描(自动升级/审批提醒/逾期标记/历史清理),按租户迭代,单条失败不中断整轮
 * @func:
 * 1.RunAutoEscalation 滞留审批自动升级(幂等:同一审批至多一条pending升级)
 * 2.SendReminders 滞留审批提醒(Redis SETNX抑制,失效时DB兜底)
 * 3.MarkOverdueRequests 超期请求标记(overdue非终态,仍可被审批)
 * 4.CleanupHistory 已处理升级与历史通知清理
 */
package scheduler

import (
	"context"
	"time"

	"approvalmaster/internal/config"
	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/utils"
	approvalrepo "approvalmaster/internal/repo/mysql/approval"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"
	redisrepo "approvalmaster/internal/repo/redis"
	"approvalmaster/internal/service/notification"
)

// SweeperService 后台扫描服务
type SweeperService struct {
	requestRepo    *approvalrepo.RequestRepository
	approvalRepo   *approvalrepo.ApprovalRepository
	escalationRepo *approvalrepo.EscalationRepository
	notifyRepo     *approvalrepo.NotificationRepository
	configRepo     *workflowrepo.ConfigurationRepository
	reminderRepo   *redisrepo.ReminderRepository
	policy         EscalationTargetPolicy
	notifier       notification.Notifier
	clock          utils.Clock
	cfg            *config.SchedulerConfig
}

// NewSweeperService 创建 SweeperService 实例
func NewSweeperService(
	requestRepo *approvalrepo.RequestRepository,
	approvalRepo *approvalrepo.ApprovalRepository,
	escalationRepo *approvalrepo.EscalationRepository,
	notifyRepo *approvalrepo.NotificationRepository,
	configRepo *workflowrepo.ConfigurationRepository,
	reminderRepo *redisrepo.ReminderRepository,
	policy EscalationTargetPolicy,
	notifier notification.Notifier,
	clock utils.Clock,
	cfg *config.SchedulerConfig,
) *SweeperService {
	return &SweeperService{
		requestRepo:    requestRepo,
		approvalRepo:   approvalRepo,
		escalationRepo: escalationRepo,
		notifyRepo:     notifyRepo,
		configRepo:     configRepo,
		reminderRepo:   reminderRepo,
		policy:         policy,
		notifier:       notifier,
		clock:          clock,
		cfg:            cfg,
	}
}

// RegisterJobs 将扫描任务注册到调度器
func (s *SweeperService) RegisterJobs(sched *Scheduler) error {
	if err := sched.Register("auto_escalation", s.cfg.EscalationInterval, s.RunAutoEscalation); err != nil {
		return err
	}
	if err := sched.Register("approval_reminder", s.cfg.ReminderInterval, s.SendReminders); err != nil {
		return err
	}
	if err := sched.Register("overdue_requests", s.cfg.OverdueInterval, s.MarkOverdueRequests); err != nil {
		return err
	}
	return sched.Register("history_cleanup", s.cfg.CleanupInterval, s.CleanupHistory)
}

// RunAutoEscalation 滞留审批自动升级
// 幂等保证：已有 pending 升级的审批跳过；策略返回原审批人视为无目标跳过；
// 单条升级失败记日志后继续处理后续记录
func (s *SweeperService) RunAutoEscalation(ctx context.Context) error {
	tenants, err := s.requestRepo.GetActiveTenantIDs(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	cutoff := now.Add(-time.Duration(s.cfg.EscalationThresholdHours) * time.Hour)

	for _, tenantID := range tenants {
		stale, err := s.approvalRepo.GetStaleApprovals(ctx, tenantID, cutoff, s.cfg.BatchSize)
		if err != nil {
			logger.LogError(err, "", 0, "", "service.sweeper.RunAutoEscalation", "REPO", map[string]interface{}{
				"tenant_id": tenantID,
			})
			continue
		}

		for _, record := range stale {
			s.escalateOne(ctx, tenantID, record, now)
		}
	}
	return nil
}

// escalateOne 升级单条滞留审批
func (s *SweeperService) escalateOne(ctx context.Context, tenantID uint64, record *approval.Approval, now time.Time) {
	fields := map[string]interface{}{
		"tenant_id":   tenantID,
		"approval_id": record.ID,
		"request_id":  record.RequestID,
	}

	// 升级策略按配置可关闭
	if enabled := s.escalationEnabled(ctx, tenantID, record.RequestID); !enabled {
		return
	}

	hasPending, err := s.escalationRepo.HasPendingEscalation(ctx, tenantID, record.ID)
	if err != nil {
		logger.LogError(err, "", 0, "", "service.sweeper.escalateOne", "REPO", fields)
		return
	}
	if hasPending {
		return
	}

	target, err := s.policy.Target(ctx, tenantID, record)
	if err != nil {
		logger.LogError(err, "", 0, "", "service.sweeper.escalateOne", "POLICY", fields)
		return
	}
	if target == record.ApproverID {
		return // 无可用升级目标
	}

	// 目标审批人已有 pending 记录时跳过，保持唯一性不变量
	existing, err := s.approvalRepo.GetPendingApproval(ctx, tenantID, record.RequestID, target)
	if err != nil {
		logger.LogError(err, "", 0, "", "service.sweeper.escalateOne", "REPO", fields)
		return
	}
	if existing != nil {
		return
	}

	ok, err := s.approvalRepo.UpdateStatusFromPending(ctx, tenantID, record.ID, approval.ApprovalStatusEscalated, map[string]interface{}{
		"comments": "auto-escalated: approval overdue",
	})
	if err != nil {
		logger.LogError(err, "", 0, "", "service.sweeper.escalateOne", "REPO", fields)
		return
	}
	if !ok {
		return // 期间已被决策
	}

	replacement := &approval.Approval{
		TenantID:   tenantID,
		RequestID:  record.RequestID,
		ApproverID: target,
		Stage:      record.Stage,
		Status:     approval.ApprovalStatusPending,
	}
	if err := s.approvalRepo.CreateApproval(ctx, replacement); err != nil {
		logger.LogError(err, "", 0, "", "service.sweeper.escalateOne", "REPO", fields)
		return
	}

	// ApprovalID 指向承接的新 pending 记录，承接记录决策落地时升级随之解决
	escalation := &approval.ApprovalEscalation{
		TenantID:       tenantID,
		ApprovalID:     replacement.ID,
		RequestID:      record.RequestID,
		FromApproverID: record.ApproverID,
		ToApproverID:   target,
		Reason:         "auto-escalated: approval overdue",
		Status:         approval.EscalationStatusPending,
		EscalatedAt:    now,
	}
	if err := s.escalationRepo.CreateEscalation(ctx, escalation); err != nil {
		logger.LogError(err, "", 0, "", "service.sweeper.escalateOne", "REPO", fields)
		return
	}

	title := s.requestTitle(ctx, tenantID, record.RequestID)
	s.notifier.SendEscalationNotice(ctx, tenantID, target, record.RequestID, replacement.ID, title)

	logger.LogInfo("Approval auto-escalated", "", 0, "", "service.sweeper.escalateOne", "", map[string]interface{}{
		"tenant_id":   tenantID,
		"approval_id": record.ID,
		"from":        record.ApproverID,
		"to":          target,
	})
}

// SendReminders 滞留审批提醒
// 抑制窗口内同一审批人同一请求只提醒一次：优先走 Redis SETNX 标记，
// Redis 不可用时回退到最近提醒记录判定
func (s *SweeperService) SendReminders(ctx context.Context) error {
	tenants, err := s.requestRepo.GetActiveTenantIDs(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	cutoff := now.Add(-time.Duration(s.cfg.ReminderThresholdHours) * time.Hour)
	window := time.Duration(s.cfg.ReminderSuppressionHours) * time.Hour

	for _, tenantID := range tenants {
		stale, err := s.approvalRepo.GetStaleApprovals(ctx, tenantID, cutoff, s.cfg.BatchSize)
		if err != nil {
			logger.LogError(err, "", 0, "", "service.sweeper.SendReminders", "REPO", map[string]interface{}{
				"tenant_id": tenantID,
			})
			continue
		}

		for _, record := range stale {
			if !s.shouldRemind(ctx, tenantID, record, now, window) {
				continue
			}
			title := s.requestTitle(ctx, tenantID, record.RequestID)
			s.notifier.SendReminder(ctx, tenantID, record.ApproverID, record.RequestID, record.ID, title)
		}
	}
	return nil
}

// shouldRemind 判定是否在抑制窗口外
func (s *SweeperService) shouldRemind(ctx context.Context, tenantID uint64, record *approval.Approval, now time.Time, window time.Duration) bool {
	allowed, err := s.reminderRepo.TryMarkReminder(ctx, tenantID, record.ApproverID, record.RequestID, window)
	if err == nil {
		return allowed
	}

	// Redis 不可用，回退数据库最近提醒记录
	logger.LogWarn("Reminder mark unavailable, falling back to notification history", "", 0, "", "", "", map[string]interface{}{
		"tenant_id": tenantID,
		"error":     err.Error(),
	})
	latest, dbErr := s.notifyRepo.GetLatestReminder(ctx, tenantID, record.ApproverID, record.RequestID)
	if dbErr != nil {
		return false
	}
	return latest == nil || now.Sub(latest.SentAt) >= window
}

// MarkOverdueRequests 超期请求标记
// overdue 不是终态，标记后请求仍可被正常审批终结
func (s *SweeperService) MarkOverdueRequests(ctx context.Context) error {
	tenants, err := s.requestRepo.GetActiveTenantIDs(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for _, tenantID := range tenants {
		candidates, err := s.requestRepo.GetOverdueCandidates(ctx, tenantID, now, s.cfg.BatchSize)
		if err != nil {
			logger.LogError(err, "", 0, "", "service.sweeper.MarkOverdueRequests", "REPO", map[string]interface{}{
				"tenant_id": tenantID,
			})
			continue
		}

		for _, request := range candidates {
			ok, err := s.requestRepo.UpdateRequestStatusFromAny(ctx, tenantID, request.ID,
				[]approval.RequestStatus{approval.RequestStatusPending, approval.RequestStatusInProgress},
				map[string]interface{}{
					"status": approval.RequestStatusOverdue,
				})
			if err != nil {
				logger.LogError(err, "", 0, "", "service.sweeper.MarkOverdueRequests", "REPO", map[string]interface{}{
					"tenant_id":  tenantID,
					"request_id": request.ID,
				})
				continue
			}
			if !ok {
				continue // 期间已终结或已标记
			}
			s.notifier.SendOverdueNotice(ctx, tenantID, request.RequesterID, request.ID, request.Title)
		}
	}
	return nil
}

// CleanupHistory 历史数据清理
// 清理已解决的升级记录与过期通知，保留窗口由配置决定
func (s *SweeperService) CleanupHistory(ctx context.Context) error {
	cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.CleanupRetentionDays)

	escalations, err := s.escalationRepo.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	notifications, err := s.notifyRepo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if escalations > 0 || notifications > 0 {
		logger.LogInfo("History cleanup finished", "", 0, "", "service.sweeper.CleanupHistory", "", map[string]interface{}{
			"escalations_deleted":   escalations,
			"notifications_deleted": notifications,
		})
	}
	return nil
}

// escalationEnabled 读取请求所属配置的升级开关
// 配置缺失或未定义升级策略时默认启用
func (s *SweeperService) escalationEnabled(ctx context.Context, tenantID, requestID uint64) bool {
	request, err := s.requestRepo.GetRequestByID(ctx, tenantID, requestID)
	if err != nil || request == nil || request.ConfigID == 0 {
		return true
	}
	config, err := s.configRepo.GetConfigurationByID(ctx, tenantID, request.ConfigID)
	if err != nil || config == nil {
		return true
	}
	settings, err := config.ParseEscalationSettings()
	if err != nil || settings == nil {
		return true
	}
	return settings.Enabled
}

// requestTitle 取请求标题用于通知文案，取不到时返回空串
func (s *SweeperService) requestTitle(ctx context.Context, tenantID, requestID uint64) string {
	request, err := s.requestRepo.GetRequestByID(ctx, tenantID, requestID)
	if err != nil || request == nil {
		return ""
	}
	return request.Title
}
