/**
 * 服务层:通知发送
 * @author: sun977
 * @date: 2025.12.20
 * @description: 审批流程中的通知投递(fire-and-forget,失败只记日志不向上传播)
 * @func:
 * 1.提醒/逾期/升级/决策四类通知的构造与落库
 * 2.通知失败不影响主流程
 */
package notification

import (
	"context"
	"fmt"

	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/utils"
	approvalrepo "approvalmaster/internal/repo/mysql/approval"
)

// Notifier 通知发送接口
// 所有方法均为尽力投递，失败不返回错误
type Notifier interface {
	SendReminder(ctx context.Context, tenantID, recipientID, requestID, approvalID uint64, title string)
	SendOverdueNotice(ctx context.Context, tenantID, recipientID, requestID uint64, title string)
	SendEscalationNotice(ctx context.Context, tenantID, recipientID, requestID, approvalID uint64, title string)
	SendDecisionNotice(ctx context.Context, tenantID, recipientID, requestID uint64, title, content string)
}

// NotificationService 通知服务
// 当前实现将通知持久化为站内通知记录，外部渠道(邮件/IM)可在此扩展
type NotificationService struct {
	repo  *approvalrepo.NotificationRepository
	clock utils.Clock
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *approvalrepo.NotificationRepository, clock utils.Clock) *NotificationService {
	return &NotificationService{
		repo:  repo,
		clock: clock,
	}
}

// SendReminder 发送审批提醒通知
func (s *NotificationService) SendReminder(ctx context.Context, tenantID, recipientID, requestID, approvalID uint64, title string) {
	s.deliver(ctx, &approval.Notification{
		TenantID:    tenantID,
		RecipientID: recipientID,
		RequestID:   requestID,
		ApprovalID:  approvalID,
		Type:        approval.NotificationTypeReminder,
		Title:       fmt.Sprintf("待审批提醒: %s", title),
		Content:     fmt.Sprintf("审批请求 #%d (%s) 等待您处理", requestID, title),
	})
}

// SendOverdueNotice 发送逾期通知
func (s *NotificationService) SendOverdueNotice(ctx context.Context, tenantID, recipientID, requestID uint64, title string) {
	s.deliver(ctx, &approval.Notification{
		TenantID:    tenantID,
		RecipientID: recipientID,
		RequestID:   requestID,
		Type:        approval.NotificationTypeOverdue,
		Title:       fmt.Sprintf("审批已逾期: %s", title),
		Content:     fmt.Sprintf("审批请求 #%d (%s) 已超过截止时间，仍可继续处理", requestID, title),
	})
}

// SendEscalationNotice 发送升级通知
func (s *NotificationService) SendEscalationNotice(ctx context.Context, tenantID, recipientID, requestID, approvalID uint64, title string) {
	s.deliver(ctx, &approval.Notification{
		TenantID:    tenantID,
		RecipientID: recipientID,
		RequestID:   requestID,
		ApprovalID:  approvalID,
		Type:        approval.NotificationTypeEscalation,
		Title:       fmt.Sprintf("审批升级: %s", title),
		Content:     fmt.Sprintf("审批请求 #%d (%s) 已升级至您处理", requestID, title),
	})
}

// SendDecisionNotice 发送决策结果通知
func (s *NotificationService) SendDecisionNotice(ctx context.Context, tenantID, recipientID, requestID uint64, title, content string) {
	s.deliver(ctx, &approval.Notification{
		TenantID:    tenantID,
		RecipientID: recipientID,
		RequestID:   requestID,
		Type:        approval.NotificationTypeDecision,
		Title:       title,
		Content:     content,
	})
}

// deliver 落库投递，失败只记日志
func (s *NotificationService) deliver(ctx context.Context, notification *approval.Notification) {
	notification.SentAt = s.clock.Now()
	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		logger.LogWarn("Notification delivery failed", "", 0, "", "", "", map[string]interface{}{
			"tenant_id":    notification.TenantID,
			"recipient_id": notification.RecipientID,
			"request_id":   notification.RequestID,
			"type":         notification.Type,
			"error":        err.Error(),
		})
	}
}
