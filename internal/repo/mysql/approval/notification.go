/*
 * 通知仓库层：通知记录数据访问
 * @author: sun977
 * @date: 2025.12.20
 * @description: 单纯数据访问，不应该包含业务逻辑
 * @func:
 * 1.创建通知记录
 * 2.最近提醒查询（提醒抑制兜底）
 * 3.历史通知清理
 */

//  基础CRUD操作:
//  	CreateNotification - 创建通知记录
//  	ListNotificationsByRecipient - 分页获取接收人的通知列表
//  高级查询功能:
//  	GetLatestReminder - 获取接收人在请求上最近一次提醒
//  历史清理:
//  	DeleteSentBefore - 清理指定时间前的通知记录

package approval

import (
	"context"
	"time"

	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/pkg/logger"

	"gorm.io/gorm"
)

// NotificationRepository 通知仓库结构体
type NotificationRepository struct {
	db *gorm.DB // 数据库连接
}

// NewNotificationRepository 创建通知仓库实例
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{
		db: db,
	}
}

// CreateNotification 创建通知记录
// @param ctx 上下文
// @param notification 通知记录对象
// @return 错误信息
func (r *NotificationRepository) CreateNotification(ctx context.Context, notification *approval.Notification) error {
	notification.CreatedAt = time.Now()
	notification.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Create(notification).Error
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "notification_create", "REPO", map[string]interface{}{
			"operation":    "create_notification",
			"tenant_id":    notification.TenantID,
			"recipient_id": notification.RecipientID,
			"type":         notification.Type,
			"timestamp":    logger.NowFormatted(),
		})
		return err
	}
	return nil
}

// GetLatestReminder 获取接收人在请求上最近一次提醒
// Redis 抑制标记失效时的数据库兜底判定，
// 未找到返回 nil 而不是错误，让业务层处理
// @param ctx 上下文
// @param tenantID 租户ID
// @param recipientID 接收人ID
// @param requestID 请求ID
// @return 通知记录对象和错误信息
func (r *NotificationRepository) GetLatestReminder(ctx context.Context, tenantID, recipientID, requestID uint64) (*approval.Notification, error) {
	var notification approval.Notification
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND recipient_id = ? AND request_id = ? AND type = ?",
			tenantID, recipientID, requestID, approval.NotificationTypeReminder).
		Order("sent_at DESC").
		First(&notification).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogBusinessError(err, "", 0, "", "notification_latest_reminder", "REPO", map[string]interface{}{
			"operation":    "get_latest_reminder",
			"tenant_id":    tenantID,
			"recipient_id": recipientID,
			"request_id":   requestID,
			"timestamp":    logger.NowFormatted(),
		})
		return nil, err
	}
	return &notification, nil
}

// ListNotificationsByRecipient 分页获取接收人的通知列表
// @param ctx 上下文
// @param tenantID 租户ID
// @param recipientID 接收人ID
// @param offset 偏移量
// @param limit 每页数量
// @return 通知列表、总数和错误信息
func (r *NotificationRepository) ListNotificationsByRecipient(ctx context.Context, tenantID, recipientID uint64, offset, limit int) ([]*approval.Notification, int64, error) {
	var notifications []*approval.Notification
	var total int64

	query := r.db.WithContext(ctx).
		Model(&approval.Notification{}).
		Where("tenant_id = ? AND recipient_id = ?", tenantID, recipientID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Offset(offset).Limit(limit).
		Order("sent_at DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// DeleteSentBefore 清理指定时间前的通知记录
// 历史数据清理任务使用
// @param ctx 上下文
// @param cutoff 保留分界点
// @return 删除数量和错误信息
func (r *NotificationRepository) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("sent_at < ?", cutoff).
		Delete(&approval.Notification{})
	if result.Error != nil {
		logger.LogBusinessError(result.Error, "", 0, "", "notification_cleanup", "REPO", map[string]interface{}{
			"operation": "delete_sent_before",
			"cutoff":    cutoff,
			"timestamp": logger.NowFormatted(),
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
