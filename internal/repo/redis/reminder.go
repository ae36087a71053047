/**
 * 提醒仓库层:提醒抑制标记数据访问
 * @author: sun977
 * @date: 2025.12.20
 * @description: 提醒抑制标记缓存层(Redis存储,适合多实例部署)
 * @func:单纯数据访问,不应该包含业务逻辑
 * @note: SETNX+TTL 实现抑制窗口，标记失效时由数据库通知记录兜底
 */
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ReminderRepository Redis提醒抑制标记存储库
type ReminderRepository struct {
	client *redis.Client
}

// NewReminderRepository 创建提醒抑制标记存储库实例
func NewReminderRepository(client *redis.Client) *ReminderRepository {
	return &ReminderRepository{
		client: client,
	}
}

// TryMarkReminder 尝试写入提醒抑制标记
// SETNX 语义：标记不存在时写入并返回 true（允许发送提醒），
// 标记已存在时返回 false（抑制窗口内，跳过发送）
func (r *ReminderRepository) TryMarkReminder(ctx context.Context, tenantID, recipientID, requestID uint64, window time.Duration) (bool, error) {
	key := r.getReminderKey(tenantID, recipientID, requestID)

	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder: %w", err)
	}

	return ok, nil
}

// HasReminderMark 检查提醒抑制标记是否存在
func (r *ReminderRepository) HasReminderMark(ctx context.Context, tenantID, recipientID, requestID uint64) (bool, error) {
	key := r.getReminderKey(tenantID, recipientID, requestID)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check reminder mark: %w", err)
	}

	return exists > 0, nil
}

// ClearReminderMark 清除提醒抑制标记
// 请求终结后调用，避免残留标记影响同一审批人的后续请求
func (r *ReminderRepository) ClearReminderMark(ctx context.Context, tenantID, recipientID, requestID uint64) error {
	key := r.getReminderKey(tenantID, recipientID, requestID)

	err := r.client.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to clear reminder mark: %w", err)
	}

	return nil
}

// ClearRequestReminderMarks 清除请求下所有审批人的抑制标记
func (r *ReminderRepository) ClearRequestReminderMarks(ctx context.Context, tenantID, requestID uint64) error {
	pattern := r.getRequestReminderPattern(tenantID, requestID)

	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("failed to get reminder keys: %w", err)
	}

	if len(keys) == 0 {
		return nil // 没有标记需要清除
	}

	err = r.client.Del(ctx, keys...).Err()
	if err != nil {
		return fmt.Errorf("failed to clear request reminder marks: %w", err)
	}

	return nil
}

// 私有方法：生成各种键名

// getReminderKey 生成提醒抑制标记键[KEY:reminder:tenant:{tenantID}:request:{requestID}:recipient:{recipientID}]
func (r *ReminderRepository) getReminderKey(tenantID, recipientID, requestID uint64) string {
	return fmt.Sprintf("reminder:tenant:%d:request:%d:recipient:%d", tenantID, requestID, recipientID)
}

// getRequestReminderPattern 生成请求级提醒标记模式键[用于批量清除]
func (r *ReminderRepository) getRequestReminderPattern(tenantID, requestID uint64) string {
	return fmt.Sprintf("reminder:tenant:%d:request:%d:recipient:*", tenantID, requestID)
}

// Ping 检查Redis连接
func (r *ReminderRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
