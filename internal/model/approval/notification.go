/**
 * 模型:通知记录
 * @author: sun977
 * @date: 2025.12.20
 * @description: 通知记录表，区分提醒/超期/升级类型，提醒类型记录兼作提醒抑制的兜底依据
 * @func: Notification 结构体及 NotificationType 类型枚举
 */
package approval

import (
	"time"

	"approvalmaster/internal/model/basemodel"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeReminder   NotificationType = "reminder"   // 审批超时提醒
	NotificationTypeOverdue    NotificationType = "overdue"    // 请求超期通知
	NotificationTypeEscalation NotificationType = "escalation" // 审批升级通知
	NotificationTypeDecision   NotificationType = "decision"   // 审批结果通知
)

// Notification 通知记录表
// 发送为尽力而为，失败只记日志不回滚业务
type Notification struct {
	basemodel.BaseModel

	TenantID    uint64           `json:"tenant_id" gorm:"index;not null;comment:租户ID"`
	RecipientID uint64           `json:"recipient_id" gorm:"index:idx_notif_recipient_type,priority:1;not null;comment:接收人ID"`
	Type        NotificationType `json:"type" gorm:"size:20;index:idx_notif_recipient_type,priority:2;not null;comment:通知类型"`
	RequestID   uint64           `json:"request_id" gorm:"index;comment:关联的审批请求ID"`
	ApprovalID  uint64           `json:"approval_id" gorm:"comment:关联的审批记录ID"`
	Title       string           `json:"title" gorm:"size:200;comment:通知标题"`
	Content     string           `json:"content" gorm:"size:1000;comment:通知内容"`
	SentAt      time.Time        `json:"sent_at" gorm:"not null;comment:发送时间"`
}

// TableName 定义数据库表名
func (Notification) TableName() string {
	return "notifications"
}
