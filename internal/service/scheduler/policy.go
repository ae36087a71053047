/**
 * 服务层:升级目标策略
 * @author: sun977
 * @date: 2025.12.20
 * @description: 自动升级时决定目标审批人的可插拔策略
 * @func: EscalationTargetPolicy 接口与默认实现
 */
package scheduler

import (
	"context"

	"approvalmaster/internal/model/approval"
)

// EscalationTargetPolicy 升级目标策略
// 返回滞留审批应升级到的审批人ID；返回原审批人表示无可用目标，
// 该条审批本轮跳过不升级
type EscalationTargetPolicy interface {
	Target(ctx context.Context, tenantID uint64, record *approval.Approval) (uint64, error)
}

// StaticTargetPolicy 静态映射策略
// 按审批人ID查表决定升级目标，表中没有的审批人返回其本人（即不升级）
type StaticTargetPolicy struct {
	targets map[uint64]uint64 // approverID -> 升级目标
}

// NewStaticTargetPolicy 创建静态映射策略实例
func NewStaticTargetPolicy(targets map[uint64]uint64) *StaticTargetPolicy {
	return &StaticTargetPolicy{targets: targets}
}

// Target 查表返回升级目标
func (p *StaticTargetPolicy) Target(ctx context.Context, tenantID uint64, record *approval.Approval) (uint64, error) {
	if target, ok := p.targets[record.ApproverID]; ok {
		return target, nil
	}
	return record.ApproverID, nil
}

// NoopTargetPolicy 空策略，始终不升级
// 未接入组织架构数据时的默认策略
type NoopTargetPolicy struct{}

// NewNoopTargetPolicy 创建空策略实例
func NewNoopTargetPolicy() *NoopTargetPolicy {
	return &NoopTargetPolicy{}
}

// Target 返回原审批人，升级扫描据此跳过
func (p *NoopTargetPolicy) Target(ctx context.Context, tenantID uint64, record *approval.Approval) (uint64, error) {
	return record.ApproverID, nil
}
