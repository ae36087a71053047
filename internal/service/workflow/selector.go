/**
 * 服务层:工作流配置选择器
 * @author: sun977
 * @date: 2025.12.20
 * @description: 按请求类型与请求数据从激活配置集合中决出唯一配置
 * @func:
 * 1.候选集过滤(租户+请求类型+active+启用)
 * 2.启动条件评估(AND组内/OR组间)
 * 3.优先级决胜(Priority值大者优先,相同取最近更新)
 * 4.单配置的启动/完成条件评估
 */
package workflow

import (
	"context"

	"approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/rule_engine"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"
)

// SelectorService 配置选择器服务
type SelectorService struct {
	repo      *workflowrepo.ConfigurationRepository
	evaluator *rule_engine.Evaluator
}

// NewSelectorService 创建 SelectorService 实例
func NewSelectorService(repo *workflowrepo.ConfigurationRepository, evaluator *rule_engine.Evaluator) *SelectorService {
	return &SelectorService{
		repo:      repo,
		evaluator: evaluator,
	}
}

// SelectConfiguration 为请求选择工作流配置
// 候选集为租户下同请求类型的全部激活配置，逐个评估启动条件，
// 候选集按 Priority 降序、UpdatedAt 降序预排，首个命中者即胜出。
// 无任何配置命中时返回 nil，由调用方决定兜底行为
func (s *SelectorService) SelectConfiguration(ctx context.Context, tenantID uint64, req *workflow.SelectConfigurationRequest) (*workflow.WorkflowConfiguration, error) {
	if req == nil {
		return nil, nil
	}

	candidates, err := s.repo.GetActiveConfigurations(ctx, tenantID, req.RequestTypeID)
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "select_configuration", "SERVICE", map[string]interface{}{
			"operation":       "select_configuration",
			"tenant_id":       tenantID,
			"request_type_id": req.RequestTypeID,
		})
		return nil, err
	}

	for _, config := range candidates {
		conditions, err := config.ParseStartConditions()
		if err != nil {
			// 畸形启动条件的配置跳过，不中断选择流程
			logger.LogWarn("Skipping configuration with malformed start conditions", "", 0, "", "", "", map[string]interface{}{
				"config_id": config.ID,
				"tenant_id": tenantID,
				"error":     err.Error(),
			})
			continue
		}

		// 无启动条件视为无条件命中
		if len(conditions) == 0 || s.evaluator.EvaluateConditions(conditions, req.Data) {
			return config, nil
		}
	}

	return nil, nil
}

// EvaluateStartConditions 评估配置的启动条件
// 空条件集视为满足
func (s *SelectorService) EvaluateStartConditions(config *workflow.WorkflowConfiguration, data map[string]interface{}) (bool, error) {
	conditions, err := config.ParseStartConditions()
	if err != nil {
		return false, err
	}
	return len(conditions) == 0 || s.evaluator.EvaluateConditions(conditions, data), nil
}

// EvaluateCompletionConditions 评估配置的完成条件
// 空条件集视为满足
func (s *SelectorService) EvaluateCompletionConditions(config *workflow.WorkflowConfiguration, data map[string]interface{}) (bool, error) {
	conditions, err := config.ParseCompletionConditions()
	if err != nil {
		return false, err
	}
	return len(conditions) == 0 || s.evaluator.EvaluateConditions(conditions, data), nil
}
