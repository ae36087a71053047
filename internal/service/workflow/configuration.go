/**
 * 服务层:工作流配置管理
 * @author: sun977
 * @date: 2025.12.20
 * @description: 工作流配置的生命周期管理(draft -> active -> archived)
 * @func:
 * 1.配置创建(初始为draft)与校验
 * 2.配置更新(归档配置不可修改,更新成功版本号+1)
 * 3.激活/归档状态流转
 * 4.配置查询与分页列表
 */
package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"approvalmaster/internal/model"
	"approvalmaster/internal/model/system"
	"approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/rule_engine"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"
)

// ConfigurationService 工作流配置服务
type ConfigurationService struct {
	repo      *workflowrepo.ConfigurationRepository
	evaluator *rule_engine.Evaluator // 仅用于规则结构校验
}

// NewConfigurationService 创建 ConfigurationService 实例
func NewConfigurationService(repo *workflowrepo.ConfigurationRepository, evaluator *rule_engine.Evaluator) *ConfigurationService {
	return &ConfigurationService{
		repo:      repo,
		evaluator: evaluator,
	}
}

// CreateConfiguration 创建工作流配置
// 新配置始终以 draft 状态落库，规则与条件先做结构校验再序列化存储
func (s *ConfigurationService) CreateConfiguration(ctx context.Context, tenantID, createdBy uint64, req *workflow.CreateConfigurationRequest) (*workflow.WorkflowConfiguration, error) {
	if req == nil {
		return nil, fmt.Errorf("configuration data cannot be nil")
	}
	if tenantID == 0 {
		return nil, system.ErrInvalidTenantID
	}

	if err := s.validateRules(req.EvaluationRules, req.StartConditions, req.CompletionConditions); err != nil {
		return nil, err
	}
	if err := validateStageDefinitions(req.StageDefinitions); err != nil {
		return nil, err
	}

	config := &workflow.WorkflowConfiguration{
		TenantID:               tenantID,
		Name:                   req.Name,
		Description:            req.Description,
		RequestTypeID:          req.RequestTypeID,
		Priority:               req.Priority,
		IsActive:               true,
		Status:                 workflow.ConfigStatusDraft,
		RequiresManualApproval: req.RequiresManualApproval,
		MaxExecutionTimeHours:  req.MaxExecutionTimeHours,
		MaxRetryCount:          req.MaxRetryCount,
		Version:                1,
		CreatedBy:              createdBy,
		UpdatedBy:              createdBy,
	}
	if config.MaxExecutionTimeHours <= 0 {
		config.MaxExecutionTimeHours = 72
	}

	var err error
	if config.EvaluationRules, err = marshalOrEmpty(req.EvaluationRules); err != nil {
		return nil, system.ErrConfigRulesMalformed
	}
	if config.StartConditions, err = marshalOrEmpty(req.StartConditions); err != nil {
		return nil, system.ErrConfigRulesMalformed
	}
	if config.CompletionConditions, err = marshalOrEmpty(req.CompletionConditions); err != nil {
		return nil, system.ErrConfigRulesMalformed
	}
	if config.StageDefinitions, err = marshalOrEmpty(req.StageDefinitions); err != nil {
		return nil, system.ErrConfigRulesMalformed
	}
	if req.EscalationSettings != nil {
		data, err := json.Marshal(req.EscalationSettings)
		if err != nil {
			return nil, system.ErrConfigRulesMalformed
		}
		config.EscalationSettings = string(data)
	}

	if err := s.repo.CreateConfiguration(ctx, config); err != nil {
		logger.LogBusinessError(err, "", 0, "", "create_configuration", "SERVICE", map[string]interface{}{
			"operation":       "create_configuration",
			"tenant_id":       tenantID,
			"request_type_id": req.RequestTypeID,
		})
		return nil, err
	}
	return config, nil
}

// GetConfiguration 获取工作流配置详情
func (s *ConfigurationService) GetConfiguration(ctx context.Context, tenantID, id uint64) (*workflow.WorkflowConfiguration, error) {
	config, err := s.repo.GetConfigurationByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, system.ErrConfigNotFound
	}
	return config, nil
}

// UpdateConfiguration 更新工作流配置
// 归档配置不可修改，更新成功后版本号+1
func (s *ConfigurationService) UpdateConfiguration(ctx context.Context, tenantID, id, updatedBy uint64, req *workflow.UpdateConfigurationRequest) (*workflow.WorkflowConfiguration, error) {
	if req == nil {
		return nil, fmt.Errorf("configuration data cannot be nil")
	}

	config, err := s.repo.GetConfigurationByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, system.ErrConfigNotFound
	}
	if config.Status == workflow.ConfigStatusArchived {
		return nil, system.ErrConfigArchived
	}

	if err := s.validateRules(req.EvaluationRules, req.StartConditions, req.CompletionConditions); err != nil {
		return nil, err
	}
	if err := validateStageDefinitions(req.StageDefinitions); err != nil {
		return nil, err
	}

	if req.Name != nil {
		config.Name = *req.Name
	}
	if req.Description != nil {
		config.Description = *req.Description
	}
	if req.Priority != nil {
		config.Priority = *req.Priority
	}
	if req.IsActive != nil {
		config.IsActive = *req.IsActive
	}
	if req.RequiresManualApproval != nil {
		config.RequiresManualApproval = *req.RequiresManualApproval
	}
	if req.MaxExecutionTimeHours != nil {
		config.MaxExecutionTimeHours = *req.MaxExecutionTimeHours
	}
	if req.MaxRetryCount != nil {
		config.MaxRetryCount = *req.MaxRetryCount
	}
	if req.EvaluationRules != nil {
		if config.EvaluationRules, err = marshalOrEmpty(req.EvaluationRules); err != nil {
			return nil, system.ErrConfigRulesMalformed
		}
	}
	if req.StartConditions != nil {
		if config.StartConditions, err = marshalOrEmpty(req.StartConditions); err != nil {
			return nil, system.ErrConfigRulesMalformed
		}
	}
	if req.CompletionConditions != nil {
		if config.CompletionConditions, err = marshalOrEmpty(req.CompletionConditions); err != nil {
			return nil, system.ErrConfigRulesMalformed
		}
	}
	if req.StageDefinitions != nil {
		if config.StageDefinitions, err = marshalOrEmpty(req.StageDefinitions); err != nil {
			return nil, system.ErrConfigRulesMalformed
		}
	}
	if req.EscalationSettings != nil {
		data, err := json.Marshal(req.EscalationSettings)
		if err != nil {
			return nil, system.ErrConfigRulesMalformed
		}
		config.EscalationSettings = string(data)
	}

	config.Version++
	config.UpdatedBy = updatedBy

	if err := s.repo.UpdateConfiguration(ctx, config); err != nil {
		logger.LogBusinessError(err, "", 0, "", "update_configuration", "SERVICE", map[string]interface{}{
			"operation": "update_configuration",
			"tenant_id": tenantID,
			"config_id": id,
		})
		return nil, err
	}
	return config, nil
}

// ActivateConfiguration 激活工作流配置
// 仅 draft 状态可激活，激活前要求阶段定义解析通过
func (s *ConfigurationService) ActivateConfiguration(ctx context.Context, tenantID, id, updatedBy uint64) error {
	config, err := s.repo.GetConfigurationByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if config == nil {
		return system.ErrConfigNotFound
	}
	if config.Status != workflow.ConfigStatusDraft {
		return system.ErrConfigNotDraft
	}

	// 激活前完整性检查：落库后的JSON必须仍可解析
	if _, err := config.ParseEvaluationRules(); err != nil {
		return system.ErrConfigRulesMalformed
	}
	if _, err := config.ParseStageDefinitions(); err != nil {
		return system.ErrConfigRulesMalformed
	}

	return s.repo.UpdateConfigurationFields(ctx, tenantID, id, map[string]interface{}{
		"status":     workflow.ConfigStatusActive,
		"updated_by": updatedBy,
	})
}

// ArchiveConfiguration 归档工作流配置
// draft 与 active 均可归档，归档后不再参与配置选择且不可修改
func (s *ConfigurationService) ArchiveConfiguration(ctx context.Context, tenantID, id, updatedBy uint64) error {
	config, err := s.repo.GetConfigurationByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if config == nil {
		return system.ErrConfigNotFound
	}
	if config.Status == workflow.ConfigStatusArchived {
		return system.ErrConfigArchived
	}

	return s.repo.UpdateConfigurationFields(ctx, tenantID, id, map[string]interface{}{
		"status":     workflow.ConfigStatusArchived,
		"updated_by": updatedBy,
	})
}

// DeleteConfiguration 删除工作流配置（软删除）
func (s *ConfigurationService) DeleteConfiguration(ctx context.Context, tenantID, id uint64) error {
	config, err := s.repo.GetConfigurationByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if config == nil {
		return system.ErrConfigNotFound
	}
	return s.repo.DeleteConfiguration(ctx, tenantID, id)
}

// ListConfigurations 分页获取工作流配置列表
func (s *ConfigurationService) ListConfigurations(ctx context.Context, tenantID uint64, req *workflow.ListConfigurationsRequest) ([]*workflow.WorkflowConfiguration, int64, error) {
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

	configs, total, err := s.repo.ListConfigurations(ctx, tenantID, req, offset, pageSize)
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "list_configurations", "SERVICE", map[string]interface{}{
			"operation": "list_configurations",
			"tenant_id": tenantID,
		})
		return nil, 0, err
	}
	return configs, total, nil
}

// EvaluateConfiguration 对配置规则做试算
// 不落任何数据，返回命中情况供配置调试使用
func (s *ConfigurationService) EvaluateConfiguration(ctx context.Context, tenantID, id uint64, data map[string]interface{}, defaultAction string) (*model.EvaluationResponse, error) {
	config, err := s.GetConfiguration(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	rules, err := config.ParseEvaluationRules()
	if err != nil {
		return nil, system.ErrConfigRulesMalformed
	}

	result := s.evaluator.Evaluate(rules, data, defaultAction)
	return &model.EvaluationResponse{
		IsValid:      result.IsValid,
		ResultAction: result.ResultAction,
		MatchedCount: len(result.MatchedRules),
		Errors:       result.Errors,
	}, nil
}

// validateRules 校验规则与条件的结构合法性
// 操作符不在封闭集内或 in/between 值形态错误时拒绝保存
func (s *ConfigurationService) validateRules(rules []rule_engine.EvaluationRule, startConds, completionConds []rule_engine.Condition) error {
	for _, rule := range rules {
		if err := s.evaluator.ValidateRule(rule); err != nil {
			return fmt.Errorf("%w: %v", system.ErrConfigRulesMalformed, err)
		}
	}
	for _, cond := range startConds {
		if err := s.evaluator.ValidateCondition(cond); err != nil {
			return fmt.Errorf("%w: %v", system.ErrConfigRulesMalformed, err)
		}
	}
	for _, cond := range completionConds {
		if err := s.evaluator.ValidateCondition(cond); err != nil {
			return fmt.Errorf("%w: %v", system.ErrConfigRulesMalformed, err)
		}
	}
	return nil
}

// validateStageDefinitions 校验阶段定义
// 阶段编号从1开始连续递增，每个阶段至少一个审批人
func validateStageDefinitions(stages []workflow.StageDefinition) error {
	for i, stage := range stages {
		if stage.Stage != i+1 {
			return fmt.Errorf("%w: stage numbers must start at 1 and increase consecutively", system.ErrInvalidStage)
		}
		if len(stage.ApproverIDs) == 0 {
			return fmt.Errorf("%w: stage %d has no approvers", system.ErrInvalidStage, stage.Stage)
		}
	}
	return nil
}

// marshalOrEmpty 序列化为JSON字符串，nil切片返回空串
func marshalOrEmpty(v interface{}) (string, error) {
	switch val := v.(type) {
	case []rule_engine.EvaluationRule:
		if len(val) == 0 {
			return "", nil
		}
	case []rule_engine.Condition:
		if len(val) == 0 {
			return "", nil
		}
	case []workflow.StageDefinition:
		if len(val) == 0 {
			return "", nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
