/*
 * 工作流配置处理器：配置管理HTTP接口处理
 * @author: sun977
 * @date: 2025.12.20
 * @description: 处理工作流配置相关的HTTP请求和响应
 * @func:
 * 1.配置CRUD操作接口
 * 2.配置生命周期控制接口(激活/归档)
 * 3.配置选择与规则试算接口
 */

//  核心HTTP接口:
//  	POST   /api/v1/workflow/configurations - 创建工作流配置
//  	GET    /api/v1/workflow/configurations/:id - 获取工作流配置详情
//  	PUT    /api/v1/workflow/configurations/:id - 更新工作流配置
//  	DELETE /api/v1/workflow/configurations/:id - 删除工作流配置
//  	GET    /api/v1/workflow/configurations - 获取工作流配置列表
//  生命周期接口:
//  	POST   /api/v1/workflow/configurations/:id/activate - 激活配置
//  	POST   /api/v1/workflow/configurations/:id/archive - 归档配置
//  选择与试算接口:
//  	POST   /api/v1/workflow/configurations/select - 按请求数据选择配置
//  	POST   /api/v1/workflow/configurations/:id/evaluate - 规则试算

package workflow

import (
	"errors"
	"net/http"
	"strconv"

	"approvalmaster/internal/model"
	"approvalmaster/internal/model/system"
	workflowmodel "approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/logger"
	workflowsvc "approvalmaster/internal/service/workflow"

	"github.com/gin-gonic/gin"
)

// ConfigurationHandler 工作流配置处理器
type ConfigurationHandler struct {
	service       *workflowsvc.ConfigurationService
	selector      *workflowsvc.SelectorService
	defaultAction string // 试算接口的兜底动作
}

// NewConfigurationHandler 创建 ConfigurationHandler
func NewConfigurationHandler(service *workflowsvc.ConfigurationService, selector *workflowsvc.SelectorService, defaultAction string) *ConfigurationHandler {
	return &ConfigurationHandler{
		service:       service,
		selector:      selector,
		defaultAction: defaultAction,
	}
}

// CreateConfiguration 创建工作流配置
func (h *ConfigurationHandler) CreateConfiguration(c *gin.Context) {
	var req workflowmodel.CreateConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	tenantID := c.GetUint64("tenant_id")
	userID := c.GetUint64("user_id")

	config, err := h.service.CreateConfiguration(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		respondError(c, "Failed to create configuration", err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "create_configuration",
		"option":    "ConfigurationService.CreateConfiguration",
		"func_name": "handler.workflow.configuration.CreateConfiguration",
	}).Info("工作流配置创建成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Configuration created successfully",
		Data:    config,
	})
}

// GetConfiguration 获取工作流配置详情
func (h *ConfigurationHandler) GetConfiguration(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	config, err := h.service.GetConfiguration(c.Request.Context(), c.GetUint64("tenant_id"), id)
	if err != nil {
		respondError(c, "Failed to get configuration", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    config,
	})
}

// UpdateConfiguration 更新工作流配置
func (h *ConfigurationHandler) UpdateConfiguration(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req workflowmodel.UpdateConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	config, err := h.service.UpdateConfiguration(c.Request.Context(), c.GetUint64("tenant_id"), id, c.GetUint64("user_id"), &req)
	if err != nil {
		respondError(c, "Failed to update configuration", err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "update_configuration",
		"option":    "ConfigurationService.UpdateConfiguration",
		"func_name": "handler.workflow.configuration.UpdateConfiguration",
	}).Info("工作流配置更新成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Configuration updated successfully",
		Data:    config,
	})
}

// DeleteConfiguration 删除工作流配置
func (h *ConfigurationHandler) DeleteConfiguration(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteConfiguration(c.Request.Context(), c.GetUint64("tenant_id"), id); err != nil {
		respondError(c, "Failed to delete configuration", err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "delete_configuration",
		"option":    "ConfigurationService.DeleteConfiguration",
		"func_name": "handler.workflow.configuration.DeleteConfiguration",
	}).Info("工作流配置删除成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Configuration deleted successfully",
	})
}

// ListConfigurations 获取工作流配置列表
func (h *ConfigurationHandler) ListConfigurations(c *gin.Context) {
	req := &workflowmodel.ListConfigurationsRequest{}
	req.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if v := c.Query("request_type_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			req.RequestTypeID = &id
		}
	}
	if v := c.Query("status"); v != "" {
		status := workflowmodel.ConfigStatus(v)
		req.Status = &status
	}
	if v := c.Query("keyword"); v != "" {
		req.Keyword = &v
	}

	configs, total, err := h.service.ListConfigurations(c.Request.Context(), c.GetUint64("tenant_id"), req)
	if err != nil {
		respondError(c, "Failed to list configurations", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    model.NewPaginationResponse(total, req.Page, req.PageSize, configs),
	})
}

// ActivateConfiguration 激活工作流配置
func (h *ConfigurationHandler) ActivateConfiguration(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.ActivateConfiguration(c.Request.Context(), c.GetUint64("tenant_id"), id, c.GetUint64("user_id")); err != nil {
		respondError(c, "Failed to activate configuration", err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "activate_configuration",
		"option":    "ConfigurationService.ActivateConfiguration",
		"func_name": "handler.workflow.configuration.ActivateConfiguration",
	}).Info("工作流配置激活成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Configuration activated successfully",
	})
}

// ArchiveConfiguration 归档工作流配置
func (h *ConfigurationHandler) ArchiveConfiguration(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.ArchiveConfiguration(c.Request.Context(), c.GetUint64("tenant_id"), id, c.GetUint64("user_id")); err != nil {
		respondError(c, "Failed to archive configuration", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Configuration archived successfully",
	})
}

// SelectConfiguration 按请求数据选择配置
func (h *ConfigurationHandler) SelectConfiguration(c *gin.Context) {
	var req workflowmodel.SelectConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	config, err := h.selector.SelectConfiguration(c.Request.Context(), c.GetUint64("tenant_id"), &req)
	if err != nil {
		respondError(c, "Failed to select configuration", err)
		return
	}
	if config == nil {
		c.JSON(http.StatusNotFound, model.APIResponse{
			Code:    http.StatusNotFound,
			Status:  "error",
			Message: "No configuration matched",
		})
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    config,
	})
}

// EvaluateConfiguration 配置规则试算
func (h *ConfigurationHandler) EvaluateConfiguration(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var data map[string]interface{}
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.service.EvaluateConfiguration(c.Request.Context(), c.GetUint64("tenant_id"), id, data, h.defaultAction)
	if err != nil {
		respondError(c, "Failed to evaluate configuration", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    result,
	})
}

// parseIDParam 解析路径中的数字ID参数
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		badRequest(c, "Invalid "+name+" parameter", err)
		return 0, false
	}
	return id, true
}

// badRequest 返回400响应
func badRequest(c *gin.Context, message string, err error) {
	resp := model.APIResponse{
		Code:    http.StatusBadRequest,
		Status:  "error",
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

// respondError 按错误类型映射HTTP状态码
func respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, system.ErrConfigNotFound),
		errors.Is(err, system.ErrInstanceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, system.ErrConfigArchived),
		errors.Is(err, system.ErrConfigNotDraft):
		status = http.StatusConflict
	case errors.Is(err, system.ErrConfigRulesMalformed),
		errors.Is(err, system.ErrInvalidStage),
		errors.Is(err, system.ErrInvalidTenantID),
		system.IsValidationError(err):
		status = http.StatusBadRequest
	}
	c.JSON(status, model.APIResponse{
		Code:    status,
		Status:  "error",
		Message: message,
		Error:   err.Error(),
	})
}
