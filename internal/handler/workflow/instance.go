/*
 * 工作流实例处理器：实例追踪HTTP接口处理
 * @author: sun977
 * @date: 2025.12.20
 * @description: 处理工作流实例查询与流转轨迹相关的HTTP请求
 * @func:
 * 1.实例详情查询接口
 * 2.实例流转轨迹查询接口
 * 3.实例列表查询接口
 */

//  核心HTTP接口:
//  	GET /api/v1/workflow/instances/:instance_id - 获取工作流实例详情
//  	GET /api/v1/workflow/instances/:instance_id/transitions - 获取实例流转轨迹
//  	GET /api/v1/workflow/instances - 获取工作流实例列表

package workflow

import (
	"net/http"
	"strconv"

	"approvalmaster/internal/model"
	workflowmodel "approvalmaster/internal/model/workflow"
	workflowsvc "approvalmaster/internal/service/workflow"

	"github.com/gin-gonic/gin"
)

// InstanceHandler 工作流实例处理器
type InstanceHandler struct {
	service *workflowsvc.InstanceService
}

// NewInstanceHandler 创建 InstanceHandler
func NewInstanceHandler(service *workflowsvc.InstanceService) *InstanceHandler {
	return &InstanceHandler{service: service}
}

// GetInstance 获取工作流实例详情
func (h *InstanceHandler) GetInstance(c *gin.Context) {
	instanceID := c.Param("instance_id")
	if instanceID == "" {
		badRequest(c, "Instance ID is required", nil)
		return
	}

	instance, err := h.service.GetInstance(c.Request.Context(), c.GetUint64("tenant_id"), instanceID)
	if err != nil {
		respondError(c, "Failed to get instance", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    instance,
	})
}

// GetInstanceTrace 获取实例流转轨迹
func (h *InstanceHandler) GetInstanceTrace(c *gin.Context) {
	instanceID := c.Param("instance_id")
	if instanceID == "" {
		badRequest(c, "Instance ID is required", nil)
		return
	}

	instance, transitions, err := h.service.GetInstanceTrace(c.Request.Context(), c.GetUint64("tenant_id"), instanceID)
	if err != nil {
		respondError(c, "Failed to get instance trace", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data: gin.H{
			"instance":    instance,
			"transitions": transitions,
		},
	})
}

// ListInstances 获取工作流实例列表
func (h *InstanceHandler) ListInstances(c *gin.Context) {
	req := &workflowmodel.ListInstancesRequest{}
	req.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if v := c.Query("status"); v != "" {
		status := workflowmodel.InstanceStatus(v)
		req.Status = &status
	}
	if v := c.Query("config_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			req.ConfigID = &id
		}
	}
	if v := c.Query("request_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			req.RequestID = &id
		}
	}

	instances, total, err := h.service.ListInstances(c.Request.Context(), c.GetUint64("tenant_id"), req)
	if err != nil {
		respondError(c, "Failed to list instances", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    model.NewPaginationResponse(total, req.Page, req.PageSize, instances),
	})
}
