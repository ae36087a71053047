/*
 * 调度管理处理器：后台任务管理HTTP接口处理
 * @author: sun977
 * @date: 2025.12.20
 * @description: 提供后台调度任务的查看与手动触发接口，仅限管理端使用
 * @func:
 * 1.后台任务列表接口
 * 2.后台任务手动触发接口
 */

//  核心HTTP接口:
//  	GET  /api/v1/admin/scheduler/jobs - 获取已注册的后台任务列表
//  	POST /api/v1/admin/scheduler/jobs/:name/run - 手动触发指定后台任务

package system

import (
	"net/http"

	"approvalmaster/internal/model"
	"approvalmaster/internal/pkg/logger"
	schedulersvc "approvalmaster/internal/service/scheduler"

	"github.com/gin-gonic/gin"
)

// SchedulerHandler 调度管理处理器
type SchedulerHandler struct {
	scheduler *schedulersvc.Scheduler
}

// NewSchedulerHandler 创建 SchedulerHandler
func NewSchedulerHandler(scheduler *schedulersvc.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

// ListJobs 获取已注册的后台任务列表
func (h *SchedulerHandler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    gin.H{"jobs": h.scheduler.JobNames()},
	})
}

// TriggerJob 手动触发指定后台任务
func (h *SchedulerHandler) TriggerJob(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "error",
			Message: "Job name is required",
		})
		return
	}

	if err := h.scheduler.TriggerNow(c.Request.Context(), name); err != nil {
		c.JSON(http.StatusNotFound, model.APIResponse{
			Code:    http.StatusNotFound,
			Status:  "error",
			Message: "Failed to trigger job",
			Error:   err.Error(),
		})
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "trigger_job",
		"option":    "Scheduler.TriggerNow",
		"func_name": "handler.system.scheduler.TriggerJob",
		"job_name":  name,
	}).Info("后台任务手动触发成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Job triggered successfully",
	})
}
