/*
 * 审批请求处理器：审批请求HTTP接口处理
 * @author: sun977
 * @date: 2025.12.20
 * @description: 处理审批请求提交、取消与查询相关的HTTP请求
 * @func:
 * 1.审批请求提交接口(含配置选择与自动路由)
 * 2.审批请求取消接口
 * 3.审批请求查询接口(详情/完整视图/列表)
 */

//  核心HTTP接口:
//  	POST /api/v1/approval/requests - 提交审批请求
//  	POST /api/v1/approval/requests/:id/cancel - 取消审批请求
//  	GET  /api/v1/approval/requests/:id - 获取审批请求详情
//  	GET  /api/v1/approval/requests/:id/detail - 获取审批请求完整视图(含审批与升级记录)
//  	GET  /api/v1/approval/requests - 获取审批请求列表

package approval

import (
	"errors"
	"net/http"
	"strconv"

	"approvalmaster/internal/model"
	approvalmodel "approvalmaster/internal/model/approval"
	"approvalmaster/internal/model/system"
	"approvalmaster/internal/pkg/logger"
	approvalsvc "approvalmaster/internal/service/approval"

	"github.com/gin-gonic/gin"
)

// RequestHandler 审批请求处理器
type RequestHandler struct {
	intake *approvalsvc.IntakeService
	query  *approvalsvc.QueryService
}

// NewRequestHandler 创建 RequestHandler
func NewRequestHandler(intake *approvalsvc.IntakeService, query *approvalsvc.QueryService) *RequestHandler {
	return &RequestHandler{
		intake: intake,
		query:  query,
	}
}

// SubmitRequest 提交审批请求
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	var req approvalmodel.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	tenantID := c.GetUint64("tenant_id")
	userID := c.GetUint64("user_id")

	request, err := h.intake.SubmitRequest(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		respondError(c, "Failed to submit request", err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "submit_request",
		"option":    "IntakeService.SubmitRequest",
		"func_name": "handler.approval.request.SubmitRequest",
	}).Info("审批请求提交成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Request submitted successfully",
		Data:    request,
	})
}

// CancelRequest 取消审批请求
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// 取消原因可选，空请求体也合法
	var req approvalmodel.CancelRequestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}
	}

	if err := h.intake.CancelRequest(c.Request.Context(), c.GetUint64("tenant_id"), id, c.GetUint64("user_id"), req.Reason); err != nil {
		respondError(c, "Failed to cancel request", err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "cancel_request",
		"option":    "IntakeService.CancelRequest",
		"func_name": "handler.approval.request.CancelRequest",
	}).Info("审批请求取消成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Request cancelled successfully",
	})
}

// GetRequest 获取审批请求详情
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	request, err := h.query.GetRequest(c.Request.Context(), c.GetUint64("tenant_id"), id)
	if err != nil {
		respondError(c, "Failed to get request", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    request,
	})
}

// GetRequestDetail 获取审批请求完整视图
func (h *RequestHandler) GetRequestDetail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.query.GetRequestDetail(c.Request.Context(), c.GetUint64("tenant_id"), id)
	if err != nil {
		respondError(c, "Failed to get request detail", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    detail,
	})
}

// ListRequests 获取审批请求列表
func (h *RequestHandler) ListRequests(c *gin.Context) {
	req := &approvalmodel.ListRequestsRequest{}
	req.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if v := c.Query("status"); v != "" {
		status := approvalmodel.RequestStatus(v)
		req.Status = &status
	}
	if v := c.Query("request_type_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			req.RequestTypeID = &id
		}
	}
	if v := c.Query("requester_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			req.RequesterID = &id
		}
	}
	if v := c.Query("keyword"); v != "" {
		req.Keyword = &v
	}

	requests, total, err := h.query.ListRequests(c.Request.Context(), c.GetUint64("tenant_id"), req)
	if err != nil {
		respondError(c, "Failed to list requests", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    model.NewPaginationResponse(total, req.Page, req.PageSize, requests),
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
	case errors.Is(err, system.ErrRequestNotFound),
		errors.Is(err, system.ErrConfigNotFound):
		status = http.StatusNotFound
	// 审批记录不存在与已处置同归409，决策接口对外不区分两者
	case errors.Is(err, system.ErrRequestTerminal),
		errors.Is(err, system.ErrApprovalNotFound),
		errors.Is(err, system.ErrApprovalAlreadyPending),
		errors.Is(err, system.ErrEscalationPending):
		status = http.StatusConflict
	case errors.Is(err, system.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, system.ErrInvalidStage),
		errors.Is(err, system.ErrConfigRulesMalformed),
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
