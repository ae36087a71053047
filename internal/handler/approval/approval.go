/*
 * 审批决策处理器：审批记录与决策HTTP接口处理
 * @author: sun977
 * @date: 2025.12.20
 * @description: 处理审批记录创建、通过/拒绝决策与升级相关的HTTP请求
 * @func:
 * 1.审批记录创建接口
 * 2.审批决策接口(通过/拒绝，含并发竞争处理)
 * 3.审批升级接口
 * 4.待办审批列表接口
 */

//  核心HTTP接口:
//  	POST /api/v1/approval/approvals - 创建审批记录
//  	POST /api/v1/approval/approvals/:id/approve - 通过审批
//  	POST /api/v1/approval/approvals/:id/reject - 拒绝审批
//  	POST /api/v1/approval/approvals/:id/escalate - 升级审批
//  	GET  /api/v1/approval/approvals/pending - 获取当前用户待办审批列表

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

// ApprovalHandler 审批决策处理器
type ApprovalHandler struct {
	engine *approvalsvc.EngineService
	query  *approvalsvc.QueryService
}

// NewApprovalHandler 创建 ApprovalHandler
func NewApprovalHandler(engine *approvalsvc.EngineService, query *approvalsvc.QueryService) *ApprovalHandler {
	return &ApprovalHandler{
		engine: engine,
		query:  query,
	}
}

// CreateApproval 创建审批记录
func (h *ApprovalHandler) CreateApproval(c *gin.Context) {
	var req approvalmodel.CreateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	record, err := h.engine.CreateApproval(c.Request.Context(), c.GetUint64("tenant_id"), &req)
	if err != nil {
		respondError(c, "Failed to create approval", err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "create_approval",
		"option":    "EngineService.CreateApproval",
		"func_name": "handler.approval.approval.CreateApproval",
	}).Info("审批记录创建成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Approval created successfully",
		Data:    record,
	})
}

// Approve 通过审批
func (h *ApprovalHandler) Approve(c *gin.Context) {
	h.decide(c, "approve")
}

// Reject 拒绝审批
func (h *ApprovalHandler) Reject(c *gin.Context) {
	h.decide(c, "reject")
}

// decide 执行审批决策，竞争失败返回409
func (h *ApprovalHandler) decide(c *gin.Context, action string) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// 决策说明可选，空请求体也合法
	var req approvalmodel.DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}
	}

	tenantID := c.GetUint64("tenant_id")
	userID := c.GetUint64("user_id")

	var result *model.DecisionResponse
	var err error
	if action == "approve" {
		result, err = h.engine.Approve(c.Request.Context(), tenantID, id, userID, &req)
	} else {
		result, err = h.engine.Reject(c.Request.Context(), tenantID, id, userID, &req)
	}
	if err != nil {
		// 不存在的审批与已被处置的审批对外同形返回，响应不暴露记录是否存在
		if errors.Is(err, system.ErrApprovalNotFound) {
			decisionConflict(c, &model.DecisionResponse{OK: false, Message: "approval already decided"})
			return
		}
		respondError(c, "Failed to "+action+" approval", err)
		return
	}

	// 竞争失败:该审批已被并发请求先行处置
	if !result.OK {
		decisionConflict(c, result)
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": action + "_approval",
		"option":    "EngineService.Approve/Reject",
		"func_name": "handler.approval.approval.decide",
	}).Info("审批决策处理成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Decision recorded successfully",
		Data:    result,
	})
}

// Escalate 升级审批
func (h *ApprovalHandler) Escalate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req approvalmodel.EscalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.engine.Escalate(c.Request.Context(), c.GetUint64("tenant_id"), id, req.ToApproverID, req.Reason, c.GetUint64("user_id"))
	if err != nil {
		if errors.Is(err, system.ErrApprovalNotFound) {
			decisionConflict(c, &model.DecisionResponse{OK: false, Message: "approval already decided"})
			return
		}
		respondError(c, "Failed to escalate approval", err)
		return
	}

	if !result.OK {
		decisionConflict(c, result)
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": "escalate_approval",
		"option":    "EngineService.Escalate",
		"func_name": "handler.approval.approval.Escalate",
	}).Info("审批升级处理成功")

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Approval escalated successfully",
		Data:    result,
	})
}

// decisionConflict 返回409决策冲突响应
func decisionConflict(c *gin.Context, result *model.DecisionResponse) {
	c.JSON(http.StatusConflict, model.APIResponse{
		Code:    http.StatusConflict,
		Status:  "error",
		Message: result.Message,
		Data:    result,
	})
}

// GetPendingApprovals 获取当前用户待办审批列表
func (h *ApprovalHandler) GetPendingApprovals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	approvals, total, err := h.query.GetPendingApprovals(c.Request.Context(), c.GetUint64("tenant_id"), c.GetUint64("user_id"), page, pageSize)
	if err != nil {
		respondError(c, "Failed to list pending approvals", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Success",
		Data:    model.NewPaginationResponse(total, page, pageSize, approvals),
	})
}
