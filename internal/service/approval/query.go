/**
 * 服务层:审批查询
 * @author: sun977
 * @date: 2025.12.20
 * @description: 审批请求/审批记录的只读查询
 * @func:
 * 1.请求详情(含审批记录与升级历史)
 * 2.请求分页列表
 * 3.审批人待办分页列表
 */
package approval

import (
	"context"

	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/model/system"
	"approvalmaster/internal/pkg/logger"
	approvalrepo "approvalmaster/internal/repo/mysql/approval"
)

// RequestDetail 审批请求详情聚合
type RequestDetail struct {
	Request     *approval.Request             `json:"request"`     // 请求本体
	Approvals   []*approval.Approval          `json:"approvals"`   // 全部审批记录
	Escalations []*approval.ApprovalEscalation `json:"escalations"` // 升级历史
}

// QueryService 审批查询服务
type QueryService struct {
	requestRepo    *approvalrepo.RequestRepository
	approvalRepo   *approvalrepo.ApprovalRepository
	escalationRepo *approvalrepo.EscalationRepository
}

// NewQueryService 创建 QueryService 实例
func NewQueryService(
	requestRepo *approvalrepo.RequestRepository,
	approvalRepo *approvalrepo.ApprovalRepository,
	escalationRepo *approvalrepo.EscalationRepository,
) *QueryService {
	return &QueryService{
		requestRepo:    requestRepo,
		approvalRepo:   approvalRepo,
		escalationRepo: escalationRepo,
	}
}

// GetRequest 获取审批请求
func (s *QueryService) GetRequest(ctx context.Context, tenantID, requestID uint64) (*approval.Request, error) {
	request, err := s.requestRepo.GetRequestByID(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, system.ErrRequestNotFound
	}
	return request, nil
}

// GetRequestDetail 获取请求详情（请求+审批记录+升级历史）
func (s *QueryService) GetRequestDetail(ctx context.Context, tenantID, requestID uint64) (*RequestDetail, error) {
	request, err := s.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}

	approvals, err := s.approvalRepo.ListApprovalsByRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	escalations, err := s.escalationRepo.ListEscalationsByRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}

	return &RequestDetail{
		Request:     request,
		Approvals:   approvals,
		Escalations: escalations,
	}, nil
}

// ListRequests 分页获取审批请求列表
func (s *QueryService) ListRequests(ctx context.Context, tenantID uint64, req *approval.ListRequestsRequest) ([]*approval.Request, int64, error) {
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

	requests, total, err := s.requestRepo.ListRequests(ctx, tenantID, req, offset, pageSize)
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "list_requests", "SERVICE", map[string]interface{}{
			"operation": "list_requests",
			"tenant_id": tenantID,
		})
		return nil, 0, err
	}
	return requests, total, nil
}

// GetPendingApprovals 分页获取审批人的待办列表
func (s *QueryService) GetPendingApprovals(ctx context.Context, tenantID, approverID uint64, page, pageSize int) ([]*approval.Approval, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	records, total, err := s.approvalRepo.GetPendingApprovalsPage(ctx, tenantID, approverID, offset, pageSize)
	if err != nil {
		logger.LogBusinessError(err, "", 0, "", "get_pending_approvals", "SERVICE", map[string]interface{}{
			"operation":   "get_pending_approvals",
			"tenant_id":   tenantID,
			"approver_id": approverID,
		})
		return nil, 0, err
	}
	return records, total, nil
}
