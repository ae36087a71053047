package approval

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	approvalmodel "approvalmaster/internal/model/approval"
	workflowmodel "approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/utils"
	approvalrepo "approvalmaster/internal/repo/mysql/approval"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"
	approvalsvc "approvalmaster/internal/service/approval"
	"approvalmaster/internal/service/notification"
	workflowsvc "approvalmaster/internal/service/workflow"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// setupApprovalHandlerRouter 构建审批决策接口测试路由
// 身份中间件以固定租户与用户代替JWT解析
func setupApprovalHandlerRouter(t *testing.T, userID uint64) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&workflowmodel.WorkflowConfiguration{},
		&workflowmodel.WorkflowInstance{},
		&workflowmodel.WorkflowInstanceTransition{},
		&approvalmodel.Request{},
		&approvalmodel.Approval{},
		&approvalmodel.ApprovalEscalation{},
		&approvalmodel.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	clock := utils.NewFixedClock(time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC))
	requestRepo := approvalrepo.NewRequestRepository(db)
	approvalRepo := approvalrepo.NewApprovalRepository(db)
	escalationRepo := approvalrepo.NewEscalationRepository(db)
	notifyRepo := approvalrepo.NewNotificationRepository(db)
	configRepo := workflowrepo.NewConfigurationRepository(db)
	instanceSvc := workflowsvc.NewInstanceService(workflowrepo.NewInstanceRepository(db), clock)
	notifier := notification.NewNotificationService(notifyRepo, clock)

	engine := approvalsvc.NewEngineService(requestRepo, approvalRepo, escalationRepo, configRepo, instanceSvc, notifier, clock)
	query := approvalsvc.NewQueryService(requestRepo, approvalRepo, escalationRepo)
	handler := NewApprovalHandler(engine, query)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("tenant_id", uint64(1))
		c.Set("user_id", userID)
		c.Next()
	})
	r.POST("/api/v1/approval/approvals/:id/approve", handler.Approve)
	r.POST("/api/v1/approval/approvals/:id/reject", handler.Reject)
	return r, db
}

// TestApprovalHandler_DecisionConflictShape 测试不存在与已处置的审批决策响应同形
func TestApprovalHandler_DecisionConflictShape(t *testing.T) {
	r, db := setupApprovalHandlerRouter(t, 20)

	// 同阶段留一个未处置的审批人，避免首次通过后请求终结
	request := &approvalmodel.Request{
		TenantID: 1, RequestTypeID: 1, Title: "报销审批", RequesterID: 10,
		Status: approvalmodel.RequestStatusInProgress, CurrentStage: 1,
	}
	assert.NoError(t, db.Create(request).Error)
	record := &approvalmodel.Approval{
		TenantID: 1, RequestID: request.ID, ApproverID: 20, Stage: 1,
		Status: approvalmodel.ApprovalStatusPending,
	}
	assert.NoError(t, db.Create(record).Error)
	sibling := &approvalmodel.Approval{
		TenantID: 1, RequestID: request.ID, ApproverID: 21, Stage: 1,
		Status: approvalmodel.ApprovalStatusPending,
	}
	assert.NoError(t, db.Create(sibling).Error)

	approve := func(id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/approval/approvals/"+id+"/approve", nil)
		r.ServeHTTP(w, req)
		return w
	}

	// 不存在的审批ID
	missing := approve("9999")
	assert.Equal(t, http.StatusConflict, missing.Code)

	// 正常决策一次后重复决策
	recordID := strconv.FormatUint(record.ID, 10)
	first := approve(recordID)
	assert.Equal(t, http.StatusOK, first.Code)

	repeated := approve(recordID)
	assert.Equal(t, http.StatusConflict, repeated.Code)

	// 两种409响应体完全一致，调用方无法据此判断记录是否存在
	assert.Equal(t, repeated.Body.String(), missing.Body.String())
}
