package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"approvalmaster/internal/config"
	"approvalmaster/internal/model/approval"
	workflowmodel "approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/utils"
	approvalrepo "approvalmaster/internal/repo/mysql/approval"
	workflowrepo "approvalmaster/internal/repo/mysql/workflow"
	redisrepo "approvalmaster/internal/repo/redis"
	"approvalmaster/internal/service/notification"

	"github.com/glebarez/sqlite"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// captureNotifier 测试用通知捕获器
type captureNotifier struct {
	mu          sync.Mutex
	reminders   []uint64 // 收到提醒的审批ID
	overdue     []uint64 // 收到超期通知的请求ID
	escalations []uint64 // 收到升级通知的审批ID
	decisions   []string // 决策通知内容
}

func (n *captureNotifier) SendReminder(ctx context.Context, tenantID, recipientID, requestID, approvalID uint64, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, approvalID)
}

func (n *captureNotifier) SendOverdueNotice(ctx context.Context, tenantID, recipientID, requestID uint64, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.overdue = append(n.overdue, requestID)
}

func (n *captureNotifier) SendEscalationNotice(ctx context.Context, tenantID, recipientID, requestID, approvalID uint64, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.escalations = append(n.escalations, approvalID)
}

func (n *captureNotifier) SendDecisionNotice(ctx context.Context, tenantID, recipientID, requestID uint64, title, content string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.decisions = append(n.decisions, content)
}

// sweeperTestEnv 扫描任务测试环境
type sweeperTestEnv struct {
	db             *gorm.DB
	clock          *utils.FixedClock
	requestRepo    *approvalrepo.RequestRepository
	approvalRepo   *approvalrepo.ApprovalRepository
	escalationRepo *approvalrepo.EscalationRepository
	notifyRepo     *approvalrepo.NotificationRepository
	configRepo     *workflowrepo.ConfigurationRepository
	reminderRepo   *redisrepo.ReminderRepository
}

// setupSweeperTestEnv 初始化扫描任务测试环境
// 时钟固定在真实时间72小时之后，使刚写入的审批记录落在滞留窗口内；
// Redis 指向不可达地址，提醒抑制走数据库回退路径
func setupSweeperTestEnv(t *testing.T) *sweeperTestEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&workflowmodel.WorkflowConfiguration{},
		&approval.Request{},
		&approval.Approval{},
		&approval.ApprovalEscalation{},
		&approval.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})

	return &sweeperTestEnv{
		db:             db,
		clock:          utils.NewFixedClock(time.Now().Add(72 * time.Hour)),
		requestRepo:    approvalrepo.NewRequestRepository(db),
		approvalRepo:   approvalrepo.NewApprovalRepository(db),
		escalationRepo: approvalrepo.NewEscalationRepository(db),
		notifyRepo:     approvalrepo.NewNotificationRepository(db),
		configRepo:     workflowrepo.NewConfigurationRepository(db),
		reminderRepo:   redisrepo.NewReminderRepository(client),
	}
}

func testSchedulerConfig() *config.SchedulerConfig {
	return &config.SchedulerConfig{
		EscalationInterval:       time.Minute,
		ReminderInterval:         time.Minute,
		OverdueInterval:          time.Minute,
		CleanupInterval:          time.Minute,
		EscalationThresholdHours: 24,
		ReminderThresholdHours:   8,
		ReminderSuppressionHours: 4,
		CleanupRetentionDays:     90,
		BatchSize:                200,
	}
}

func (env *sweeperTestEnv) newSweeper(policy EscalationTargetPolicy, notifier notification.Notifier) *SweeperService {
	return NewSweeperService(env.requestRepo, env.approvalRepo, env.escalationRepo,
		env.notifyRepo, env.configRepo, env.reminderRepo, policy, notifier, env.clock, testSchedulerConfig())
}

// seedStaleApproval 写入一条滞留中的审批请求与待处理审批记录
func (env *sweeperTestEnv) seedStaleApproval(t *testing.T, approverID uint64, configID uint64) (*approval.Request, *approval.Approval) {
	due := env.clock.Now().Add(24 * time.Hour)
	request := &approval.Request{
		TenantID:      1,
		RequestTypeID: 1,
		Title:         "滞留中的报销",
		RequesterID:   10,
		Status:        approval.RequestStatusInProgress,
		CurrentStage:  1,
		ConfigID:      configID,
		DueDate:       &due,
	}
	if err := env.db.Create(request).Error; err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}
	record := &approval.Approval{
		TenantID:   1,
		RequestID:  request.ID,
		ApproverID: approverID,
		Stage:      1,
		Status:     approval.ApprovalStatusPending,
	}
	if err := env.db.Create(record).Error; err != nil {
		t.Fatalf("failed to seed approval: %v", err)
	}
	return request, record
}

// TestSweeperService_RunAutoEscalation 测试滞留审批自动升级与幂等重跑
func TestSweeperService_RunAutoEscalation(t *testing.T) {
	env := setupSweeperTestEnv(t)
	ctx := context.Background()

	request, record := env.seedStaleApproval(t, 20, 0)

	notifier := &captureNotifier{}
	sweeper := env.newSweeper(NewStaticTargetPolicy(map[uint64]uint64{20: 40}), notifier)

	err := sweeper.RunAutoEscalation(ctx)
	assert.NoError(t, err)

	// 原记录升级，目标审批人获得新 pending 记录
	var escalated approval.Approval
	assert.NoError(t, env.db.First(&escalated, record.ID).Error)
	assert.Equal(t, approval.ApprovalStatusEscalated, escalated.Status)

	var replacement approval.Approval
	err = env.db.Where("request_id = ? AND approver_id = ? AND status = ?",
		request.ID, uint64(40), approval.ApprovalStatusPending).First(&replacement).Error
	assert.NoError(t, err)

	var escalations []*approval.ApprovalEscalation
	assert.NoError(t, env.db.Find(&escalations).Error)
	assert.Len(t, escalations, 1)
	assert.Equal(t, replacement.ID, escalations[0].ApprovalID)
	assert.Equal(t, approval.EscalationStatusPending, escalations[0].Status)
	assert.Len(t, notifier.escalations, 1)

	// 重跑不产生新升级：承接记录有未解决升级，且策略无40的下一跳
	err = sweeper.RunAutoEscalation(ctx)
	assert.NoError(t, err)
	assert.NoError(t, env.db.Find(&escalations).Error)
	assert.Len(t, escalations, 1)
}

// TestSweeperService_EscalationNoTarget 测试策略给不出目标时跳过
func TestSweeperService_EscalationNoTarget(t *testing.T) {
	env := setupSweeperTestEnv(t)
	ctx := context.Background()

	_, record := env.seedStaleApproval(t, 20, 0)

	sweeper := env.newSweeper(NewNoopTargetPolicy(), &captureNotifier{})
	err := sweeper.RunAutoEscalation(ctx)
	assert.NoError(t, err)

	var got approval.Approval
	assert.NoError(t, env.db.First(&got, record.ID).Error)
	assert.Equal(t, approval.ApprovalStatusPending, got.Status)
}

// TestSweeperService_EscalationDisabledByConfig 测试配置关闭升级时跳过
func TestSweeperService_EscalationDisabledByConfig(t *testing.T) {
	env := setupSweeperTestEnv(t)
	ctx := context.Background()

	cfg := &workflowmodel.WorkflowConfiguration{
		TenantID:           1,
		Name:               "no_escalation",
		RequestTypeID:      1,
		Status:             workflowmodel.ConfigStatusActive,
		IsActive:           true,
		EscalationSettings: `{"enabled":false,"threshold_hours":24}`,
		Version:            1,
	}
	assert.NoError(t, env.db.Create(cfg).Error)

	_, record := env.seedStaleApproval(t, 20, cfg.ID)

	sweeper := env.newSweeper(NewStaticTargetPolicy(map[uint64]uint64{20: 40}), &captureNotifier{})
	err := sweeper.RunAutoEscalation(ctx)
	assert.NoError(t, err)

	var got approval.Approval
	assert.NoError(t, env.db.First(&got, record.ID).Error)
	assert.Equal(t, approval.ApprovalStatusPending, got.Status)
}

// TestSweeperService_EscalationTargetBusy 测试目标审批人已有待处理记录时跳过
func TestSweeperService_EscalationTargetBusy(t *testing.T) {
	env := setupSweeperTestEnv(t)
	ctx := context.Background()

	request, record := env.seedStaleApproval(t, 20, 0)
	busy := &approval.Approval{
		TenantID:   1,
		RequestID:  request.ID,
		ApproverID: 40,
		Stage:      1,
		Status:     approval.ApprovalStatusPending,
	}
	assert.NoError(t, env.db.Create(busy).Error)

	sweeper := env.newSweeper(NewStaticTargetPolicy(map[uint64]uint64{20: 40}), &captureNotifier{})
	err := sweeper.RunAutoEscalation(ctx)
	assert.NoError(t, err)

	var got approval.Approval
	assert.NoError(t, env.db.First(&got, record.ID).Error)
	assert.Equal(t, approval.ApprovalStatusPending, got.Status)
}

// TestSweeperService_EscalationSkipsTerminalRequest 测试终态请求遗留的待处理记录不参与升级
func TestSweeperService_EscalationSkipsTerminalRequest(t *testing.T) {
	env := setupSweeperTestEnv(t)
	ctx := context.Background()

	// 取消请求时遗留的 pending 审批记录
	cancelled, leftover := env.seedStaleApproval(t, 20, 0)
	assert.NoError(t, env.db.Model(&approval.Request{}).
		Where("id = ?", cancelled.ID).
		Update("status", approval.RequestStatusCancelled).Error)

	// 另一条活跃请求保证租户仍在扫描范围内
	env.seedStaleApproval(t, 21, 0)

	notifier := &captureNotifier{}
	sweeper := env.newSweeper(NewStaticTargetPolicy(map[uint64]uint64{20: 40}), notifier)

	err := sweeper.RunAutoEscalation(ctx)
	assert.NoError(t, err)

	// 遗留记录保持 pending，没有升级记录和承接记录产生
	var got approval.Approval
	assert.NoError(t, env.db.First(&got, leftover.ID).Error)
	assert.Equal(t, approval.ApprovalStatusPending, got.Status)

	var escalationCount int64
	assert.NoError(t, env.db.Model(&approval.ApprovalEscalation{}).Count(&escalationCount).Error)
	assert.Equal(t, int64(0), escalationCount)
	assert.Empty(t, notifier.escalations)
}

// TestSweeperService_SendReminders 测试提醒发送与抑制窗口(数据库回退路径)
func TestSweeperService_SendReminders(t *testing.T) {
	env := setupSweeperTestEnv(t)
	ctx := context.Background()

	env.seedStaleApproval(t, 20, 0)

	// 使用真实通知服务落库，抑制判定依赖最近提醒记录
	notifier := notification.NewNotificationService(env.notifyRepo, env.clock)
	sweeper := env.newSweeper(NewNoopTargetPolicy(), notifier)

	countReminders := func() int64 {
		var count int64
		assert.NoError(t, env.db.Model(&approval.Notification{}).
			Where("type = ?", approval.NotificationTypeReminder).Count(&count).Error)
		return count
	}

	err := sweeper.SendReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), countReminders())

	// 抑制窗口内不重复提醒
	err = sweeper.SendReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), countReminders())

	// 窗口过后再次提醒
	env.clock.Advance(5 * time.Hour)
	err = sweeper.SendReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), countReminders())
}

// TestSweeperService_MarkOverdueRequests 测试超期标记与重复标记防护
func TestSweeperService_MarkOverdueRequests(t *testing.T) {
	env := setupSweeperTestEnv(t)
	ctx := context.Background()

	pastDue := env.clock.Now().Add(-time.Hour)
	active := &approval.Request{
		TenantID: 1, RequestTypeID: 1, Title: "超期报销", RequesterID: 10,
		Status: approval.RequestStatusInProgress, DueDate: &pastDue,
	}
	assert.NoError(t, env.db.Create(active).Error)
	done := &approval.Request{
		TenantID: 1, RequestTypeID: 1, Title: "已完成报销", RequesterID: 10,
		Status: approval.RequestStatusCompleted, DueDate: &pastDue,
	}
	assert.NoError(t, env.db.Create(done).Error)

	notifier := &captureNotifier{}
	sweeper := env.newSweeper(NewNoopTargetPolicy(), notifier)

	err := sweeper.MarkOverdueRequests(ctx)
	assert.NoError(t, err)

	var got approval.Request
	assert.NoError(t, env.db.First(&got, active.ID).Error)
	assert.Equal(t, approval.RequestStatusOverdue, got.Status)
	assert.Len(t, notifier.overdue, 1)

	// 终态请求不受影响(复用结构体会把旧主键带进查询条件，需用新变量)
	var untouched approval.Request
	assert.NoError(t, env.db.First(&untouched, done.ID).Error)
	assert.Equal(t, approval.RequestStatusCompleted, untouched.Status)

	// 重跑不再重复通知
	err = sweeper.MarkOverdueRequests(ctx)
	assert.NoError(t, err)
	assert.Len(t, notifier.overdue, 1)
}

// TestSweeperService_CleanupHistory 测试历史数据清理保留窗口
func TestSweeperService_CleanupHistory(t *testing.T) {
	env := setupSweeperTestEnv(t)
	ctx := context.Background()

	now := env.clock.Now()
	oldResolved := now.AddDate(0, 0, -100)
	recentResolved := now.AddDate(0, 0, -10)

	rows := []*approval.ApprovalEscalation{
		{TenantID: 1, ApprovalID: 1, RequestID: 1, FromApproverID: 20, ToApproverID: 40,
			Status: approval.EscalationStatusResolved, EscalatedAt: oldResolved, ResolvedAt: &oldResolved},
		{TenantID: 1, ApprovalID: 2, RequestID: 2, FromApproverID: 20, ToApproverID: 40,
			Status: approval.EscalationStatusResolved, EscalatedAt: recentResolved, ResolvedAt: &recentResolved},
		{TenantID: 1, ApprovalID: 3, RequestID: 3, FromApproverID: 20, ToApproverID: 40,
			Status: approval.EscalationStatusPending, EscalatedAt: oldResolved},
	}
	for _, row := range rows {
		assert.NoError(t, env.db.Create(row).Error)
	}
	notifications := []*approval.Notification{
		{TenantID: 1, RecipientID: 20, RequestID: 1, Type: approval.NotificationTypeReminder,
			Title: "旧提醒", SentAt: oldResolved},
		{TenantID: 1, RecipientID: 20, RequestID: 2, Type: approval.NotificationTypeReminder,
			Title: "新提醒", SentAt: recentResolved},
	}
	for _, row := range notifications {
		assert.NoError(t, env.db.Create(row).Error)
	}

	sweeper := env.newSweeper(NewNoopTargetPolicy(), &captureNotifier{})
	err := sweeper.CleanupHistory(ctx)
	assert.NoError(t, err)

	// 保留窗口外的已解决升级与通知被清理，未解决升级不动
	var escalationCount int64
	assert.NoError(t, env.db.Model(&approval.ApprovalEscalation{}).Count(&escalationCount).Error)
	assert.Equal(t, int64(2), escalationCount)

	var notificationCount int64
	assert.NoError(t, env.db.Model(&approval.Notification{}).Count(&notificationCount).Error)
	assert.Equal(t, int64(1), notificationCount)
}
