package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/config"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/metrics"
	"loanhub/internal/pkg/password"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "password123"

// a Wednesday morning in a UTC business time zone
var testNow = time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	now time.Time

	metrics    *metrics.Metrics
	cases      *LoanCaseService
	providers  *SecurityProviderService
	priorLoans *PriorLoanService
	logs       *ConsultingLogService
	comments   *CommentService
	events     *EventService
	notices    *NoticeService
	todos      *TodoService
	accounts   *AccountService
	dashboard  *DashboardService
	export     *ExportService

	branch      *models.Branch
	otherBranch *models.Branch
	teamA       *models.Team
	teamB       *models.Team
	teamC       *models.Team

	admin    *models.User // staff admin, no affiliation
	manager  *models.User // branch manager of branch
	leader   *models.User // team leader of teamA
	staff    *models.User // teamA
	peer     *models.User // teamA
	outsider *models.User // teamB, same branch
	foreign  *models.User // teamC, other branch
}

func openTestDB(t *testing.T, now func() time.Time) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: now,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	password.DefaultCost = bcrypt.MinCost

	f := &fixture{t: t, ctx: context.Background(), now: testNow}
	f.db = openTestDB(t, func() time.Time { return f.now })
	clock := func() time.Time { return f.now }
	log := zap.NewNop()
	f.metrics = metrics.New(prometheus.NewRegistry())

	workflow := domain.DefaultWorkflow()
	access := NewAccessControl(domain.DefaultRoleHierarchy())
	userRepo := repositories.NewUserRepository(f.db)
	caseRepo := repositories.NewLoanCaseRepository(f.db)
	eventRepo := repositories.NewEventRepository(f.db)

	f.cases = NewLoanCaseService(caseRepo, repositories.NewStatusChangeRepository(f.db), userRepo,
		NewLifecycleEngine(workflow), access, f.metrics, log, clock)
	f.providers = NewSecurityProviderService(f.cases, repositories.NewSecurityProviderRepository(f.db), log)
	f.priorLoans = NewPriorLoanService(f.cases, repositories.NewPriorLoanRepository(f.db), NewLTVValidator(), f.metrics, log)
	f.logs = NewConsultingLogService(f.cases, repositories.NewConsultingLogRepository(f.db), log)
	f.comments = NewCommentService(f.cases, repositories.NewCommentRepository(f.db), log)
	f.events = NewEventService(f.cases, eventRepo, log)
	f.notices = NewNoticeService(repositories.NewNoticeRepository(f.db), access, log, clock)
	f.todos = NewTodoService(f.cases, repositories.NewTodoRepository(f.db), userRepo, log)
	f.accounts = NewAccountService(userRepo, access, config.JWTConfig{Secret: "test-secret", AccessTokenMins: 60}, f.metrics, log, clock)
	f.dashboard = NewDashboardService(f.db, workflow, access, f.comments, f.notices, eventRepo, clock)
	f.export = NewExportService(caseRepo, access, log, clock)

	f.seedOrganization()
	return f
}

func (f *fixture) seedOrganization() {
	f.branch = &models.Branch{Name: "강남지점"}
	f.otherBranch = &models.Branch{Name: "부산지점"}
	require.NoError(f.t, f.db.Create(f.branch).Error)
	require.NoError(f.t, f.db.Create(f.otherBranch).Error)

	f.teamA = &models.Team{BranchID: f.branch.ID, Name: "영업1팀"}
	f.teamB = &models.Team{BranchID: f.branch.ID, Name: "영업2팀"}
	f.teamC = &models.Team{BranchID: f.otherBranch.ID, Name: "부산1팀"}
	for _, team := range []*models.Team{f.teamA, f.teamB, f.teamC} {
		require.NoError(f.t, f.db.Create(team).Error)
	}

	hash, err := password.Hash(testPassword)
	require.NoError(f.t, err)

	f.admin = f.user(hash, "admin", domain.RoleAdmin, nil, true)
	f.manager = f.user(hash, "manager", domain.RoleBranchManager, nil, false)
	f.manager.BranchID = &f.branch.ID
	require.NoError(f.t, f.db.Save(f.manager).Error)
	f.leader = f.user(hash, "leader", domain.RoleTeamLeader, f.teamA, false)
	f.staff = f.user(hash, "staff", domain.RoleStaff, f.teamA, false)
	f.peer = f.user(hash, "peer", domain.RoleStaff, f.teamA, false)
	f.outsider = f.user(hash, "outsider", domain.RoleStaff, f.teamB, false)
	f.foreign = f.user(hash, "foreign", domain.RoleStaff, f.teamC, false)
}

func (f *fixture) user(hash, username string, role domain.Role, team *models.Team, isStaff bool) *models.User {
	u := &models.User{
		Username:  username,
		Password:  hash,
		LastName:  "김",
		FirstName: username,
		Role:      string(role),
		IsStaff:   isStaff,
		IsActive:  true,
	}
	if team != nil {
		u.BranchID = &team.BranchID
		u.TeamID = &team.ID
	}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

func actorOf(u *models.User) *domain.Actor {
	return u.ToActor()
}

// supervisorOf returns a user who may manage the cases owned by u. Managers
// run their own cases, teamA staff have the team leader, everyone else the admin.
func (f *fixture) supervisorOf(u *models.User) *models.User {
	switch {
	case domain.DefaultRoleHierarchy().IsManager(domain.Role(u.Role)):
		return u
	case u.TeamID != nil && *u.TeamID == f.teamA.ID:
		return f.leader
	default:
		return f.admin
	}
}

// newCase creates a case managed by owner on behalf of its supervisor
func (f *fixture) newCase(owner *models.User, borrower string) *models.LoanCase {
	f.t.Helper()
	lc, err := f.cases.Create(f.ctx, actorOf(f.supervisorOf(owner)), &CreateCaseInput{
		CaseInput: CaseInput{BorrowerName: strPtr(borrower)},
		ManagerID: &owner.ID,
	})
	require.NoError(f.t, err)
	return lc
}

// caseInStatus creates a case and moves it to status
func (f *fixture) caseInStatus(owner *models.User, borrower string, status domain.Status) *models.LoanCase {
	f.t.Helper()
	lc := f.newCase(owner, borrower)
	lc, err := f.cases.ChangeStatus(f.ctx, actorOf(f.supervisorOf(owner)), lc.ID, string(status))
	require.NoError(f.t, err)
	return lc
}

func (f *fixture) reload(id uint) *models.LoanCase {
	f.t.Helper()
	var lc models.LoanCase
	require.NoError(f.t, f.db.Preload("PriorLoans").First(&lc, id).Error)
	return &lc
}

func (f *fixture) count(model interface{}, query string, args ...interface{}) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func uintPtr(v uint) *uint { return &v }

func boolPtr(v bool) *bool { return &v }

func float64Ptr(v float64) *float64 { return &v }
