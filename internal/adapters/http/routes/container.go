package routes

import (
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/config"
	"loanhub/internal/core/domain"
	"loanhub/internal/core/services"
	"loanhub/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds the wired application services
type Container struct {
	DB         *gorm.DB
	Now        services.Clock
	Cases      *services.LoanCaseService
	Providers  *services.SecurityProviderService
	PriorLoans *services.PriorLoanService
	Logs       *services.ConsultingLogService
	Comments   *services.CommentService
	Events     *services.EventService
	Notices    *services.NoticeService
	Todos      *services.TodoService
	Accounts   *services.AccountService
	Dashboard  *services.DashboardService
	Export     *services.ExportService
}

// NewContainer builds repositories and services. The workflow and role
// hierarchy are the built-in defaults; metrics register on reg.
func NewContainer(db *gorm.DB, cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*Container, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	now := services.SystemClock(loc)
	m := metrics.New(reg)

	workflow := domain.DefaultWorkflow()
	access := services.NewAccessControl(domain.DefaultRoleHierarchy())
	engine := services.NewLifecycleEngine(workflow)

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	caseRepo := repositories.NewLoanCaseRepository(db)
	historyRepo := repositories.NewStatusChangeRepository(db)
	providerRepo := repositories.NewSecurityProviderRepository(db)
	priorLoanRepo := repositories.NewPriorLoanRepository(db)
	logRepo := repositories.NewConsultingLogRepository(db)
	commentRepo := repositories.NewCommentRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	noticeRepo := repositories.NewNoticeRepository(db)
	todoRepo := repositories.NewTodoRepository(db)

	// Services
	cases := services.NewLoanCaseService(caseRepo, historyRepo, userRepo, engine, access, m, log, now)
	comments := services.NewCommentService(cases, commentRepo, log)
	notices := services.NewNoticeService(noticeRepo, access, log, now)

	return &Container{
		DB:         db,
		Now:        now,
		Cases:      cases,
		Providers:  services.NewSecurityProviderService(cases, providerRepo, log),
		PriorLoans: services.NewPriorLoanService(cases, priorLoanRepo, services.NewLTVValidator(), m, log),
		Logs:       services.NewConsultingLogService(cases, logRepo, log),
		Comments:   comments,
		Events:     services.NewEventService(cases, eventRepo, log),
		Notices:    notices,
		Todos:      services.NewTodoService(cases, todoRepo, userRepo, log),
		Accounts:   services.NewAccountService(userRepo, access, cfg.JWT, m, log, now),
		Dashboard:  services.NewDashboardService(db, workflow, access, comments, notices, eventRepo, now),
		Export:     services.NewExportService(caseRepo, access, log, now),
	}, nil
}
