package services

import (
	"context"
	"errors"
	"strings"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/config"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/jwt"
	"loanhub/internal/pkg/metrics"
	"loanhub/internal/pkg/pagination"
	"loanhub/internal/pkg/password"
	"loanhub/internal/pkg/validate"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Account errors
var (
	ErrInvalidCredentials = domain.NewError(domain.ErrUnauthorized, "아이디 또는 비밀번호가 올바르지 않습니다")
	ErrUserInactive       = domain.NewError(domain.ErrForbidden, "비활성화된 계정입니다")
	ErrUsernameTaken      = domain.NewError(domain.ErrConflictingReference, "이미 사용 중인 아이디입니다")
	ErrEmailTaken         = domain.NewError(domain.ErrConflictingReference, "이미 사용 중인 이메일입니다")
	ErrOldPasswordWrong   = domain.NewError(domain.ErrValidation, "현재 비밀번호가 올바르지 않습니다")
	ErrWeakPassword       = domain.NewError(domain.ErrValidation, "비밀번호는 8자 이상이며 영문과 숫자를 포함해야 합니다")
	ErrCannotChangeSelf   = domain.NewError(domain.ErrForbidden, "자신의 계정 상태는 변경할 수 없습니다")
)

// AccountService handles accounts, login and profiles
type AccountService struct {
	userRepo repositories.UserRepository
	access   *AccessControl
	jwtCfg   config.JWTConfig
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      Clock
}

// NewAccountService creates a new account service
func NewAccountService(
	userRepo repositories.UserRepository,
	access *AccessControl,
	jwtCfg config.JWTConfig,
	m *metrics.Metrics,
	log *zap.Logger,
	now Clock,
) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		access:   access,
		jwtCfg:   jwtCfg,
		metrics:  m,
		log:      log,
		now:      now,
	}
}

// CreateAccountInput represents create account input
type CreateAccountInput struct {
	Username   string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	FirstName  string `json:"first_name" validate:"max=50"`
	LastName   string `json:"last_name" validate:"required,max=50"`
	Email      string `json:"email" validate:"omitempty,email,max=100"`
	Phone      string `json:"phone" validate:"omitempty,kr_phone"`
	Department string `json:"department" validate:"max=50"`
	Role       string `json:"role" validate:"required,oneof=admin branch_manager team_leader staff"`
	IsStaff    bool   `json:"is_staff"`
	BranchID   *uint  `json:"branch_id"`
	TeamID     *uint  `json:"team_id"`
	JoinDate   string `json:"join_date" validate:"omitempty,datetime=2006-01-02"`
}

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User        *models.UserResponse `json:"user"`
	AccessToken string               `json:"access_token"`
	ExpiresIn   int                  `json:"expires_in"`
}

// UpdateProfileInput represents update profile input (for self)
type UpdateProfileInput struct {
	FirstName  *string `json:"first_name" validate:"omitempty,max=50"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1,max=50"`
	Email      *string `json:"email" validate:"omitempty,email,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,kr_phone"`
	Department *string `json:"department" validate:"omitempty,max=50"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

// ListUsersInput represents list users input
type ListUsersInput struct {
	Role   string
	Search string
	Page   *pagination.Params
}

// placement resolves the branch and team of a new account. Branch managers
// and team leaders can only place accounts inside their own unit.
func (s *AccountService) placement(ctx context.Context, actor *domain.Actor, input *CreateAccountInput) (branchID, teamID *uint, err error) {
	branchID, teamID = input.BranchID, input.TeamID

	switch actor.Role {
	case domain.RoleBranchManager:
		if b, ok := actor.Affiliation.Branch(); ok {
			branchID = &b
		}
	case domain.RoleTeamLeader:
		if t, ok := actor.Affiliation.Team(); ok {
			teamID = &t
		}
		if b, ok := actor.Affiliation.Branch(); ok {
			branchID = &b
		}
	}

	if teamID != nil {
		team, err := s.userRepo.GetTeam(ctx, *teamID)
		if err != nil {
			return nil, nil, notFoundOr(err, domain.NewError(domain.ErrNotFound, "팀을 찾을 수 없습니다"))
		}
		if branchID != nil && *branchID != team.BranchID {
			return nil, nil, domain.NewError(domain.ErrConflictingReference, "팀이 선택한 지점에 속하지 않습니다")
		}
		branchID = &team.BranchID
	}
	if branchID != nil {
		if _, err := s.userRepo.GetBranch(ctx, *branchID); err != nil {
			return nil, nil, notFoundOr(err, domain.NewError(domain.ErrNotFound, "지점을 찾을 수 없습니다"))
		}
	}
	return branchID, teamID, nil
}

// CreateAccount creates an account of the requested role, subject to the role hierarchy
func (s *AccountService) CreateAccount(ctx context.Context, actor *domain.Actor, input *CreateAccountInput) (*models.UserResponse, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := s.access.CanCreateAccount(actor, domain.Role(input.Role)); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !password.ValidatePassword(input.Password) {
		return nil, ErrWeakPassword
	}
	if input.IsStaff && !actor.IsStaff {
		return nil, forbidden("스태프 권한을 부여할 수 없습니다")
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}
	if input.Email != "" {
		exists, err = s.userRepo.ExistsByEmail(ctx, input.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrEmailTaken
		}
	}

	branchID, teamID, err := s.placement(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	joinDate, err := parseDate(input.JoinDate, s.now().Location())
	if err != nil {
		return nil, err
	}
	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:   input.Username,
		Password:   hashed,
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		Email:      input.Email,
		Phone:      input.Phone,
		Department: strings.TrimSpace(input.Department),
		Role:       input.Role,
		IsStaff:    input.IsStaff,
		IsActive:   true,
		BranchID:   branchID,
		TeamID:     teamID,
		JoinDate:   joinDate,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.metrics.IncAccountCreated(input.Role)
	s.log.Info("account created",
		zap.Uint("user_id", user.ID),
		zap.String("role", input.Role),
		zap.Uint("actor_id", actor.ID))

	return user.ToResponse(), nil
}

// Login authenticates a user and issues an access token
func (s *AccountService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(input.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	actor := user.ToActor()
	sub := jwt.Subject{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		IsStaff:  user.IsStaff,
	}
	if b, ok := actor.Affiliation.Branch(); ok {
		sub.BranchID = &b
	}
	if t, ok := actor.Affiliation.Team(); ok {
		sub.TeamID = &t
	}
	token, err := jwt.GenerateAccessToken(sub, s.jwtCfg.Secret, s.jwtCfg.AccessTokenMins)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in", zap.Uint("user_id", user.ID), zap.String("role", user.Role))

	return &AuthResponse{
		User:        user.ToResponse(),
		AccessToken: token,
		ExpiresIn:   s.jwtCfg.AccessTokenMins * 60,
	}, nil
}

func (s *AccountService) self(ctx context.Context, actor *domain.Actor) (*models.User, error) {
	if actor == nil {
		return nil, unauthorized()
	}
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return user, nil
}

// GetProfile gets own profile
func (s *AccountService) GetProfile(ctx context.Context, actor *domain.Actor) (*models.UserResponse, error) {
	user, err := s.self(ctx, actor)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// UpdateProfile updates own profile
func (s *AccountService) UpdateProfile(ctx context.Context, actor *domain.Actor, input *UpdateProfileInput) (*models.UserResponse, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	user, err := s.self(ctx, actor)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email != "" && email != user.Email {
			exists, err := s.userRepo.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrEmailTaken
			}
		}
		user.Email = email
	}
	setString(&user.FirstName, input.FirstName)
	setString(&user.LastName, input.LastName)
	setString(&user.Phone, input.Phone)
	setString(&user.Department, input.Department)

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// ChangePassword changes own password
func (s *AccountService) ChangePassword(ctx context.Context, actor *domain.Actor, input *ChangePasswordInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	user, err := s.self(ctx, actor)
	if err != nil {
		return err
	}
	if !password.Verify(input.OldPassword, user.Password) {
		return ErrOldPasswordWrong
	}
	if !password.ValidatePassword(input.NewPassword) {
		return ErrWeakPassword
	}

	hashed, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.log.Info("password changed", zap.Uint("user_id", user.ID))
	return nil
}

// ListUsers lists the accounts visible to the actor
func (s *AccountService) ListUsers(ctx context.Context, actor *domain.Actor, input *ListUsersInput) (*pagination.Response, error) {
	if err := s.access.CanInitiate(actor, ActionManage); err != nil {
		return nil, err
	}
	if input.Role != "" && !domain.Role(input.Role).Valid() {
		return nil, domain.Invalid("유효하지 않은 권한입니다", map[string]string{"role": input.Role})
	}
	page := input.Page
	if page == nil {
		page = pagination.NewParams(1, pagination.DefaultLimit)
	}

	users, total, err := s.userRepo.List(ctx, repositories.UserFilter{
		Scope:  s.access.Scope(actor),
		Role:   input.Role,
		Search: strings.TrimSpace(input.Search),
		Offset: page.Offset,
		Limit:  page.Limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]*models.UserResponse, len(users))
	for i, u := range users {
		items[i] = u.ToResponse()
	}
	return pagination.NewResponse(items, page, total), nil
}

// GetUser gets an account the actor may see
func (s *AccountService) GetUser(ctx context.Context, actor *domain.Actor, userID uint) (*models.UserResponse, error) {
	if err := s.access.CanInitiate(actor, ActionView); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	if err := s.access.CanAccessUser(actor, user); err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// SetActive enables or disables an account the actor could have created
func (s *AccountService) SetActive(ctx context.Context, actor *domain.Actor, userID uint, active bool) (*models.UserResponse, error) {
	if actor == nil {
		return nil, unauthorized()
	}
	if actor.ID == userID {
		return nil, ErrCannotChangeSelf
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	if err := s.access.CanCreateAccount(actor, domain.Role(user.Role)); err != nil {
		return nil, err
	}
	if err := s.access.CanAccessUser(actor, user); err != nil {
		return nil, err
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("account status changed",
		zap.Uint("user_id", user.ID),
		zap.Bool("active", active),
		zap.Uint("actor_id", actor.ID))
	return user.ToResponse(), nil
}
