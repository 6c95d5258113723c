package services

import (
	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/core/domain"
)

// Action is a coarse operation class checked before object-level access
type Action int

const (
	// ActionView reads cases and their children. Staff stop here.
	ActionView Action = iota
	// ActionEdit mutates cases and their children; manager roles only
	ActionEdit
	// ActionManage covers events, notices and manager reassignment
	ActionManage
)

// AccessControl answers role and ownership questions about an actor.
// It trusts the actor's role and affiliation as given.
type AccessControl struct {
	hierarchy *domain.RoleHierarchy
}

// NewAccessControl creates an access control engine with the given hierarchy
func NewAccessControl(hierarchy *domain.RoleHierarchy) *AccessControl {
	return &AccessControl{hierarchy: hierarchy}
}

func unauthorized() error {
	return domain.NewError(domain.ErrUnauthorized, "로그인이 필요합니다")
}

func forbidden(msg string) error {
	return domain.NewError(domain.ErrForbidden, msg)
}

// CanInitiate checks whether the actor's role may perform the action at all
func (a *AccessControl) CanInitiate(actor *domain.Actor, action Action) error {
	if actor == nil {
		return unauthorized()
	}
	if !actor.Role.Valid() {
		return forbidden("알 수 없는 권한입니다")
	}
	if action != ActionView && !a.hierarchy.IsManager(actor.Role) {
		return forbidden("관리 권한이 없습니다")
	}
	return nil
}

// CanAccess checks object-level access to a case. The case manager must be
// loaded along with its team. A branch manager without a branch and a team
// leader without a team fall back to their own cases.
func (a *AccessControl) CanAccess(actor *domain.Actor, lc *models.LoanCase) error {
	if actor == nil {
		return unauthorized()
	}
	if a.allowed(actor, lc) {
		return nil
	}
	return forbidden("해당 건에 대한 권한이 없습니다")
}

func (a *AccessControl) allowed(actor *domain.Actor, lc *models.LoanCase) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}
	if lc.Manager == nil {
		return false
	}
	owner := lc.Manager.Affiliation()

	switch actor.Role {
	case domain.RoleBranchManager:
		if branch, ok := actor.Affiliation.Branch(); ok {
			caseBranch, ok := owner.Branch()
			return ok && caseBranch == branch
		}
	case domain.RoleTeamLeader:
		if team, ok := actor.Affiliation.Team(); ok {
			caseTeam, ok := owner.Team()
			return ok && caseTeam == team
		}
	}
	return lc.Manager.ID == actor.ID
}

// CanAccessUser checks whether the actor may see or manage another account
func (a *AccessControl) CanAccessUser(actor *domain.Actor, user *models.User) error {
	if actor == nil {
		return unauthorized()
	}
	target := &models.LoanCase{Manager: user}
	if a.allowed(actor, target) {
		return nil
	}
	return forbidden("해당 사용자에 대한 권한이 없습니다")
}

// CanCreateAccount checks the role hierarchy for account creation.
// Creating an admin also requires is_staff, checked before the hierarchy.
func (a *AccessControl) CanCreateAccount(actor *domain.Actor, target domain.Role) error {
	if actor == nil {
		return unauthorized()
	}
	if !target.Valid() {
		return domain.Invalid("유효하지 않은 권한입니다", map[string]string{"role": string(target)})
	}
	if target == domain.RoleAdmin && !actor.IsStaff {
		return forbidden("관리자 계정 생성 권한이 없습니다")
	}
	if !a.hierarchy.CanCreate(actor.Role, target) {
		return forbidden(actor.Role.Label() + " 권한으로는 " + target.Label() + " 계정을 생성할 수 없습니다")
	}
	return nil
}

// Scope returns the case visibility of the actor, mirroring CanAccess
func (a *AccessControl) Scope(actor *domain.Actor) domain.Scope {
	if actor == nil {
		return domain.Scope{Kind: domain.ScopeNone}
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return domain.Scope{Kind: domain.ScopeAll}
	case domain.RoleBranchManager:
		if branch, ok := actor.Affiliation.Branch(); ok {
			return domain.Scope{Kind: domain.ScopeBranch, ID: branch}
		}
	case domain.RoleTeamLeader:
		if team, ok := actor.Affiliation.Team(); ok {
			return domain.Scope{Kind: domain.ScopeTeam, ID: team}
		}
	}
	return domain.Scope{Kind: domain.ScopeOwn, ID: actor.ID}
}
