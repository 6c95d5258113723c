package domain

// Role represents user role in the system
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleBranchManager Role = "branch_manager"
	RoleTeamLeader    Role = "team_leader"
	RoleStaff         Role = "staff"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBranchManager, RoleTeamLeader, RoleStaff:
		return true
	}
	return false
}

// Label returns the display name used by the web client
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "관리자"
	case RoleBranchManager:
		return "지점장"
	case RoleTeamLeader:
		return "팀장"
	case RoleStaff:
		return "직원"
	}
	return string(r)
}

// AffiliationKind tells which organizational unit a user belongs to.
type AffiliationKind int

const (
	Unaffiliated AffiliationKind = iota
	BranchAffiliated
	TeamAffiliated
)

// Affiliation is the organizational placement of a user. A team always sits
// inside a branch, so TeamAffiliated carries both ids.
type Affiliation struct {
	Kind     AffiliationKind
	branchID uint
	teamID   uint
}

// NoAffiliation returns the zero affiliation
func NoAffiliation() Affiliation {
	return Affiliation{Kind: Unaffiliated}
}

// InBranch places a user directly in a branch
func InBranch(branchID uint) Affiliation {
	return Affiliation{Kind: BranchAffiliated, branchID: branchID}
}

// InTeam places a user in a team of the given branch
func InTeam(branchID, teamID uint) Affiliation {
	return Affiliation{Kind: TeamAffiliated, branchID: branchID, teamID: teamID}
}

// Branch returns the branch id if the affiliation has one
func (a Affiliation) Branch() (uint, bool) {
	if a.Kind == Unaffiliated || a.branchID == 0 {
		return 0, false
	}
	return a.branchID, true
}

// Team returns the team id if the affiliation is a team
func (a Affiliation) Team() (uint, bool) {
	if a.Kind != TeamAffiliated {
		return 0, false
	}
	return a.teamID, true
}

// Actor is the authenticated identity performing an operation.
// A nil *Actor means the request is unauthenticated.
type Actor struct {
	ID          uint
	Username    string
	Role        Role
	IsStaff     bool
	Affiliation Affiliation
}

// Status is a loan case workflow state
type Status string

const (
	StatusInquiry        Status = "단순조회중"
	StatusCreditCheck    Status = "신용조회중"
	StatusCollectingDocs Status = "서류수취중"
	StatusReview         Status = "심사중"
	StatusApproved       Status = "승인"
	StatusPendingSigning Status = "자서예정"
	StatusPendingPayout  Status = "기표예정"
	StatusProofOfUse     Status = "용도증빙"
	StatusCompleted      Status = "완료"
	StatusCancelled      Status = "취소"
	StatusRejected       Status = "거절"
	StatusOnHold         Status = "보류"
)

// Prior loan kinds
const (
	PriorLoanPreLien   = "선설정"
	PriorLoanRefinance = "대환"
)

// Provider relationship types
var RelationshipTypes = []string{"spouse", "parent", "sibling", "child", "other"}

// Case loan types
var CaseLoanTypes = []string{"신규", "추가", "대환"}

// Event types
const (
	EventScheduled    = "scheduled"
	EventAuthorizing  = "authorizing"
	EventJournalizing = "journalizing"
)

// Todo statuses
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoCompleted  = "completed"
)

// Notice priorities
const (
	NoticePriorityHigh   = "높음"
	NoticePriorityMedium = "중간"
	NoticePriorityLow    = "낮음"
)

// ScopeKind selects which cases a list or aggregate query may see
type ScopeKind int

const (
	ScopeNone ScopeKind = iota
	ScopeAll
	ScopeBranch
	ScopeTeam
	ScopeOwn
)

// Scope restricts case queries to what an actor may access. ID is the
// branch, team or user id depending on Kind.
type Scope struct {
	Kind ScopeKind
	ID   uint
}

// StatusValues converts statuses to plain strings for query binding
func StatusValues(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
