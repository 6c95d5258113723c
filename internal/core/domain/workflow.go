package domain

// Workflow is the immutable status configuration shared by the lifecycle
// engine and the dashboard. Build it once and pass it to the services.
type Workflow struct {
	statuses     []Status
	initial      Status
	urgent       map[Status]bool
	ongoing      map[Status]bool
	closedRecent map[Status]bool
	completed    Status
	transitions  map[Status]map[Status]bool
}

// WorkflowConfig is the raw input for NewWorkflow
type WorkflowConfig struct {
	Statuses []Status
	Initial  Status
	// Urgent statuses make a case urgent when its scheduled date is tomorrow
	// and also gate SetScheduleDate.
	Urgent []Status
	// Ongoing statuses count as "in progress" on the dashboard.
	Ongoing []Status
	// ClosedRecent statuses count toward the 30-day completed stat.
	ClosedRecent []Status
	// Completed is the status counted by the monthly stats.
	Completed Status
	// Transitions restricts which statuses may follow each status.
	// Empty means any status may follow any other.
	Transitions map[Status][]Status
}

// NewWorkflow copies cfg into an immutable Workflow
func NewWorkflow(cfg WorkflowConfig) *Workflow {
	w := &Workflow{
		statuses:     append([]Status(nil), cfg.Statuses...),
		initial:      cfg.Initial,
		urgent:       toSet(cfg.Urgent),
		ongoing:      toSet(cfg.Ongoing),
		closedRecent: toSet(cfg.ClosedRecent),
		completed:    cfg.Completed,
	}
	if len(cfg.Transitions) > 0 {
		w.transitions = make(map[Status]map[Status]bool, len(cfg.Transitions))
		for from, tos := range cfg.Transitions {
			w.transitions[from] = toSet(tos)
		}
	}
	return w
}

// DefaultWorkflow returns the production status table. Transitions are free.
func DefaultWorkflow() *Workflow {
	return NewWorkflow(WorkflowConfig{
		Statuses: []Status{
			StatusInquiry, StatusCreditCheck, StatusCollectingDocs, StatusReview,
			StatusApproved, StatusPendingSigning, StatusPendingPayout, StatusProofOfUse,
			StatusCompleted, StatusCancelled, StatusRejected, StatusOnHold,
		},
		Initial: StatusInquiry,
		Urgent:  []Status{StatusPendingSigning, StatusPendingPayout},
		Ongoing: []Status{
			StatusInquiry, StatusCreditCheck, StatusCollectingDocs, StatusReview,
			StatusApproved, StatusPendingSigning, StatusPendingPayout,
		},
		ClosedRecent: []Status{StatusProofOfUse, StatusCompleted},
		Completed:    StatusCompleted,
	})
}

func toSet(ss []Status) map[Status]bool {
	m := make(map[Status]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// Statuses returns the enumerated statuses in display order
func (w *Workflow) Statuses() []Status {
	return append([]Status(nil), w.statuses...)
}

// Initial returns the status new cases start in
func (w *Workflow) Initial() Status { return w.initial }

// Completed returns the status the monthly stats count
func (w *Workflow) Completed() Status { return w.completed }

// IsValid reports whether s is an enumerated status
func (w *Workflow) IsValid(s Status) bool {
	for _, st := range w.statuses {
		if st == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether from → to is permitted
func (w *Workflow) CanTransition(from, to Status) bool {
	if !w.IsValid(to) {
		return false
	}
	if w.transitions == nil {
		return true
	}
	return w.transitions[from][to]
}

// IsUrgentStatus reports whether s takes part in the schedule/urgency rules
func (w *Workflow) IsUrgentStatus(s Status) bool { return w.urgent[s] }

// UrgentStatuses lists the schedule-bearing statuses
func (w *Workflow) UrgentStatuses() []Status { return w.filter(w.urgent) }

// OngoingStatuses lists the statuses counted as in progress
func (w *Workflow) OngoingStatuses() []Status { return w.filter(w.ongoing) }

// ClosedRecentStatuses lists the statuses counted by the 30-day completed stat
func (w *Workflow) ClosedRecentStatuses() []Status { return w.filter(w.closedRecent) }

func (w *Workflow) filter(set map[Status]bool) []Status {
	out := make([]Status, 0, len(set))
	for _, s := range w.statuses {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// RoleHierarchy maps a requester role to the roles it may create accounts for
type RoleHierarchy struct {
	creatable    map[Role]map[Role]bool
	managerRoles map[Role]bool
}

// NewRoleHierarchy copies the given tables. managerRoles are the roles allowed
// to perform management actions (events, notices, reassignment).
func NewRoleHierarchy(creatable map[Role][]Role, managerRoles []Role) *RoleHierarchy {
	h := &RoleHierarchy{
		creatable:    make(map[Role]map[Role]bool, len(creatable)),
		managerRoles: make(map[Role]bool, len(managerRoles)),
	}
	for requester, roles := range creatable {
		set := make(map[Role]bool, len(roles))
		for _, r := range roles {
			set[r] = true
		}
		h.creatable[requester] = set
	}
	for _, r := range managerRoles {
		h.managerRoles[r] = true
	}
	return h
}

// DefaultRoleHierarchy returns the production hierarchy
func DefaultRoleHierarchy() *RoleHierarchy {
	return NewRoleHierarchy(map[Role][]Role{
		RoleAdmin:         {RoleBranchManager, RoleTeamLeader, RoleStaff},
		RoleBranchManager: {RoleTeamLeader, RoleStaff},
		RoleTeamLeader:    {RoleStaff},
		RoleStaff:         {},
	}, []Role{RoleAdmin, RoleBranchManager, RoleTeamLeader})
}

// CanCreate reports whether requester may create an account of role target
func (h *RoleHierarchy) CanCreate(requester, target Role) bool {
	return h.creatable[requester][target]
}

// IsManager reports whether r may perform management actions
func (h *RoleHierarchy) IsManager(r Role) bool {
	return h.managerRoles[r]
}
