package workflow

import "fmt"

// Rule is one directed edge of the status graph. At most one rule may
// exist per (From, To) pair; duplicate edges with different role sets
// are a configuration bug caught by ValidateTable.
type Rule struct {
	From              Status
	To                Status
	AllowedRoles      []Role
	RequiresNote      bool
	AutoAssignManager bool
}

func (r Rule) allows(role Role) bool {
	for _, allowed := range r.AllowedRoles {
		if role == allowed {
			return true
		}
	}
	return false
}

// transitionTable is the full lifecycle graph. BD owns the funnel up to
// the consultation handover, CS owns reservation and examination, and
// admin/manager can act everywhere. Closing mid-funnel requires a note
// so the drop reason survives; closed patients can be reactivated by
// admin/manager only.
var transitionTable = []Rule{
	{From: StatusPending, To: StatusActive, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleBD}},

	{From: StatusActive, To: StatusConsulted, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleBD}},
	{From: StatusActive, To: StatusClosed, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleBD}, RequiresNote: true},

	// BD to CS handover. The acting user becomes the assigned manager
	// when the patient has none yet.
	{From: StatusConsulted, To: StatusReservationInProgress, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleBD, RoleCS}, AutoAssignManager: true},
	{From: StatusConsulted, To: StatusClosed, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleBD}, RequiresNote: true},

	{From: StatusReservationInProgress, To: StatusReservationCompleted, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleCS}},
	{From: StatusReservationInProgress, To: StatusClosed, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleCS}, RequiresNote: true},

	{From: StatusReservationCompleted, To: StatusExaminationInProgress, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleCS}},
	{From: StatusReservationCompleted, To: StatusClosed, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleCS}, RequiresNote: true},

	{From: StatusExaminationInProgress, To: StatusExaminationCompleted, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleCS}},

	{From: StatusExaminationCompleted, To: StatusAwaitingResults, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleCS}},

	{From: StatusAwaitingResults, To: StatusClosed, AllowedRoles: []Role{RoleAdmin, RoleManager, RoleCS}},

	// Reactivation edge.
	{From: StatusClosed, To: StatusPending, AllowedRoles: []Role{RoleAdmin, RoleManager}, RequiresNote: true},
}

// Result is the structured outcome of a transition validation. It is
// always returned, never raised: rejected transitions carry a
// user-facing Korean message and the set of statuses the caller could
// offer instead.
type Result struct {
	IsValid             bool     `json:"is_valid"`
	Error               string   `json:"error,omitempty"`
	RequiresNote        bool     `json:"requires_note"`
	AutoAssignManager   bool     `json:"auto_assign_manager"`
	AllowedNextStatuses []Status `json:"allowed_next_statuses,omitempty"`
}

func rejection(msg string, allowed []Status) Result {
	return Result{IsValid: false, Error: msg, AllowedNextStatuses: allowed}
}

// ValidateTransition decides whether role may move a patient from
// current to target. Pure function over the static table; no I/O.
func ValidateTransition(current, target Status, role Role) Result {
	if !current.Valid() {
		return rejection(fmt.Sprintf("'%s'은(는) 유효한 환자 상태가 아닙니다.", current), nil)
	}
	if !role.Valid() {
		return rejection(fmt.Sprintf("'%s'은(는) 알 수 없는 권한입니다.", role), nil)
	}
	if current == target {
		return rejection(fmt.Sprintf("이미 '%s' 상태입니다.", current), nil)
	}

	outgoing := allTargetsFrom(current)
	if len(outgoing) == 0 {
		return rejection(fmt.Sprintf("'%s' 상태에서는 변경 가능한 다음 상태가 없습니다.", current), nil)
	}

	rule, ok := findRule(current, target)
	if !ok {
		return rejection(
			fmt.Sprintf("'%s'에서 '%s'로 직접 변경할 수 없습니다.", current, target),
			outgoing,
		)
	}

	if !rule.allows(role) {
		return rejection(
			fmt.Sprintf("'%s' 권한으로는 '%s'에서 '%s'(으)로 변경할 수 없습니다.", role, current, target),
			AvailableStatuses(current, role),
		)
	}

	return Result{
		IsValid:             true,
		RequiresNote:        rule.RequiresNote,
		AutoAssignManager:   rule.AutoAssignManager,
		AllowedNextStatuses: AvailableStatuses(current, role),
	}
}

// AvailableTransitions filters the table by from-status and role.
func AvailableTransitions(current Status, role Role) []Rule {
	var rules []Rule
	for _, rule := range transitionTable {
		if rule.From == current && rule.allows(role) {
			rules = append(rules, rule)
		}
	}
	return rules
}

// AvailableStatuses is the set of target statuses a selector should
// offer the given role from the current status.
func AvailableStatuses(current Status, role Role) []Status {
	var statuses []Status
	for _, rule := range AvailableTransitions(current, role) {
		statuses = append(statuses, rule.To)
	}
	return statuses
}

// NoteRequired reports whether the (from, to) edge demands a note. The
// second return is false when no such edge exists, so callers can tell
// "no note needed" apart from "no such rule".
func NoteRequired(from, to Status) (bool, bool) {
	rule, ok := findRule(from, to)
	if !ok {
		return false, false
	}
	return rule.RequiresNote, true
}

// AutoAssignsManager reports whether the (from, to) edge assigns the
// acting user as the patient's manager. Second return as in NoteRequired.
func AutoAssignsManager(from, to Status) (bool, bool) {
	rule, ok := findRule(from, to)
	if !ok {
		return false, false
	}
	return rule.AutoAssignManager, true
}

// IsHandoverToCS is true exactly for the consulted to
// reservation_in_progress edge, where ownership moves from BD to CS.
func IsHandoverToCS(from, to Status) bool {
	return from == StatusConsulted && to == StatusReservationInProgress
}

// bdStatuses and csStatuses partition the lifecycle for dashboard
// filtering. Closed patients show up on both sides.
var bdStatuses = map[Status]bool{
	StatusPending:   true,
	StatusActive:    true,
	StatusConsulted: true,
	StatusClosed:    true,
}

var csStatuses = map[Status]bool{
	StatusReservationInProgress: true,
	StatusReservationCompleted:  true,
	StatusExaminationInProgress: true,
	StatusExaminationCompleted:  true,
	StatusAwaitingResults:       true,
	StatusClosed:                true,
}

// StatusManagedByRole reports whether a status belongs to the given
// role's dashboard. Admin and manager see everything. This gates
// filtering only, never transitions.
func StatusManagedByRole(status Status, role Role) bool {
	switch role {
	case RoleAdmin, RoleManager:
		return status.Valid()
	case RoleBD:
		return bdStatuses[status]
	case RoleCS:
		return csStatuses[status]
	default:
		return false
	}
}

// ValidateTable checks the static table's configuration invariants:
// every edge references valid statuses and at least one valid role, no
// (from, to) pair appears twice, and every status has at least one
// outgoing edge. Called once at startup.
func ValidateTable() error {
	type edge struct{ from, to Status }
	seen := make(map[edge]bool, len(transitionTable))
	outgoing := make(map[Status]int, len(AllStatuses))

	for _, rule := range transitionTable {
		if !rule.From.Valid() || !rule.To.Valid() {
			return fmt.Errorf("transition %s -> %s references an unknown status", rule.From, rule.To)
		}
		if rule.From == rule.To {
			return fmt.Errorf("transition %s -> %s is a self-loop", rule.From, rule.To)
		}
		if len(rule.AllowedRoles) == 0 {
			return fmt.Errorf("transition %s -> %s has no allowed roles", rule.From, rule.To)
		}
		for _, role := range rule.AllowedRoles {
			if !role.Valid() {
				return fmt.Errorf("transition %s -> %s references unknown role %q", rule.From, rule.To, role)
			}
		}
		e := edge{rule.From, rule.To}
		if seen[e] {
			return fmt.Errorf("duplicate transition %s -> %s", rule.From, rule.To)
		}
		seen[e] = true
		outgoing[rule.From]++
	}

	for _, status := range AllStatuses {
		if outgoing[status] == 0 {
			return fmt.Errorf("status %s has no outgoing transitions", status)
		}
	}
	return nil
}

func findRule(from, to Status) (Rule, bool) {
	for _, rule := range transitionTable {
		if rule.From == from && rule.To == to {
			return rule, true
		}
	}
	return Rule{}, false
}

func allTargetsFrom(current Status) []Status {
	var statuses []Status
	for _, rule := range transitionTable {
		if rule.From == current {
			statuses = append(statuses, rule.To)
		}
	}
	return statuses
}
