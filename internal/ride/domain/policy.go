package domain

// statusSet is a small set of statuses keyed for membership checks.
type statusSet map[Status]struct{}

func newSet(statuses ...Status) statusSet {
	s := make(statusSet, len(statuses))
	for _, st := range statuses {
		s[st] = struct{}{}
	}
	return s
}

func (s statusSet) contains(st Status) bool {
	_, ok := s[st]
	return ok
}

// allowedTransitions is the single source of truth for the lifecycle:
// role -> current status -> set of permitted target statuses.
// Terminal statuses (completed, canceled) have no entry for any role.
var allowedTransitions = map[ActorRole]map[Status]statusSet{
	RoleClient: {
		StatusRequested:      newSet(StatusCanceled),
		StatusDriverAssigned: newSet(StatusCanceled),
		StatusAccepted:       newSet(StatusCanceled),
	},
	RoleDriver: {
		StatusDriverAssigned: newSet(StatusAccepted, StatusCanceled),
		StatusAccepted:       newSet(StatusArrived, StatusCanceled),
		StatusArrived:        newSet(StatusStarted, StatusCanceled),
		StatusStarted:        newSet(StatusCompleted, StatusCanceled),
	},
	RoleSystem: {
		StatusRequested:      newSet(StatusDriverAssigned, StatusCanceled),
		StatusDriverAssigned: newSet(StatusAccepted, StatusCanceled),
		StatusAccepted:       newSet(StatusArrived, StatusCanceled),
		StatusArrived:        newSet(StatusStarted, StatusCanceled),
		StatusStarted:        newSet(StatusCompleted, StatusCanceled),
	},
}

// statusOrder fixes iteration order so reverse lookups are deterministic.
var statusOrder = []Status{
	StatusRequested,
	StatusDriverAssigned,
	StatusAccepted,
	StatusArrived,
	StatusStarted,
	StatusCompleted,
	StatusCanceled,
}

// IsAllowed reports whether the given role may move a ride from current to
// target. Unknown roles, unknown statuses and terminal current statuses all
// permit nothing.
func IsAllowed(current Status, role ActorRole, target Status) bool {
	if !target.IsValid() {
		return false
	}
	roleMap, ok := allowedTransitions[role]
	if !ok {
		return false
	}
	targets, ok := roleMap[current]
	if !ok {
		return false
	}
	return targets.contains(target)
}

// AllowedFrom is the reverse query: the set of current statuses from which the
// role may reach target. Returns the exact set implied by the forward table.
// An empty result means the transition is structurally impossible for the role.
func AllowedFrom(role ActorRole, target Status) []Status {
	roleMap, ok := allowedTransitions[role]
	if !ok {
		return nil
	}
	var from []Status
	for _, current := range statusOrder {
		if targets, ok := roleMap[current]; ok && targets.contains(target) {
			from = append(from, current)
		}
	}
	return from
}

// Roles lists the known actor roles in a stable order.
func Roles() []ActorRole {
	return []ActorRole{RoleClient, RoleDriver, RoleSystem}
}

// Statuses lists the fixed status set in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}
