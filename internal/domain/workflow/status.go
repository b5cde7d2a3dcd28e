package workflow

// Status is a patient's lifecycle stage. Exactly one value is held per
// patient at any time, and it is only ever mutated through a validated
// transition.
type Status string

const (
	StatusPending                Status = "pending"
	StatusActive                 Status = "active"
	StatusConsulted              Status = "consulted"
	StatusReservationInProgress  Status = "reservation_in_progress"
	StatusReservationCompleted   Status = "reservation_completed"
	StatusExaminationInProgress  Status = "examination_in_progress"
	StatusExaminationCompleted   Status = "examination_completed"
	StatusAwaitingResults        Status = "awaiting_results"
	StatusClosed                 Status = "closed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusActive,
	StatusConsulted,
	StatusReservationInProgress,
	StatusReservationCompleted,
	StatusExaminationInProgress,
	StatusExaminationCompleted,
	StatusAwaitingResults,
	StatusClosed,
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// Role is a staff role as carried in the auth token.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleBD      Role = "bd"
	RoleCS      Role = "cs"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
)

var allRoles = []Role{RoleAdmin, RoleManager, RoleBD, RoleCS, RoleDoctor, RoleNurse}

func (r Role) Valid() bool {
	for _, v := range allRoles {
		if r == v {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
