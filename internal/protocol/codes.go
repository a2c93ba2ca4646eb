package protocol

// Action is a client command code carried in the first u32 of a request.
type Action uint32

const (
	ActionLogin    Action = 1
	ActionLogout   Action = 2
	ActionMove     Action = 3
	ActionUpgrade  Action = 4
	ActionTurn     Action = 5
	ActionMap      Action = 10
	ActionObserver Action = 100
	ActionGame     Action = 101

	// ActionEvent is written to the replay log by the server itself.
	// Clients cannot send it.
	ActionEvent Action = 102
)

// Known reports whether a is a client-callable action code.
func (a Action) Known() bool {
	switch a {
	case ActionLogin, ActionLogout, ActionMove, ActionUpgrade, ActionTurn,
		ActionMap, ActionObserver, ActionGame:
		return true
	}
	return false
}

func (a Action) String() string {
	switch a {
	case ActionLogin:
		return "LOGIN"
	case ActionLogout:
		return "LOGOUT"
	case ActionMove:
		return "MOVE"
	case ActionUpgrade:
		return "UPGRADE"
	case ActionTurn:
		return "TURN"
	case ActionMap:
		return "MAP"
	case ActionObserver:
		return "OBSERVER"
	case ActionGame:
		return "GAME"
	case ActionEvent:
		return "EVENT"
	}
	return "UNKNOWN"
}

// Result is a server response code carried in the first u32 of a response.
type Result uint32

const (
	ResultOkey                Result = 0
	ResultBadCommand          Result = 1
	ResultResourceNotFound    Result = 2
	ResultAccessDenied        Result = 5
	ResultNotReady            Result = 21
	ResultTimeout             Result = 258
	ResultInternalServerError Result = 500
)

func (r Result) String() string {
	switch r {
	case ResultOkey:
		return "OKEY"
	case ResultBadCommand:
		return "BAD_COMMAND"
	case ResultResourceNotFound:
		return "RESOURCE_NOT_FOUND"
	case ResultAccessDenied:
		return "ACCESS_DENIED"
	case ResultNotReady:
		return "NOT_READY"
	case ResultTimeout:
		return "TIMEOUT"
	case ResultInternalServerError:
		return "INTERNAL_SERVER_ERROR"
	}
	return "UNKNOWN"
}
