package carbonview

import "fmt"

// Status is the session's position in its lifecycle.
type Status string

const (
	// StatusIdle initial, not yet checked against the platform
	StatusIdle Status = "idle"
	// StatusLoading a login or session restore is in flight
	StatusLoading Status = "loading"
	// StatusAuthenticated credential accepted, User populated
	StatusAuthenticated Status = "authenticated"
	// StatusUnauthenticated no usable credential
	StatusUnauthenticated Status = "unauthenticated"
)

// Terminal reports whether the status is a rest state (a login or logout can
// start from here without racing an in-flight check).
func (s Status) Terminal() bool {
	return s == StatusAuthenticated || s == StatusUnauthenticated
}

// Pending reports whether the session outcome is not yet known. Route guards
// must hold (render a placeholder) rather than redirect while pending.
func (s Status) Pending() bool {
	return s == StatusIdle || s == StatusLoading
}

// Session is the console's current belief about who is signed in.
// Invariant: User != nil exactly when Status is authenticated.
type Session struct {
	Status Status
	User   *User
	Error  string
}

// Authenticated reports whether a user is signed in.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

func (s Session) String() string {
	who := "<nil>"
	if s.User != nil {
		who = s.User.Email
	}
	return fmt.Sprintf("status=%s user=%s err=%q", s.Status, who, s.Error)
}
