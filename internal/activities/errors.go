package activities

import "errors"

// Kind classifies a registry error so the HTTP layer can pick a status code
// without matching on detail strings.
type Kind int

const (
	// KindNotFound covers unknown activities and absent participants.
	KindNotFound Kind = iota + 1
	// KindConflict covers duplicate signups and full rosters.
	KindConflict
)

// Error is returned by registry operations. Detail is the literal message
// surfaced to API clients.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string { return e.Detail }

var (
	ErrActivityNotFound    = &Error{Kind: KindNotFound, Detail: "Activity not found"}
	ErrParticipantNotFound = &Error{Kind: KindNotFound, Detail: "Participant not found in this activity"}
	ErrAlreadySignedUp     = &Error{Kind: KindConflict, Detail: "Student already signed up for this activity"}
	ErrActivityFull        = &Error{Kind: KindConflict, Detail: "Activity is already full"}
)

// IsNotFound reports whether err is a registry NotFound error.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsConflict reports whether err is a registry Conflict error.
func IsConflict(err error) bool { return kindOf(err) == KindConflict }

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
