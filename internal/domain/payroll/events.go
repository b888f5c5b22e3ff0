package payroll

import "time"

type Entity string

const (
	EntityPosition Entity = "position"
	EntityEmployee Entity = "employee"
	EntityPayment  Entity = "payment"
)

type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionHidden   Action = "hidden"
	ActionRevealed Action = "revealed"
)

// EntityChanged is published on the event bus after a successful write.
// Before is nil for creations and After is nil for deletions.
type EntityChanged struct {
	Entity Entity
	ID     string
	Action Action
	Before any
	After  any
	At     time.Time
}
