package types

import "time"

// Entity carries the timestamps and optimistic-concurrency version shared by
// every persisted document. Embed it in document types.
//
// Version is 0 for a value that has never been stored. Stores set it to 1 on
// insert and increment it on every accepted update; an update whose Version
// does not match the stored one is rejected.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// NewEntity creates a new Entity with current timestamps.
func NewEntity() Entity {
	return NewEntityAt(time.Now())
}

// NewEntityAt creates a new Entity stamped at t.
func NewEntityAt(t time.Time) Entity {
	t = t.UTC()
	return Entity{
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// Touch updates the UpdatedAt timestamp to t.
func (e *Entity) Touch(t time.Time) {
	e.UpdatedAt = t.UTC()
}

// IsStored reports whether the entity has been persisted at least once.
func (e Entity) IsStored() bool {
	return e.Version > 0
}
