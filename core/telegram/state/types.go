package state

import "strconv"

// State identifies a conversation step.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Data is the key/value bag accumulated across the steps of one flow.
type Data map[string]any

// String returns the value stored under key as a string.
func (d Data) String(key string) string {
	switch v := d[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Int64 returns the value stored under key as an int64.
func (d Data) Int64(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Bool returns the value stored under key as a bool.
func (d Data) Bool(key string) (bool, bool) {
	v, ok := d[key].(bool)
	return v, ok
}

// Has reports whether key is present.
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Store holds conversation state for every active user.
type Store interface {
	// SetState moves the user to st and merges patch into the data bag.
	SetState(userID int64, st State, patch Data)
	// GetState returns the current state; false when the user has none.
	GetState(userID int64) (State, bool)
	// GetData returns a copy of the user's data bag, never nil.
	GetData(userID int64) Data
	// ClearState drops state and data for the user.
	ClearState(userID int64)
	// InProgress reports whether the user is inside a flow.
	InProgress(userID int64) bool
	// Len reports the number of users with an entry.
	Len() int
}
