package entity

import (
	"fmt"
	"strings"
)

// Type tags an entity kind. It keys the Registry.
type Type string

// Business entity types.
const (
	TypeUser             Type = "USER"
	TypeRole             Type = "ROLE"
	TypeDept             Type = "DEPT"
	TypeNotice           Type = "NOTICE"
	TypeNoticeTargetDept Type = "NOTICE_TARGET_DEPT"
	TypeNoticeRead       Type = "NOTICE_READ"
)

// System entity types. Their rows live in the system of record and are
// replicated like business rows, but never produce attempt rows or tickets.
const (
	TypeSyncLog          Type = "SYNC_LOG"
	TypeSyncConflict     Type = "SYNC_CONFLICT"
	TypeSyncConflictItem Type = "SYNC_CONFLICT_ITEM"
)

// IsSystem reports whether t is one of the reconciler's own tables.
func (t Type) IsSystem() bool {
	switch t {
	case TypeSyncLog, TypeSyncConflict, TypeSyncConflictItem:
		return true
	}
	return false
}

// ParseType converts a case-insensitive name into a Type.
func ParseType(name string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(name)))
	switch t {
	case TypeUser, TypeRole, TypeDept, TypeNotice, TypeNoticeTargetDept, TypeNoticeRead,
		TypeSyncLog, TypeSyncConflict, TypeSyncConflictItem:
		return t, nil
	}
	return "", fmt.Errorf("unknown entity type %q", name)
}

// Action is the kind of change being propagated.
type Action string

// Supported actions.
const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// ParseAction converts a case-insensitive name into an Action.
func ParseAction(name string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(name)))
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", name)
}

// AttemptStatus is the state of one propagation attempt.
type AttemptStatus string

// Attempt statuses. FAILED is retryable, ERROR is terminal.
const (
	AttemptSuccess  AttemptStatus = "SUCCESS"
	AttemptFailed   AttemptStatus = "FAILED"
	AttemptConflict AttemptStatus = "CONFLICT"
	AttemptError    AttemptStatus = "ERROR"
)

// ParseAttemptStatus converts a case-insensitive name into an AttemptStatus.
func ParseAttemptStatus(name string) (AttemptStatus, error) {
	s := AttemptStatus(strings.ToUpper(strings.TrimSpace(name)))
	switch s {
	case AttemptSuccess, AttemptFailed, AttemptConflict, AttemptError:
		return s, nil
	}
	return "", fmt.Errorf("unknown attempt status %q", name)
}

// TicketStatus is the lifecycle state of a conflict ticket.
type TicketStatus string

// Ticket statuses.
const (
	TicketOpen     TicketStatus = "OPEN"
	TicketResolved TicketStatus = "RESOLVED"
	TicketIgnored  TicketStatus = "IGNORED"
)

// ParseTicketStatus converts a case-insensitive name into a TicketStatus.
func ParseTicketStatus(name string) (TicketStatus, error) {
	s := TicketStatus(strings.ToUpper(strings.TrimSpace(name)))
	switch s {
	case TicketOpen, TicketResolved, TicketIgnored:
		return s, nil
	}
	return "", fmt.Errorf("unknown ticket status %q", name)
}

// ConflictType describes how an entity diverges across stores.
type ConflictType string

// Conflict types.
const (
	ConflictMissing  ConflictType = "MISSING"
	ConflictMismatch ConflictType = "MISMATCH"
)

// ParseConflictType converts a case-insensitive name into a ConflictType.
func ParseConflictType(name string) (ConflictType, error) {
	c := ConflictType(strings.ToUpper(strings.TrimSpace(name)))
	switch c {
	case ConflictMissing, ConflictMismatch:
		return c, nil
	}
	return "", fmt.Errorf("unknown conflict type %q", name)
}
