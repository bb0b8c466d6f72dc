package domain

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Assignee is who must act on a task: a specific user or any holder of a role.
// The set of implementations is closed; see UserAssignee and RoleAssignee.
type Assignee interface {
	isAssignee()
	// Key is the tagged form stored in the assignee column, e.g. "role:MANAGER".
	Key() string
}

type UserAssignee struct {
	UserID uuid.UUID
}

type RoleAssignee struct {
	Role string
}

func (UserAssignee) isAssignee() {}
func (RoleAssignee) isAssignee() {}

func (a UserAssignee) Key() string { return UserKey(a.UserID) }
func (a RoleAssignee) Key() string { return RoleKey(a.Role) }

const (
	userKeyPrefix = "user:"
	roleKeyPrefix = "role:"
)

func UserKey(id uuid.UUID) string { return userKeyPrefix + id.String() }
func RoleKey(role string) string  { return roleKeyPrefix + role }

// Assignment wraps an Assignee so it can live in a single column and in JSON.
type Assignment struct {
	Assignee
}

func AssignUser(id uuid.UUID) Assignment { return Assignment{UserAssignee{UserID: id}} }
func AssignRole(role string) Assignment  { return Assignment{RoleAssignee{Role: role}} }

func (a Assignment) IsZero() bool { return a.Assignee == nil }

func (a Assignment) String() string {
	if a.Assignee == nil {
		return ""
	}
	return a.Key()
}

// Allows reports whether an actor with the given id and roles satisfies the assignment.
func (a Assignment) Allows(userID uuid.UUID, roles []string) bool {
	switch v := a.Assignee.(type) {
	case UserAssignee:
		return userID != uuid.Nil && v.UserID == userID
	case RoleAssignee:
		return slices.Contains(roles, v.Role)
	default:
		return false
	}
}

func ParseAssignment(s string) (Assignment, error) {
	switch {
	case strings.HasPrefix(s, userKeyPrefix):
		id, err := uuid.Parse(strings.TrimPrefix(s, userKeyPrefix))
		if err != nil {
			return Assignment{}, fmt.Errorf("invalid user assignee %q: %w", s, err)
		}
		return AssignUser(id), nil
	case strings.HasPrefix(s, roleKeyPrefix):
		role := strings.TrimPrefix(s, roleKeyPrefix)
		if role == "" {
			return Assignment{}, fmt.Errorf("empty role in assignee %q", s)
		}
		return AssignRole(role), nil
	case s == "":
		return Assignment{}, nil
	default:
		return Assignment{}, fmt.Errorf("unknown assignee %q", s)
	}
}

func (a Assignment) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Assignment) UnmarshalText(text []byte) error {
	parsed, err := ParseAssignment(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Assignment) Value() (driver.Value, error) {
	if a.Assignee == nil {
		return nil, nil
	}
	return a.Key(), nil
}

func (a *Assignment) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Assignment{}
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Assignment", src)
	}
}
