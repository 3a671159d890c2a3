package model

import (
	"fmt"
	"time"
)

// Role controls how a user is treated by the permission resolver.
type Role string

const (
	RoleBasic   Role = "basic"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Roles lists every valid role, lowest privilege first.
var Roles = []Role{RoleBasic, RoleManager, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsAdmin reports whether r bypasses permit checks.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// ParseRole converts s to a Role. The empty string maps to RoleBasic.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleBasic, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q: must be one of %v", s, Roles)
	}
	return r, nil
}

// User is an account that can post documents and be granted access to them.
type User struct {
	ID          string
	Name        string
	Email       string
	Password    string // opaque credential, already hashed by the caller
	Role        Role
	CreatedAt   time.Time
	ActivatedAt *time.Time
	LastLoginAt *time.Time
}

// Group is a flat collection of users. Groups do not nest.
type Group struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Membership links one user to one group.
type Membership struct {
	ID      int64
	GroupID string
	UserID  string
}

// Keeper is the metadata half of a document.
type Keeper struct {
	ID          string
	Filename    string
	ContentType string
	Description string
	Category    string
	PostedAt    time.Time
	// PostedBy is empty once the posting user has been deleted.
	PostedBy string
}

// Filedata is the payload half of a document, keyed by its keeper id.
type Filedata struct {
	KeeperID string
	Data     []byte
}

// Permit grants read access to a keeper. At least one of UserID and GroupID
// is set; an empty string means "not targeted".
type Permit struct {
	ID       string
	KeeperID string
	UserID   string
	GroupID  string
}

// Targets reports whether the permit names a user or a group.
func (p Permit) Targets() bool {
	return p.UserID != "" || p.GroupID != ""
}

// Document joins a keeper with its payload for fetch-by-id.
type Document struct {
	Keeper
	Data []byte
}

// DefaultContentType is used when a document is posted without one.
const DefaultContentType = "application/octet-stream"
