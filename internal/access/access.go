// Package access resolves users to a role and the set of books and desks
// they may act on.
package access

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	ErrInvalidRole     = errors.New("access: invalid role")
	ErrUnknownResource = errors.New("access: unknown resource")
	ErrInvalidUser     = errors.New("access: user id is required")
)

// Role is a user's privilege level.
type Role string

const (
	RoleUser  Role = "USER"
	RoleRisk  Role = "RISK"
	RoleAdmin Role = "ADMIN"
)

var ranks = map[Role]int{RoleUser: 1, RoleRisk: 2, RoleAdmin: 3}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := ranks[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// AtLeast reports whether r is at or above other in the privilege order.
func (r Role) AtLeast(other Role) bool {
	return ranks[r] >= ranks[other] && ranks[r] > 0
}

// Wildcard grants every resource in the catalog.
const Wildcard = "*"

// Catalog is the fixed set of known books and desks.
var Catalog = []string{
	"PM_BOOK1",
	"PM_BOOK2",
	"HF_BOOK1",
	"HF_BOOK2",
	"TECH_DESK",
	"HEALTH_DESK",
	"CLOUD_DESK",
	"AI_DESK",
	"CYBER_DESK",
	"MEDDEV_DESK",
	"BIOTECH_DESK",
}

// DefaultResources is what an unknown user may see.
var DefaultResources = []string{"PM_BOOK1"}

// User is a directory entry.
type User struct {
	ID        string   `json:"user_id"`
	Role      Role     `json:"role"`
	Resources []string `json:"resources"`
}

// Directory is the static role lookup. Reads never mutate it; Upsert is the
// only write path.
type Directory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{users: make(map[string]User)}
}

// NewSeededDirectory creates a directory with the built-in desk users.
func NewSeededDirectory() *Directory {
	d := NewDirectory()
	for _, u := range []User{
		{ID: "user1", Role: RoleUser, Resources: []string{"PM_BOOK1"}},
		{ID: "user2", Role: RoleRisk, Resources: []string{"PM_BOOK1", "PM_BOOK2", "HF_BOOK1"}},
		{ID: "admin1", Role: RoleAdmin, Resources: []string{Wildcard}},
		{ID: "demo", Role: RoleRisk, Resources: []string{"PM_BOOK1", "TECH_DESK", "HEALTH_DESK"}},
	} {
		d.users[u.ID] = u
	}
	return d
}

// RoleOf returns the user's role; unknown users are RoleUser.
func (d *Directory) RoleOf(userID string) Role {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.users[userID]; ok {
		return u.Role
	}
	return RoleUser
}

// ResourcesOf returns the user's resources with the wildcard expanded to the
// catalog. Unknown users get DefaultResources. The result is a fresh slice.
func (d *Directory) ResourcesOf(userID string) []string {
	d.mu.RLock()
	u, ok := d.users[userID]
	d.mu.RUnlock()

	if !ok {
		return slices.Clone(DefaultResources)
	}
	if slices.Contains(u.Resources, Wildcard) {
		return slices.Clone(Catalog)
	}
	return slices.Clone(u.Resources)
}

// HasAccess reports whether the user may act on resource (case-insensitive).
func (d *Directory) HasAccess(userID, resource string) bool {
	want := strings.ToUpper(strings.TrimSpace(resource))
	if want == "" {
		return false
	}
	return slices.Contains(d.ResourcesOf(userID), want)
}

// Lookup returns the stored entry, or the defaults for an unknown user.
func (d *Directory) Lookup(userID string) User {
	return User{ID: userID, Role: d.RoleOf(userID), Resources: d.ResourcesOf(userID)}
}

// Upsert adds or replaces a user. Resources must be catalog entries or the
// wildcard; they are stored upper-cased.
func (d *Directory) Upsert(userID string, role Role, resources []string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, ErrInvalidUser
	}
	if _, ok := ranks[role]; !ok {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	normalized := make([]string, 0, len(resources))
	for _, r := range resources {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r != Wildcard && !slices.Contains(Catalog, r) {
			return User{}, fmt.Errorf("%w: %q", ErrUnknownResource, r)
		}
		if !slices.Contains(normalized, r) {
			normalized = append(normalized, r)
		}
	}
	if len(normalized) == 0 {
		normalized = slices.Clone(DefaultResources)
	}

	u := User{ID: userID, Role: role, Resources: normalized}
	d.mu.Lock()
	d.users[userID] = u
	d.mu.Unlock()
	return User{ID: u.ID, Role: u.Role, Resources: slices.Clone(u.Resources)}, nil
}
