// Package auth implements the HTTP Basic access gate: a fixed principal table
// with bcrypt password hashes, a path policy naming public and admin-only
// routes, and chi-compatible middleware enforcing both.
package auth

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/crypto/bcrypt"
)

// Role is the single role a principal holds.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User describes one principal at construction time. When PasswordHash is set
// it is used as is and Password is ignored.
type User struct {
	Name         string
	Password     string
	PasswordHash string
	Role         Role
}

// DefaultUsers returns the two built-in principals.
func DefaultUsers() []User {
	return []User{
		{Name: "admin", Password: "admin123", Role: RoleAdmin},
		{Name: "user", Password: "user123", Role: RoleUser},
	}
}

// Principal is an authenticated caller.
type Principal struct {
	Name string
	Role Role
}

type entry struct {
	hash []byte
	role Role
}

// Table is the read-only principal table. It is built once at start-up and
// is safe for concurrent use.
type Table struct {
	entries map[string]entry
	// dummy is compared against when the name is unknown so lookups of
	// unknown and known names cost about the same.
	dummy []byte
}

// NewTable hashes plain passwords with the given bcrypt cost and builds the
// table. Duplicate names, unknown roles and malformed hashes are rejected.
func NewTable(users []User, cost int) (*Table, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("awsgate-unknown-principal"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	t := &Table{entries: make(map[string]entry, len(users)), dummy: dummy}
	for _, u := range users {
		if u.Name == "" {
			return nil, fmt.Errorf("principal name is required")
		}
		if _, ok := t.entries[u.Name]; ok {
			return nil, fmt.Errorf("duplicate principal %q", u.Name)
		}
		if u.Role != RoleAdmin && u.Role != RoleUser {
			return nil, fmt.Errorf("principal %q has unknown role %q", u.Name, u.Role)
		}

		var hash []byte
		switch {
		case u.PasswordHash != "":
			hash = []byte(u.PasswordHash)
			if _, err := bcrypt.Cost(hash); err != nil {
				return nil, fmt.Errorf("principal %q has an invalid password hash: %w", u.Name, err)
			}
		case u.Password != "":
			hash, err = bcrypt.GenerateFromPassword([]byte(u.Password), cost)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password for %q: %w", u.Name, err)
			}
		default:
			return nil, fmt.Errorf("principal %q has no password", u.Name)
		}
		t.entries[u.Name] = entry{hash: hash, role: u.Role}
	}
	return t, nil
}

// Authenticate checks name and password and returns the principal on success.
func (t *Table) Authenticate(name, password string) (Principal, bool) {
	e, ok := t.entries[name]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(t.dummy, []byte(password))
		return Principal{}, false
	}
	if bcrypt.CompareHashAndPassword(e.hash, []byte(password)) != nil {
		return Principal{}, false
	}
	return Principal{Name: name, Role: e.role}, true
}

// Names returns the principal names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for n := range t.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by the gate, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
