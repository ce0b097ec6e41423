package models

import (
	"regexp"
	"time"
)

// MemberRole represents a team member's role.
type MemberRole string

const (
	MemberRoleMember  MemberRole = "member"
	MemberRoleLead    MemberRole = "lead"
	MemberRoleManager MemberRole = "manager"
)

// Valid reports whether r is one of the known roles.
func (r MemberRole) Valid() bool {
	switch r {
	case MemberRoleMember, MemberRoleLead, MemberRoleManager:
		return true
	}
	return false
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// TeamMember is a person tasks can be assigned to.
type TeamMember struct {
	ID       string
	Name     string
	Email    string
	Role     MemberRole
	JoinedAt time.Time
	IsActive bool
}

// MemberInput carries the caller-supplied fields for a new team member.
type MemberInput struct {
	Name  string
	Email string
	Role  MemberRole
}

// MemberUpdate is a partial update. Nil fields are left untouched.
type MemberUpdate struct {
	Name  *string
	Email *string
	Role  *MemberRole
}

// NewTeamMember builds an active member. An unknown role falls back to member.
func NewTeamMember(in MemberInput, now time.Time) *TeamMember {
	role := in.Role
	if !role.Valid() {
		role = MemberRoleMember
	}
	return &TeamMember{
		ID:       NewID(),
		Name:     in.Name,
		Email:    in.Email,
		Role:     role,
		JoinedAt: now,
		IsActive: true,
	}
}

// Apply merges the non-nil fields of u into m. An invalid role is ignored.
func (m *TeamMember) Apply(u MemberUpdate) {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Email != nil {
		m.Email = *u.Email
	}
	if u.Role != nil {
		m.UpdateRole(*u.Role)
	}
}

// UpdateRole sets the role, returning false for an unknown role.
func (m *TeamMember) UpdateRole(role MemberRole) bool {
	if !role.Valid() {
		return false
	}
	m.Role = role
	return true
}

func (m *TeamMember) Deactivate() { m.IsActive = false }

func (m *TeamMember) Activate() { m.IsActive = true }

// Clone returns a copy of m.
func (m *TeamMember) Clone() *TeamMember {
	c := *m
	return &c
}
