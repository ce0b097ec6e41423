package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTeamMember_Defaults(t *testing.T) {
	m := NewTeamMember(MemberInput{Name: "Ana", Email: "ana@example.com"}, baseTime)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, MemberRoleMember, m.Role)
	assert.True(t, m.IsActive)
	assert.Equal(t, baseTime, m.JoinedAt)
}

func TestTeamMember_UpdateRole(t *testing.T) {
	m := NewTeamMember(MemberInput{Name: "Ana", Email: "ana@example.com", Role: MemberRoleLead}, baseTime)

	assert.False(t, m.UpdateRole("owner"))
	assert.Equal(t, MemberRoleLead, m.Role)

	assert.True(t, m.UpdateRole(MemberRoleManager))
	assert.Equal(t, MemberRoleManager, m.Role)
}

func TestTeamMember_Apply(t *testing.T) {
	m := NewTeamMember(MemberInput{Name: "Ana", Email: "ana@example.com"}, baseTime)

	m.Apply(MemberUpdate{Email: ptr("ana@corp.io"), Role: ptr(MemberRole("boss"))})

	assert.Equal(t, "Ana", m.Name)
	assert.Equal(t, "ana@corp.io", m.Email)
	assert.Equal(t, MemberRoleMember, m.Role)
}

func TestTeamMember_ActivateDeactivate(t *testing.T) {
	m := NewTeamMember(MemberInput{Name: "Ana", Email: "ana@example.com"}, baseTime)
	m.Deactivate()
	assert.False(t, m.IsActive)
	m.Activate()
	assert.True(t, m.IsActive)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@b.co"))
	assert.True(t, ValidEmail("first.last@team.example.org"))
	assert.False(t, ValidEmail("nobody"))
	assert.False(t, ValidEmail("a@b"))
	assert.False(t, ValidEmail(""))
}

func TestMemberPersistedRoundTrip(t *testing.T) {
	m := NewTeamMember(MemberInput{Name: "Ana", Email: "ana@example.com", Role: MemberRoleLead}, baseTime)
	m.Deactivate()

	got := MemberFromPersisted(m.Persisted())
	assert.Equal(t, m, got)
}
