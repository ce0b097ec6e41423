package cmd

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tm/internal/actions"
	"github.com/joescharf/tm/internal/models"
	"github.com/joescharf/tm/internal/weather"
)

func addMember(t *testing.T, name, email string) *models.TeamMember {
	t.Helper()
	memberName, memberEmail, memberRole = name, email, ""
	require.NoError(t, memberAddRun())
	memberName, memberEmail = "", ""
	for _, m := range appState.Members.ListMembers(context.Background()) {
		if m.Email == email {
			return m
		}
	}
	t.Fatalf("member %s not created", email)
	return nil
}

func TestMemberAdd(t *testing.T) {
	out := cliEnv(t)

	m := addMember(t, "Ana Lima", "ana@example.com")
	assert.Equal(t, models.MemberRoleMember, m.Role)
	assert.Contains(t, out.String(), "Added")

	memberName, memberEmail = "Other Ana", "ana@example.com"
	assert.ErrorIs(t, memberAddRun(), actions.ErrValidation)

	memberName, memberEmail, memberRole = "Cy", "cy@example.com", "boss"
	assert.ErrorIs(t, memberAddRun(), actions.ErrValidation)
}

func TestMemberList(t *testing.T) {
	out := cliEnv(t)
	require.NoError(t, memberListRun())
	assert.Contains(t, out.String(), "No team members")

	addMember(t, "Ana", "ana@example.com")
	bo := addMember(t, "Bo", "bo@example.com")
	addTask(t, "for ana")
	require.NoError(t, taskUpdateRun(updateCmd(t, map[string]string{"assignee": "Ana"}), appState.Tasks.GetAllTasks()[0].ID))

	counts := openTaskCounts(appState)
	assert.Equal(t, 1, counts["Ana"])

	require.NoError(t, memberRemoveRun(bo.ID))

	out.Reset()
	require.NoError(t, memberListRun())
	assert.Contains(t, out.String(), "Ana")
	assert.NotContains(t, out.String(), "bo@example.com")

	out.Reset()
	memberAll = true
	require.NoError(t, memberListRun())
	assert.Contains(t, out.String(), "bo@example.com")
	assert.Contains(t, out.String(), "Active")
}

func TestMemberUpdate(t *testing.T) {
	cliEnv(t)
	m := addMember(t, "Ana", "ana@example.com")

	c := &cobra.Command{}
	c.Flags().StringVar(&memberName, "name", "", "")
	c.Flags().StringVar(&memberEmail, "email", "", "")
	c.Flags().StringVar(&memberRole, "role", "", "")

	err := memberUpdateRun(c, m.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no updates specified")

	require.NoError(t, c.Flags().Set("role", "LEAD"))
	require.NoError(t, memberUpdateRun(c, shortID(m.ID)))

	got, err := appState.Members.GetMember(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberRoleLead, got.Role)
	assert.Equal(t, "Ana", got.Name)
}

func TestMemberRemoveAndReactivate(t *testing.T) {
	out := cliEnv(t)
	m := addMember(t, "Ana", "ana@example.com")

	require.NoError(t, memberRemoveRun(m.ID))
	assert.Empty(t, appState.Members.ListMembers(context.Background()))

	require.NoError(t, memberReactivateRun(shortID(m.ID)))
	active := appState.Members.ListMembers(context.Background())
	require.Len(t, active, 1)
	assert.Equal(t, m.ID, active[0].ID)

	out.Reset()
	require.NoError(t, memberReactivateRun(m.ID))
	assert.Contains(t, out.String(), "already active")

	assert.Error(t, memberRemoveRun("ZZZZ"))
}

func TestMemberReactivate_EmailTaken(t *testing.T) {
	cliEnv(t)
	m := addMember(t, "Ana", "ana@example.com")
	require.NoError(t, memberRemoveRun(m.ID))
	addMember(t, "Ana Two", "ana@example.com")

	err := memberReactivateRun(m.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ana Two")
}

func TestBooksRun(t *testing.T) {
	out := cliEnv(t)

	require.NoError(t, booksRun())
	assert.Contains(t, out.String(), "Deep Work")
	assert.Contains(t, out.String(), "₹452")

	out.Reset()
	booksSearch = "rowling"
	require.NoError(t, booksRun())
	assert.Contains(t, out.String(), "Goblet of Fire")
	assert.NotContains(t, out.String(), "Deep Work")

	out.Reset()
	booksSearch = "tolstoy"
	require.NoError(t, booksRun())
	assert.Contains(t, out.String(), "No books found")
}

func TestWeatherRun(t *testing.T) {
	out := cliEnv(t)
	viper.Set("weather.delay", "0s")

	require.NoError(t, weatherRun(context.Background(), "Pune"))
	assert.Contains(t, out.String(), "Pune")
	assert.Contains(t, out.String(), "cloudy")

	err := weatherRun(context.Background(), "Nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere")

	assert.ErrorIs(t, weatherRun(context.Background(), "   "), weather.ErrEmptyCity)
}
