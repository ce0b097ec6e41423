package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/tm/internal/app"
	"github.com/joescharf/tm/internal/models"
	"github.com/joescharf/tm/internal/output"
)

var (
	memberName  string
	memberEmail string
	memberRole  string
	memberAll   bool
)

var memberCmd = &cobra.Command{
	Use:     "member",
	Aliases: []string{"members"},
	Short:   "Manage team members",
	RunE: func(cmd *cobra.Command, args []string) error {
		return memberListRun()
	},
}

var memberAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a team member",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return memberAddRun()
	},
}

var memberListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List team members",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return memberListRun()
	},
}

var memberUpdateCmd = &cobra.Command{
	Use:   "update <member-id>",
	Short: "Update a team member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return memberUpdateRun(cmd, args[0])
	},
}

var memberRemoveCmd = &cobra.Command{
	Use:     "remove <member-id>",
	Aliases: []string{"rm"},
	Short:   "Deactivate a team member",
	Long:    "Deactivate a team member. The member is kept for history and its email can be reused.",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return memberRemoveRun(args[0])
	},
}

var memberReactivateCmd = &cobra.Command{
	Use:   "reactivate <member-id>",
	Short: "Reactivate a removed team member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return memberReactivateRun(args[0])
	},
}

func init() {
	memberAddCmd.Flags().StringVar(&memberName, "name", "", "Full name (required)")
	memberAddCmd.Flags().StringVar(&memberEmail, "email", "", "Email address (required)")
	memberAddCmd.Flags().StringVar(&memberRole, "role", "", "Role: member, lead, manager (default member)")
	_ = memberAddCmd.MarkFlagRequired("name")
	_ = memberAddCmd.MarkFlagRequired("email")

	memberListCmd.Flags().BoolVar(&memberAll, "all", false, "Include removed members")

	memberUpdateCmd.Flags().StringVar(&memberName, "name", "", "New name")
	memberUpdateCmd.Flags().StringVar(&memberEmail, "email", "", "New email")
	memberUpdateCmd.Flags().StringVar(&memberRole, "role", "", "New role")

	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberListCmd)
	memberCmd.AddCommand(memberUpdateCmd)
	memberCmd.AddCommand(memberRemoveCmd)
	memberCmd.AddCommand(memberReactivateCmd)
	rootCmd.AddCommand(memberCmd)
}

func memberAddRun() error {
	if dryRun {
		ui.DryRunMsg("Would add member: %s <%s>", memberName, memberEmail)
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	m, err := a.Members.CreateMember(context.Background(), models.MemberInput{
		Name:  memberName,
		Email: memberEmail,
		Role:  models.MemberRole(strings.ToLower(memberRole)),
	})
	if err != nil {
		return err
	}
	ui.Success("Added %s %s (%s)", output.Cyan(shortID(m.ID)), m.Name, m.Role)
	return nil
}

func memberListRun() error {
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()

	members := a.Members.ListMembers(ctx)
	if memberAll {
		members = a.MemberRepo.GetAllIncludingInactive(ctx)
	}
	if len(members) == 0 {
		ui.Info("No team members. Use 'tm member add --name <name> --email <email>' to add one.")
		return nil
	}

	open := openTaskCounts(a)
	headers := []string{"ID", "Name", "Email", "Role", "Open Tasks", "Joined"}
	if memberAll {
		headers = append(headers, "Active")
	}
	table := ui.Table(headers)
	for _, m := range members {
		row := []string{
			shortID(m.ID),
			m.Name,
			m.Email,
			string(m.Role),
			fmt.Sprintf("%d", open[m.Name]),
			m.JoinedAt.Local().Format(time.DateOnly),
		}
		if memberAll {
			active := output.Green("yes")
			if !m.IsActive {
				active = output.Red("no")
			}
			row = append(row, active)
		}
		_ = table.Append(row)
	}
	_ = table.Render()
	return nil
}

// openTaskCounts counts incomplete tasks per assignee name.
func openTaskCounts(a *app.App) map[string]int {
	counts := make(map[string]int)
	for _, t := range a.Tasks.GetAllTasks() {
		if t.Status != models.TaskStatusCompleted && t.Assignee != "" {
			counts[t.Assignee]++
		}
	}
	return counts
}

func memberUpdateRun(cmd *cobra.Command, ref string) error {
	var u models.MemberUpdate
	flags := cmd.Flags()
	if flags.Changed("name") {
		u.Name = &memberName
	}
	if flags.Changed("email") {
		u.Email = &memberEmail
	}
	if flags.Changed("role") {
		r := models.MemberRole(strings.ToLower(memberRole))
		u.Role = &r
	}
	if u.Name == nil && u.Email == nil && u.Role == nil {
		return fmt.Errorf("no updates specified (use --name, --email or --role)")
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	m, err := findMember(a, ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would update member %s", shortID(m.ID))
		return nil
	}

	updated, err := a.Members.UpdateMember(context.Background(), m.ID, u)
	if err != nil {
		return err
	}
	ui.Success("Updated %s %s", output.Cyan(shortID(updated.ID)), updated.Name)
	return nil
}

func memberRemoveRun(ref string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	m, err := findMember(a, ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove member %s", m.Name)
		return nil
	}

	removed, err := a.Members.DeleteMember(context.Background(), m.ID)
	if err != nil {
		return err
	}
	ui.Success("Removed %s %s", output.Cyan(shortID(removed.ID)), removed.Name)
	return nil
}

func memberReactivateRun(ref string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	m, err := findMember(a, ref)
	if err != nil {
		return err
	}
	if m.IsActive {
		ui.Info("%s is already active", m.Name)
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would reactivate member %s", m.Name)
		return nil
	}

	if _, err := a.Members.ReactivateMember(context.Background(), m.ID); err != nil {
		return err
	}
	ui.Success("Reactivated %s %s", output.Cyan(shortID(m.ID)), m.Name)
	return nil
}

// findMember finds a member, active or not, by full ID or unique prefix.
func findMember(a *app.App, ref string) (*models.TeamMember, error) {
	ctx := context.Background()
	if m, err := a.Members.GetMember(ctx, ref); err == nil {
		return m, nil
	}

	upper := strings.ToUpper(ref)
	var matches []*models.TeamMember
	for _, m := range a.MemberRepo.GetAllIncludingInactive(ctx) {
		if strings.HasPrefix(m.ID, upper) {
			matches = append(matches, m)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("member not found: %s", ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous member ID %s: matches %d members", ref, len(matches))
	}
}
