package main

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/drive"
)

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Share the diary with family or friends",
		Long: heredoc.Doc(`
			Sharing grants access to both the spreadsheet and the photo folder.
			Writers can log activities; readers can only look.
		`),
	}

	cmd.AddCommand(
		newShareListCmd(),
		newShareAddCmd(),
		newShareRemoveCmd(),
	)

	return cmd
}

func newShareListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List who has access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			perms, err := s.Diary.Collaborators(cmd.Context())
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, perms)
			}

			rows := make([][]string, 0, len(perms))
			for _, p := range perms {
				who := p.EmailAddress
				if who == "" {
					who = p.Type
				}

				rows = append(rows, []string{p.ID, who, p.DisplayName, p.Role})
			}

			printTable(cc.Out, []string{"ID", "EMAIL", "NAME", "ROLE"}, rows)

			return nil
		},
	}
}

func newShareAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Give someone access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			role, _ := cmd.Flags().GetString("role")
			notify, _ := cmd.Flags().GetBool("notify")

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			perm, err := s.Diary.Share(cmd.Context(), args[0], role, notify)
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, perm)
			}

			cc.Statusf("Shared with %s as %s (permission %s)\n", args[0], perm.Role, perm.ID)

			return nil
		},
	}

	cmd.Flags().String("role", drive.RoleWriter, "writer or reader")
	cmd.Flags().Bool("notify", true, "email the person about the invitation")

	return cmd
}

func newShareRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <permission-id>",
		Aliases: []string{"rm"},
		Short:   "Revoke someone's access (see 'share list' for IDs)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			if err := s.Diary.Unshare(cmd.Context(), args[0]); err != nil {
				return err
			}

			cc.Statusf("Removed permission %s\n", args[0])

			return nil
		},
	}
}
