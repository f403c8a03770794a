package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newPhotoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "photo",
		Aliases: []string{"photos"},
		Short:   "Browse planter photos stored in Drive",
	}

	cmd.AddCommand(
		newPhotoListCmd(),
		newPhotoGetCmd(),
		newPhotoLinkCmd(),
		newPhotoDeleteCmd(),
	)

	return cmd
}

func newPhotoListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <planter-id>",
		Short: "List a planter's photos, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			photos, err := s.Diary.ListPhotos(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, photos)
			}

			rows := make([][]string, 0, len(photos))
			for _, p := range photos {
				rows = append(rows, []string{p.ID, p.Name, p.CreatedTime.Local().Format("2006-01-02 15:04")})
			}

			printTable(cc.Out, []string{"ID", "NAME", "TAKEN"}, rows)

			return nil
		},
	}
}

func newPhotoGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <photo-id> [file]",
		Short: "Download a photo (to stdout when no file or \"-\" is given)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()

			target := "-"
			if len(args) == 2 {
				target = args[1]
			}

			if target != "-" {
				f, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("creating %s: %w", target, err)
				}

				defer func() {
					if cerr := f.Close(); cerr != nil {
						err = errors.Join(err, cerr)
					}

					if err != nil {
						os.Remove(target)
					}
				}()

				w = f
			}

			n, err := s.Diary.DownloadPhoto(cmd.Context(), args[0], w)
			if err != nil {
				return err
			}

			if target != "-" {
				cc.Statusf("Saved %s (%d bytes)\n", target, n)
			}

			return nil
		},
	}
}

func newPhotoLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <photo-id>",
		Short: "Print a browser link to a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			link, err := s.Diary.PhotoLink(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cc.Out, link)

			return nil
		},
	}
}

func newPhotoDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <photo-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a photo from Drive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			if err := s.Diary.DeletePhoto(cmd.Context(), args[0]); err != nil {
				return err
			}

			cc.Statusf("Deleted photo %s\n", args[0])

			return nil
		},
	}
}
