package diary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/tonimelisma/niwalog/internal/drive"
	"github.com/tonimelisma/niwalog/internal/gapi"
	"github.com/tonimelisma/niwalog/internal/sheets"
)

// Collaborators lists the sharing grants on the app folder.
func (s *Service) Collaborators(ctx context.Context) ([]drive.Permission, error) {
	folder, err := s.EnsureAppFolder(ctx)
	if err != nil {
		return nil, err
	}

	return withDrive(ctx, s, func(ctx context.Context, c *drive.Client) ([]drive.Permission, error) {
		return c.Permissions(ctx, folder)
	})
}

// Share grants email role on both the app folder and the spreadsheet and
// records the address in the shared_emails setting.
func (s *Service) Share(ctx context.Context, email, role string, notify bool) (drive.Permission, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return drive.Permission{}, fmt.Errorf("diary: invalid email %q", email)
	}

	folder, err := s.EnsureAppFolder(ctx)
	if err != nil {
		return drive.Permission{}, err
	}

	if s.spreadsheetID == "" {
		return drive.Permission{}, ErrNoSpreadsheet
	}

	perm, err := withDrive(ctx, s, func(ctx context.Context, c *drive.Client) (drive.Permission, error) {
		perm, err := c.Share(ctx, folder, email, role, notify)
		if err != nil {
			return perm, err
		}

		if _, err := c.Share(ctx, s.spreadsheetID, email, role, false); err != nil {
			return perm, err
		}

		return perm, nil
	})
	if err != nil {
		return perm, err
	}

	if err := s.updateSharedEmails(ctx, func(emails []string) []string {
		if slices.Contains(emails, email) {
			return emails
		}

		return append(emails, email)
	}); err != nil {
		return perm, err
	}

	s.logger.Info("diary shared", slog.String("email", email), slog.String("role", role))

	return perm, nil
}

// Unshare removes the app folder grant permID and the same collaborator's
// grant on the spreadsheet.
func (s *Service) Unshare(ctx context.Context, permID string) error {
	folder, err := s.EnsureAppFolder(ctx)
	if err != nil {
		return err
	}

	email, err := withDrive(ctx, s, func(ctx context.Context, c *drive.Client) (string, error) {
		perms, err := c.Permissions(ctx, folder)
		if err != nil {
			return "", err
		}

		idx := slices.IndexFunc(perms, func(p drive.Permission) bool { return p.ID == permID })
		if idx < 0 {
			return "", fmt.Errorf("%w: permission %q", ErrNotFound, permID)
		}

		if perms[idx].Role == "owner" {
			return "", fmt.Errorf("diary: cannot remove the owner %s", perms[idx].EmailAddress)
		}

		if err := c.Unshare(ctx, folder, permID); err != nil {
			return "", err
		}

		email := perms[idx].EmailAddress
		if email == "" || s.spreadsheetID == "" {
			return email, nil
		}

		sheetPerms, err := c.Permissions(ctx, s.spreadsheetID)
		if err != nil {
			return email, err
		}

		for _, p := range sheetPerms {
			if p.EmailAddress != email || p.Role == "owner" {
				continue
			}

			if err := c.Unshare(ctx, s.spreadsheetID, p.ID); err != nil && !errors.Is(err, gapi.ErrNotFound) {
				return email, err
			}
		}

		return email, nil
	})
	if err != nil {
		return err
	}

	if email != "" {
		if err := s.updateSharedEmails(ctx, func(emails []string) []string {
			return slices.DeleteFunc(emails, func(e string) bool { return e == email })
		}); err != nil {
			return err
		}
	}

	s.logger.Info("collaborator removed", slog.String("permission_id", permID))

	return nil
}

func (s *Service) updateSharedEmails(ctx context.Context, change func([]string) []string) error {
	return s.runSheets(ctx, func(ctx context.Context, c *sheets.Client) error {
		settings, err := c.ReadSettings(ctx)
		if err != nil {
			return err
		}

		var emails []string

		for _, e := range strings.Split(settings[sheets.SettingSharedEmails], ",") {
			if e = strings.TrimSpace(e); e != "" {
				emails = append(emails, e)
			}
		}

		return c.PutSetting(ctx, sheets.SettingSharedEmails, strings.Join(change(emails), ","))
	})
}
