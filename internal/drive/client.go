// Package drive is the file-storage backend: the app folder and per-planter
// photo folders in Google Drive, photo upload, listing, download and
// deletion, and sharing permissions.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/tonimelisma/niwalog/internal/gapi"
)

// AppFolderName is the Drive folder holding everything the diary stores.
const AppFolderName = "niwalog"

const (
	folderMimeType = "application/vnd.google-apps.folder"
	photoMimeType  = "image/jpeg"

	photoFields      = "id,name,thumbnailLink,webContentLink,createdTime"
	permissionFields = "id,type,role,emailAddress,displayName"
)

// Share roles a collaborator can be granted.
const (
	RoleWriter = "writer"
	RoleReader = "reader"
)

// ErrInvalidRole is returned by Share for roles other than writer or reader.
var ErrInvalidRole = errors.New("drive: role must be writer or reader")

// Photo is an image stored in a planter folder.
type Photo struct {
	ID             string
	Name           string
	ThumbnailLink  string
	WebContentLink string
	CreatedTime    time.Time
}

// Permission is a sharing grant on a file or folder.
type Permission struct {
	ID           string
	Type         string
	Role         string
	EmailAddress string
	DisplayName  string
}

// Client talks to Drive with one access token.
type Client struct {
	svc *driveapi.Service
}

// New creates a Client authorized by token.
func New(ctx context.Context, cfg gapi.Config, token string) (*Client, error) {
	svc, err := gapi.Service(ctx, cfg, token, "drive: creating service", driveapi.NewService)
	if err != nil {
		return nil, err
	}

	return &Client{svc: svc}, nil
}

// quote renders s as a Drive query string literal.
func quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

// findFolder returns the id of the first folder matching name under parent
// (any location when parent is empty), or "" when there is none.
func (c *Client) findFolder(ctx context.Context, name, parent string) (string, error) {
	clauses := []string{
		"name = " + quote(name),
		"mimeType = " + quote(folderMimeType),
		"trashed = false",
	}

	if parent != "" {
		clauses = append(clauses, quote(parent)+" in parents")
	}

	list, err := c.svc.Files.List().
		Q(strings.Join(clauses, " and ")).
		Fields("files(id,name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", gapi.Wrap("drive: searching folder "+name, err)
	}

	if len(list.Files) == 0 {
		return "", nil
	}

	return list.Files[0].Id, nil
}

// CreateFolder creates a folder named name under parent (the Drive root
// when parent is empty) and returns its id.
func (c *Client) CreateFolder(ctx context.Context, name, parent string) (string, error) {
	f := &driveapi.File{Name: name, MimeType: folderMimeType}
	if parent != "" {
		f.Parents = []string{parent}
	}

	created, err := c.svc.Files.Create(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", gapi.Wrap("drive: creating folder "+name, err)
	}

	return created.Id, nil
}

// EnsureAppFolder returns the id of the app folder, creating it at the
// Drive root when missing.
func (c *Client) EnsureAppFolder(ctx context.Context) (string, error) {
	return c.ensureFolder(ctx, AppFolderName, "")
}

// EnsurePlanterFolder returns the id of the photo folder for planterID
// inside parent, creating it when missing.
func (c *Client) EnsurePlanterFolder(ctx context.Context, planterID, parent string) (string, error) {
	if parent == "" {
		return "", errors.New("drive: planter folder needs a parent folder")
	}

	return c.ensureFolder(ctx, planterID, parent)
}

func (c *Client) ensureFolder(ctx context.Context, name, parent string) (string, error) {
	id, err := c.findFolder(ctx, name, parent)
	if err != nil || id != "" {
		return id, err
	}

	return c.CreateFolder(ctx, name, parent)
}

// Upload stores a JPEG named name in folder.
func (c *Client) Upload(ctx context.Context, name, folder string, r io.Reader) (Photo, error) {
	f := &driveapi.File{Name: name, Parents: []string{folder}}

	created, err := c.svc.Files.Create(f).
		Media(r, googleapi.ContentType(photoMimeType)).
		Fields(photoFields).
		Context(ctx).
		Do()
	if err != nil {
		return Photo{}, gapi.Wrap("drive: uploading "+name, err)
	}

	return toPhoto(created), nil
}

// List returns the files in folder, newest first.
func (c *Client) List(ctx context.Context, folder string) ([]Photo, error) {
	var photos []Photo

	err := c.svc.Files.List().
		Q(quote(folder)+" in parents and trashed = false").
		Fields("nextPageToken,files("+photoFields+")").
		OrderBy("createdTime desc").
		Pages(ctx, func(list *driveapi.FileList) error {
			for _, f := range list.Files {
				photos = append(photos, toPhoto(f))
			}

			return nil
		})
	if err != nil {
		return nil, gapi.Wrap("drive: listing folder", err)
	}

	return photos, nil
}

// Link returns a viewable link for a file: its thumbnail when Drive has one,
// otherwise its content link.
func (c *Client) Link(ctx context.Context, id string) (string, error) {
	f, err := c.svc.Files.Get(id).Fields("webContentLink,thumbnailLink").Context(ctx).Do()
	if err != nil {
		return "", gapi.Wrap("drive: getting link for "+id, err)
	}

	if f.ThumbnailLink != "" {
		return f.ThumbnailLink, nil
	}

	return f.WebContentLink, nil
}

// Download copies the content of file id to w and returns the byte count.
func (c *Client) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	resp, err := c.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return 0, gapi.Wrap("drive: downloading "+id, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("drive: reading %s: %w", id, err)
	}

	return n, nil
}

// Delete removes file id permanently.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return gapi.Wrap("drive: deleting "+id, err)
	}

	return nil
}

// Permissions lists the sharing grants on file id.
func (c *Client) Permissions(ctx context.Context, id string) ([]Permission, error) {
	list, err := c.svc.Permissions.List(id).
		Fields("permissions(" + permissionFields + ")").
		Context(ctx).
		Do()
	if err != nil {
		return nil, gapi.Wrap("drive: listing permissions of "+id, err)
	}

	perms := make([]Permission, 0, len(list.Permissions))
	for _, p := range list.Permissions {
		perms = append(perms, toPermission(p))
	}

	return perms, nil
}

// Share grants email role on file id. notify sends Google's notification
// email.
func (c *Client) Share(ctx context.Context, id, email, role string, notify bool) (Permission, error) {
	if role != RoleWriter && role != RoleReader {
		return Permission{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	p, err := c.svc.Permissions.Create(id, &driveapi.Permission{
		Type:         "user",
		Role:         role,
		EmailAddress: email,
	}).
		SendNotificationEmail(notify).
		Fields(permissionFields).
		Context(ctx).
		Do()
	if err != nil {
		return Permission{}, gapi.Wrap("drive: sharing "+id+" with "+email, err)
	}

	return toPermission(p), nil
}

// Unshare removes permission permID from file id.
func (c *Client) Unshare(ctx context.Context, id, permID string) error {
	if err := c.svc.Permissions.Delete(id, permID).Context(ctx).Do(); err != nil {
		return gapi.Wrap("drive: removing permission "+permID, err)
	}

	return nil
}

func toPhoto(f *driveapi.File) Photo {
	created, _ := time.Parse(time.RFC3339, f.CreatedTime)

	return Photo{
		ID:             f.Id,
		Name:           f.Name,
		ThumbnailLink:  f.ThumbnailLink,
		WebContentLink: f.WebContentLink,
		CreatedTime:    created,
	}
}

func toPermission(p *driveapi.Permission) Permission {
	return Permission{
		ID:           p.Id,
		Type:         p.Type,
		Role:         p.Role,
		EmailAddress: p.EmailAddress,
		DisplayName:  p.DisplayName,
	}
}
