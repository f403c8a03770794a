package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// File is a file or folder held by the Drive fake.
type File struct {
	ID          string
	Name        string
	MimeType    string
	Parents     []string
	Content     []byte
	CreatedTime time.Time
	Trashed     bool
	Permissions []Permission
}

// Permission is a sharing grant on a fake Drive file.
type Permission struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Role         string `json:"role"`
	EmailAddress string `json:"emailAddress,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
}

// Drive is an in-process fake of the Google Drive v3 REST API: file list
// with a subset of the query language, metadata create, multipart upload,
// media download, delete and permissions.
type Drive struct {
	URL   string
	Owner string

	mu      sync.Mutex
	token   string
	files   map[string]*File
	nextID  int
	clock   time.Time
	uploads int
}

// NewDrive starts a fake Drive API accepting token. The server is closed
// when the test ends.
func NewDrive(t testing.TB, token string) *Drive {
	t.Helper()

	f := &Drive{
		Owner: "owner@example.com",
		token: token,
		files: map[string]*File{},
		clock: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}

	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	f.URL = srv.URL + "/drive/v3/"

	return f
}

// SetToken changes the bearer token the fake accepts.
func (f *Drive) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.token = token
}

// Put stores a file directly and returns its id.
func (f *Drive) Put(file File) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.add(&file)
}

// File returns a copy of the file with id.
func (f *Drive) File(id string) (File, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[id]
	if !ok {
		return File{}, false
	}

	return *file, true
}

// Children returns the non-trashed files directly under parent, by name.
func (f *Drive) Children(parent string) []File {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []File

	for _, file := range f.files {
		if !file.Trashed && slices.Contains(file.Parents, parent) {
			out = append(out, *file)
		}
	}

	slices.SortFunc(out, func(a, b File) int { return strings.Compare(a.Name, b.Name) })

	return out
}

// Uploads returns the number of media uploads served.
func (f *Drive) Uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.uploads
}

func (f *Drive) add(file *File) string {
	f.nextID++

	if file.ID == "" {
		file.ID = fmt.Sprintf("file-%03d", f.nextID)
	}

	if file.CreatedTime.IsZero() {
		// Strictly increasing so "newest first" ordering is observable.
		file.CreatedTime = f.clock.Add(time.Duration(f.nextID) * time.Minute)
	}

	if len(file.Permissions) == 0 {
		file.Permissions = []Permission{{ID: "perm-owner", Type: "user", Role: "owner", EmailAddress: f.Owner}}
	}

	f.files[file.ID] = file

	return file.ID
}

var (
	filesPath       = regexp.MustCompile(`^/(?:upload/)?drive/v3/files(?:/([^/]+))?$`)
	permissionsPath = regexp.MustCompile(`^/drive/v3/files/([^/]+)/permissions(?:/([^/]+))?$`)
)

func (f *Drive) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+f.token {
		writeGoogleError(w, http.StatusUnauthorized, "Request had invalid authentication credentials.")
		return
	}

	if m := permissionsPath.FindStringSubmatch(r.URL.Path); m != nil {
		f.servePermissions(w, r, m[1], m[2])
		return
	}

	m := filesPath.FindStringSubmatch(r.URL.Path)
	if m == nil {
		writeGoogleError(w, http.StatusNotFound, "unsupported path "+r.URL.Path)
		return
	}

	id := m[1]

	switch {
	case id == "" && r.Method == http.MethodGet:
		f.serveList(w, r)
	case id == "" && r.Method == http.MethodPost:
		f.serveCreate(w, r)
	case r.Method == http.MethodGet:
		f.serveGet(w, r, id)
	case r.Method == http.MethodDelete:
		f.serveDelete(w, id)
	default:
		writeGoogleError(w, http.StatusMethodNotAllowed, r.Method)
	}
}

func (f *Drive) fileJSON(file *File) map[string]any {
	out := map[string]any{
		"id":          file.ID,
		"name":        file.Name,
		"mimeType":    file.MimeType,
		"parents":     file.Parents,
		"createdTime": file.CreatedTime.Format(time.RFC3339),
	}

	if strings.HasPrefix(file.MimeType, "image/") {
		out["thumbnailLink"] = "https://thumbs.example.com/" + file.ID
	}

	if file.MimeType != folderMime {
		out["webContentLink"] = "https://drive.example.com/uc?id=" + file.ID
	}

	return out
}

const folderMime = "application/vnd.google-apps.folder"

var (
	nameClause   = regexp.MustCompile(`^name\s*=\s*'((?:[^'\\]|\\.)*)'$`)
	parentClause = regexp.MustCompile(`^'((?:[^'\\]|\\.)*)'\s+in\s+parents$`)
	mimeClause   = regexp.MustCompile(`^mimeType\s*(=|!=)\s*'([^']*)'$`)
	trashClause  = regexp.MustCompile(`^trashed\s*=\s*(true|false)$`)
)

func unescapeLiteral(s string) string {
	return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(s)
}

// match evaluates a conjunction of the query clauses the client uses.
func match(file *File, q string) (bool, error) {
	if strings.TrimSpace(q) == "" {
		return !file.Trashed, nil
	}

	for _, clause := range strings.Split(q, " and ") {
		clause = strings.TrimSpace(clause)

		switch {
		case nameClause.MatchString(clause):
			if file.Name != unescapeLiteral(nameClause.FindStringSubmatch(clause)[1]) {
				return false, nil
			}
		case parentClause.MatchString(clause):
			if !slices.Contains(file.Parents, unescapeLiteral(parentClause.FindStringSubmatch(clause)[1])) {
				return false, nil
			}
		case mimeClause.MatchString(clause):
			m := mimeClause.FindStringSubmatch(clause)
			if (m[1] == "=") != (file.MimeType == m[2]) {
				return false, nil
			}
		case trashClause.MatchString(clause):
			if file.Trashed != (trashClause.FindStringSubmatch(clause)[1] == "true") {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported query clause %q", clause)
		}
	}

	return true, nil
}

func (f *Drive) serveList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	var hits []*File

	for _, file := range f.files {
		ok, err := match(file, q)
		if err != nil {
			writeGoogleError(w, http.StatusBadRequest, "Invalid Value: "+err.Error())
			return
		}

		if ok {
			hits = append(hits, file)
		}
	}

	if strings.HasPrefix(r.URL.Query().Get("orderBy"), "createdTime desc") {
		slices.SortFunc(hits, func(a, b *File) int { return b.CreatedTime.Compare(a.CreatedTime) })
	} else {
		slices.SortFunc(hits, func(a, b *File) int { return strings.Compare(a.ID, b.ID) })
	}

	files := make([]map[string]any, 0, len(hits))
	for _, file := range hits {
		files = append(files, f.fileJSON(file))
	}

	writeJSON(w, map[string]any{"files": files})
}

type fileMeta struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents"`
}

func (f *Drive) serveCreate(w http.ResponseWriter, r *http.Request) {
	var (
		meta    fileMeta
		content []byte
	)

	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(r.Body, params["boundary"])

		metaPart, err := mr.NextPart()
		if err != nil {
			writeGoogleError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
			writeGoogleError(w, http.StatusBadRequest, err.Error())
			return
		}

		mediaPart, err := mr.NextPart()
		if err != nil {
			writeGoogleError(w, http.StatusBadRequest, err.Error())
			return
		}

		if content, err = io.ReadAll(mediaPart); err != nil {
			writeGoogleError(w, http.StatusBadRequest, err.Error())
			return
		}

		if meta.MimeType == "" {
			meta.MimeType = mediaPart.Header.Get("Content-Type")
		}

		f.uploads++
	} else if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeGoogleError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, p := range meta.Parents {
		if _, ok := f.files[p]; !ok && p != "root" {
			writeGoogleError(w, http.StatusNotFound, "File not found: "+p+".")
			return
		}
	}

	file := &File{Name: meta.Name, MimeType: meta.MimeType, Parents: meta.Parents, Content: content}
	if len(file.Parents) == 0 {
		file.Parents = []string{"root"}
	}

	f.add(file)

	writeJSON(w, f.fileJSON(file))
}

func (f *Drive) serveGet(w http.ResponseWriter, r *http.Request, id string) {
	file, ok := f.files[id]
	if !ok || file.Trashed {
		writeGoogleError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}

	if r.URL.Query().Get("alt") == "media" {
		w.Header().Set("Content-Type", file.MimeType)
		_, _ = w.Write(file.Content)

		return
	}

	writeJSON(w, f.fileJSON(file))
}

func (f *Drive) serveDelete(w http.ResponseWriter, id string) {
	if _, ok := f.files[id]; !ok {
		writeGoogleError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}

	delete(f.files, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *Drive) servePermissions(w http.ResponseWriter, r *http.Request, fileID, permID string) {
	file, ok := f.files[fileID]
	if !ok {
		writeGoogleError(w, http.StatusNotFound, "File not found: "+fileID+".")
		return
	}

	switch {
	case r.Method == http.MethodGet && permID == "":
		writeJSON(w, map[string]any{"permissions": file.Permissions})
	case r.Method == http.MethodPost && permID == "":
		var p Permission
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeGoogleError(w, http.StatusBadRequest, err.Error())
			return
		}

		f.nextID++
		p.ID = fmt.Sprintf("perm-%03d", f.nextID)
		file.Permissions = append(file.Permissions, p)

		writeJSON(w, p)
	case r.Method == http.MethodDelete && permID != "":
		idx := slices.IndexFunc(file.Permissions, func(p Permission) bool { return p.ID == permID })
		if idx < 0 {
			writeGoogleError(w, http.StatusNotFound, "Permission not found: "+permID+".")
			return
		}

		file.Permissions = slices.Delete(file.Permissions, idx, idx+1)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeGoogleError(w, http.StatusMethodNotAllowed, r.Method)
	}
}
