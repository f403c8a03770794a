package auth

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/niwalog/internal/tokenfile"
)

// FileStore is a Store backed by the credential file, so a refreshed token
// survives the process and a cleared store is a signed-out machine.
//
// Reads are served from memory. Writes update memory first and then persist;
// persistence failures are logged, not returned, because the Store contract
// has no error path and the in-memory credential is still correct for this
// process.
type FileStore struct {
	mu     sync.Mutex
	mem    MemoryStore
	path   string
	logger *slog.Logger
}

// OpenFileStore loads the credential file at path. A missing file yields a
// signed-out store.
func OpenFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &FileStore{path: path, logger: logger}

	tok, meta, err := tokenfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("auth: opening credential store: %w", err)
	}

	if tok != nil && tok.AccessToken != "" {
		s.mem.Replace(Credential{
			Subject:     meta[tokenfile.MetaSubject],
			BearerToken: tok.AccessToken,
		})
	}

	_, signedIn := s.mem.Current()
	logger.Debug("credential store opened",
		slog.String("path", path),
		slog.Bool("signed_in", signedIn),
	)

	return s, nil
}

// Path returns the credential file path.
func (s *FileStore) Path() string {
	return s.path
}

// Current implements Store.
func (s *FileStore) Current() (Credential, bool) {
	return s.mem.Current()
}

// Replace implements Store. The saved refresh token and other metadata are
// kept; only the access token and subject change.
func (s *FileStore) Replace(cred Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem.Replace(cred)

	if err := s.persist(cred); err != nil {
		s.logger.Warn("failed to persist credential",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
	}
}

// Clear implements Store. Removes the credential file.
func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem.Clear()

	if err := tokenfile.Remove(s.path); err != nil {
		s.logger.Warn("failed to remove credential file",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return
	}

	s.logger.Info("credential cleared", slog.String("path", s.path))
}

func (s *FileStore) persist(cred Credential) error {
	tok, meta, err := tokenfile.Load(s.path)
	if err != nil {
		return err
	}

	if tok == nil {
		tok = &oauth2.Token{TokenType: "Bearer"}
	}

	// A different access token invalidates the stored expiry.
	if tok.AccessToken != cred.BearerToken {
		tok.AccessToken = cred.BearerToken
		tok.Expiry = time.Time{}
	}

	if meta == nil {
		meta = make(map[string]string, 1)
	}

	meta[tokenfile.MetaSubject] = cred.Subject

	return tokenfile.Save(s.path, tok, meta)
}
