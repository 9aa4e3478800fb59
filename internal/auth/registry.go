package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/docdex/docdex/internal/log"
)

// Credential lifecycle states. A credential starts unvalidated, moves
// to validated on its first successful authentication, and to expired
// when its expiry passes. Deactivation is a separate flag so a revoked
// credential keeps its last lifecycle state for auditing.
const (
	StatusUnvalidated = "unvalidated"
	StatusValidated   = "validated"
	StatusExpired     = "expired"
)

// Credential is a stored API key with its grants.
type Credential struct {
	ID          string       `json:"id"`
	Key         string       `json:"key"`
	OrgID       string       `json:"org_id"`
	Permissions []Permission `json:"permissions"`
	Status      string       `json:"status"`
	Deactivated bool         `json:"deactivated"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at,omitzero"`
	LastUsedAt  time.Time    `json:"last_used_at,omitzero"`
}

type registryFile struct {
	Credentials map[string]*Credential `json:"credentials"`
}

// Registry persists credentials as a single JSON file, rewritten
// wholesale on every change. A process mutex serializes in-process
// writers (last-used stamping included); a file lock guards against
// the CLI editing the registry while the server runs.
type Registry struct {
	path   string
	mu     sync.Mutex
	flk    *flock.Flock
	logger log.Logger
	now    func() time.Time
}

// NewRegistry creates a registry backed by the JSON file at path. The
// file is created on first write.
func NewRegistry(path string, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{
		path:   path,
		flk:    flock.New(path + ".lock"),
		logger: logger,
		now:    time.Now,
	}
}

// Authenticate validates an API key and returns the caller's identity.
// On success the credential is marked validated and its last-used time
// is stamped; both updates are persisted before returning.
func (r *Registry) Authenticate(key string) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.flk.Lock(); err != nil {
		return Identity{}, fmt.Errorf("locking registry: %w", err)
	}
	defer func() { _ = r.flk.Unlock() }()

	creds, err := r.load()
	if err != nil {
		return Identity{}, err
	}

	cred, ok := creds[key]
	if !ok {
		return Identity{}, ErrCredentialInvalid
	}
	if cred.Deactivated {
		return Identity{}, fmt.Errorf("%w: %s", ErrCredentialDeactivated, cred.ID)
	}

	now := r.now()
	if !cred.ExpiresAt.IsZero() && now.After(cred.ExpiresAt) {
		if cred.Status != StatusExpired {
			cred.Status = StatusExpired
			if err := r.save(creds); err != nil {
				r.logger.Warn("failed to persist expiry", "credential_id", cred.ID, "error", err)
			}
		}
		return Identity{}, fmt.Errorf("%w: %s", ErrCredentialExpired, cred.ID)
	}
	if cred.Status == StatusExpired {
		return Identity{}, fmt.Errorf("%w: %s", ErrCredentialExpired, cred.ID)
	}

	cred.Status = StatusValidated
	cred.LastUsedAt = now
	if err := r.save(creds); err != nil {
		return Identity{}, err
	}

	return Identity{
		CredentialID: cred.ID,
		OrgID:        cred.OrgID,
		Permissions:  append([]Permission(nil), cred.Permissions...),
	}, nil
}

// Add creates a credential for an organization. A zero ttl means no
// expiry. Returns the stored credential including its generated key.
func (r *Registry) Add(orgID string, perms []Permission, ttl time.Duration) (Credential, error) {
	if orgID == "" {
		return Credential{}, fmt.Errorf("org id must not be empty")
	}
	if len(perms) == 0 {
		return Credential{}, fmt.Errorf("at least one permission required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.flk.Lock(); err != nil {
		return Credential{}, fmt.Errorf("locking registry: %w", err)
	}
	defer func() { _ = r.flk.Unlock() }()

	creds, err := r.load()
	if err != nil {
		return Credential{}, err
	}

	now := r.now()
	cred := &Credential{
		ID:          uuid.NewString(),
		Key:         uuid.NewString(),
		OrgID:       orgID,
		Permissions: append([]Permission(nil), perms...),
		Status:      StatusUnvalidated,
		CreatedAt:   now,
	}
	if ttl > 0 {
		cred.ExpiresAt = now.Add(ttl)
	}
	creds[cred.Key] = cred

	if err := r.save(creds); err != nil {
		return Credential{}, err
	}
	r.logger.Info("credential created", "credential_id", cred.ID, "org_id", orgID)
	return *cred, nil
}

// List returns all credentials ordered by creation time.
func (r *Registry) List() ([]Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	creds, err := r.load()
	if err != nil {
		return nil, err
	}

	out := make([]Credential, 0, len(creds))
	for _, cred := range creds {
		out = append(out, *cred)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Deactivate revokes a credential by ID.
func (r *Registry) Deactivate(credentialID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.flk.Lock(); err != nil {
		return fmt.Errorf("locking registry: %w", err)
	}
	defer func() { _ = r.flk.Unlock() }()

	creds, err := r.load()
	if err != nil {
		return err
	}
	for _, cred := range creds {
		if cred.ID == credentialID {
			cred.Deactivated = true
			if err := r.save(creds); err != nil {
				return err
			}
			r.logger.Info("credential deactivated", "credential_id", credentialID)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrCredentialInvalid, credentialID)
}

func (r *Registry) load() (map[string]*Credential, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*Credential{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", r.path, err)
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", r.path, err)
	}
	if file.Credentials == nil {
		file.Credentials = map[string]*Credential{}
	}
	return file.Credentials, nil
}

// save rewrites the registry wholesale via a temp file and rename, so
// a crash mid-write never leaves a truncated registry behind.
func (r *Registry) save(creds map[string]*Credential) error {
	data, err := json.MarshalIndent(registryFile{Credentials: creds}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating registry directory: %w", err)
		}
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}
