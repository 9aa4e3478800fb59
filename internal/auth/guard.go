package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/docdex/docdex/internal/log"
	"github.com/docdex/docdex/internal/store"
)

// Metadata keys stamped onto every indexed document.
const (
	MetaOrgID      = "org_id"
	MetaUploadedBy = "uploaded_by"
	MetaUploadedAt = "uploaded_at"
)

// Guard wraps a vector store with permission checks and tenant
// scoping. Writes stamp the caller's organization onto each document;
// searches force an organization filter so results never cross
// tenants, whatever filter the caller supplies.
type Guard struct {
	store  store.VectorStore
	logger log.Logger
	now    func() time.Time
}

// NewGuard wraps a store.
func NewGuard(s store.VectorStore, logger log.Logger) *Guard {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Guard{store: s, logger: logger, now: time.Now}
}

// Add requires write permission and stamps org and provenance metadata
// onto each document before upserting. The caller's slice is not
// modified.
func (g *Guard) Add(ctx context.Context, id Identity, docs []store.Document) error {
	if !id.Has(PermWrite) {
		g.logger.Warn("write denied", "credential_id", id.CredentialID, "org_id", id.OrgID)
		return fmt.Errorf("%w: write permission required", ErrPermissionDenied)
	}

	uploadedAt := g.now().UTC().Format(time.RFC3339)
	stamped := make([]store.Document, len(docs))
	for i, doc := range docs {
		metadata := make(map[string]string, len(doc.Metadata)+3)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		metadata[MetaOrgID] = id.OrgID
		metadata[MetaUploadedBy] = id.CredentialID
		metadata[MetaUploadedAt] = uploadedAt

		stamped[i] = doc
		stamped[i].Metadata = metadata
	}

	return g.store.Add(ctx, stamped)
}

// Search requires read permission and returns only documents belonging
// to the caller's organization. A caller-supplied org_id filter entry
// is overwritten, never honored.
func (g *Guard) Search(ctx context.Context, id Identity, query string, topK int, filter map[string]string) ([]store.SearchResult, error) {
	if !id.Has(PermRead) {
		g.logger.Warn("read denied", "credential_id", id.CredentialID, "org_id", id.OrgID)
		return nil, fmt.Errorf("%w: read permission required", ErrPermissionDenied)
	}

	scoped := make(map[string]string, len(filter)+1)
	for k, v := range filter {
		scoped[k] = v
	}
	scoped[MetaOrgID] = id.OrgID

	return g.store.Search(ctx, query, topK, scoped)
}

// Info requires read permission.
func (g *Guard) Info(ctx context.Context, id Identity) (store.Info, error) {
	if !id.Has(PermRead) {
		return store.Info{}, fmt.Errorf("%w: read permission required", ErrPermissionDenied)
	}
	return g.store.Info(ctx)
}
