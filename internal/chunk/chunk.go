package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Section labels for the unit kind a chunk was derived from.
const (
	SectionOverview       = "overview"
	SectionServers        = "servers"
	SectionEndpoint       = "endpoint"
	SectionSchema         = "schema"
	SectionSecurity       = "security"
	SectionAuthentication = "authentication"
	SectionExamples       = "examples"
	SectionGeneric        = "generic"
	SectionMain           = "main"
)

const (
	// MinContentLen is the minimum content length for a chunk to be
	// worth indexing. Shorter fragments are dropped.
	MinContentLen = 50

	// TargetChunkSize is the upper bound on chunk content length before
	// the chunker splits on paragraph boundaries. Retrieval quality
	// degrades for passages much larger than this.
	TargetChunkSize = 1500
)

// Chunk is a single retrievable documentation passage with provenance
// metadata. Chunks are value types; ownership passes to the vector store
// on Add.
type Chunk struct {
	Content  string            // passage text, never empty
	Source   string            // originating URL or file path
	Title    string            // human-readable document title
	Section  string            // unit kind label (see Section* constants)
	ID       string            // stable identifier, see NewID
	Metadata map[string]string // document-type-specific tags
}

// NewID derives a stable chunk identifier from the source, section label
// and the chunk's ordinal within that section. Re-chunking an unchanged
// source yields identical IDs, so upserts overwrite instead of duplicating.
func NewID(source, section string, ordinal int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s#%s#%d", source, section, ordinal))
	return "chunk_" + hex.EncodeToString(sum[:16])
}

// counter assigns per-section ordinals while chunking one document.
type counter struct {
	bySection map[string]int
}

func newCounter() *counter {
	return &counter{bySection: make(map[string]int)}
}

// next returns the current ordinal for section and advances it.
func (c *counter) next(section string) int {
	n := c.bySection[section]
	c.bySection[section] = n + 1
	return n
}
