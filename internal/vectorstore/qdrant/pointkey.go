package qdrant

import (
	"hash/fnv"
	"strconv"

	"lexindex/internal/domain"
)

// chunkIndexStride is the key space reserved per document for chunk
// indexes; it must stay above any max_chunks_per_document setting.
const chunkIndexStride = 1 << 20

// PointKey maps the deterministic point id onto the numeric key space
// Qdrant requires. Numeric document ids are used directly, shifted by
// the chunk-index stride. Non-numeric ids go through FNV-1a over the
// full point id string — an open risk: distinct document ids can hash
// to colliding keys and silently overwrite each other's points. See
// DESIGN.md for the recommended replacement.
func PointKey(documentID string, chunkIndex int) uint64 {
	if n, err := strconv.ParseUint(documentID, 10, 64); err == nil && n < (1<<43) {
		return n*chunkIndexStride + uint64(chunkIndex)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(domain.PointID(documentID, chunkIndex)))
	return h.Sum64()
}
