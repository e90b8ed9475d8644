package gc

import (
	"github.com/castorfs/castor/pkg/digest"
	"github.com/castorfs/castor/pkg/tree"
)

// decodeTreeNames returns the child digests of a tree payload, in
// whatever order tree.Decode yields them (canonical name order).
func decodeTreeNames(payload []byte) ([]digest.Digest, error) {
	entries, err := tree.Decode(payload)
	if err != nil {
		return nil, err
	}
	out := make([]digest.Digest, len(entries))
	for i, e := range entries {
		out[i] = e.Digest
	}
	return out, nil
}
