package store

import (
	"fmt"

	"github.com/multiformats/go-multihash"
	"github.com/sahib/dca/search"
	"github.com/sahib/dca/spn"
	"golang.org/x/crypto/sha3"
)

// Fingerprint identifies everything a search plan depends on: the boxes
// and dimensions of `shape` and the search parameters. It is a base58
// encoded SHA3-256 multihash. The worker count is not part of it.
func Fingerprint(shape *spn.Shape, params search.Params) (string, error) {
	desc := fmt.Sprintf(
		"rounds=%d sboxes=%d sbox=%v pbox=%v policy=%s best=%g diff=%g",
		shape.Rounds(),
		shape.SBoxes(),
		shape.SBoxTable(),
		shape.PBoxTable(),
		params.Policy,
		params.BestBound,
		params.DifferentialBound,
	)

	digest := sha3.Sum256([]byte(desc))
	hash, err := multihash.Encode(digest[:], multihash.SHA3_256)
	if err != nil {
		return "", err
	}

	return multihash.Multihash(hash).B58String(), nil
}
