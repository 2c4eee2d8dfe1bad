package types

import (
	"bytes"
	"crypto/sha256"

	"github.com/hashicorp/go-msgpack/codec"
)

// mh is the shared msgpack handle used for canonical encoding. Canonical
// encoding must be deterministic across peers, since it feeds the
// content-addressed hash (spec.md §3, "Content-addressed: hash = digest of
// canonical encoding of all fields") and the store's persisted manifest
// records; the p2p wire format is tmjson, not this encoding. go-msgpack's struct
// encoding walks fields in declaration order, which is exactly the
// determinism this requires.
var mh = &codec.MsgpackHandle{}

// EncodeManifest produces the canonical byte encoding of a manifest. It is
// what Digest is applied to when computing a ProposalHash.
func EncodeManifest(m *ProposalManifest) []byte {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, mh)
	if err := enc.Encode(m); err != nil {
		// Manifest fields are all plain data (strings, slices, fixed
		// arrays); msgpack encoding of such values cannot fail.
		panic("types: encode manifest: " + err.Error())
	}
	return buf.Bytes()
}

// DecodeManifest reverses EncodeManifest, used by store implementations to
// read back a persisted manifest.
func DecodeManifest(b []byte) (*ProposalManifest, error) {
	var m ProposalManifest
	dec := codec.NewDecoder(bytes.NewReader(b), mh)
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DefaultDigest hashes canonical bytes with SHA-2-256, the digest spec.md §6
// names as the example choice ("e.g. SHA-2-256"). Kept on the standard
// library deliberately: no third-party hash primitive in the retrieved
// corpus is a better fit for a spec-named, general-purpose digest, and
// swapping it out is a one-line Digest replacement at the host boundary.
func DefaultDigest(canonical []byte) ProposalHash {
	return ProposalHash(sha256.Sum256(canonical))
}

// HashManifest is a convenience wrapper combining EncodeManifest and a
// digest function.
func HashManifest(m *ProposalManifest, digest Digest) ProposalHash {
	return digest(EncodeManifest(m))
}
