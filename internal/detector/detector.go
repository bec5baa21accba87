// Package detector decides whether a file needs re-indexing by comparing a
// content fingerprint against the one recorded at the last successful index.
package detector

import (
	"context"
	"encoding/hex"

	"github.com/minio/highwayhash"
)

// fingerprintKey is the fixed HighwayHash key. Changing it invalidates every
// stored fingerprint and forces a full re-index.
var fingerprintKey = []byte("callgraph-fingerprint-key-v1-32b")

// Fingerprint returns the 128-bit HighwayHash digest of content, hex encoded
func Fingerprint(content []byte) string {
	sum := highwayhash.Sum128(content, fingerprintKey)
	return hex.EncodeToString(sum[:])
}

// HashReader reads the fingerprint recorded for a file
type HashReader interface {
	GetFileHash(ctx context.Context, path string) (string, bool, error)
}

// Detector compares file content against stored fingerprints
type Detector struct {
	hashes HashReader
}

// New creates a detector reading fingerprints from hashes
func New(hashes HashReader) *Detector {
	return &Detector{hashes: hashes}
}

// ShouldReindex reports whether path must be indexed again: true when no
// fingerprint is stored or the stored one differs from content's. It never
// writes. Store errors are returned unchanged.
func (d *Detector) ShouldReindex(ctx context.Context, path string, content []byte) (bool, error) {
	stored, ok, err := d.hashes.GetFileHash(ctx, path)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return stored != Fingerprint(content), nil
}
