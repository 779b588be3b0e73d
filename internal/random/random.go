// Package random derives deterministic draws from a keyed BLAKE3 source.
package random

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

const tagPrefix = "blindbox/"

// Source returns 32 bytes of randomness bound to tag.
type Source interface {
	Random(tag []byte) [32]byte
}

// Keyed is a Source backed by BLAKE3 in keyed mode. The same secret and tag
// always give the same output.
type Keyed struct {
	key [32]byte
}

// NewKeyed derives a 32-byte key from secret.
func NewKeyed(secret []byte) *Keyed {
	return &Keyed{key: blake3.Sum256(secret)}
}

func (k *Keyed) Random(tag []byte) [32]byte {
	h := blake3.New(32, k.key[:])
	_, _ = h.Write(tag)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DecodeU32 reads the first four bytes little-endian.
func DecodeU32(b [32]byte) uint32 {
	return binary.LittleEndian.Uint32(b[:4])
}

// Tag builds a domain-separated tag from a purpose and seeds.
func Tag(purpose string, seeds ...uint64) []byte {
	buf := make([]byte, 0, len(tagPrefix)+len(purpose)+1+8*len(seeds))
	buf = append(buf, tagPrefix...)
	buf = append(buf, purpose...)
	buf = append(buf, 0)
	for _, s := range seeds {
		buf = binary.LittleEndian.AppendUint64(buf, s)
	}
	return buf
}

// Drawer turns a Source into uint32 draws.
type Drawer struct {
	src Source
}

func NewDrawer(src Source) *Drawer {
	return &Drawer{src: src}
}

func (d *Drawer) Draw(purpose string, seeds ...uint64) uint32 {
	return DecodeU32(d.src.Random(Tag(purpose, seeds...)))
}

// Scoped returns a drawer whose draws are additionally bound to scope,
// so the same purpose and seeds give unrelated values in different scopes.
func (d *Drawer) Scoped(scope ...uint64) *Scoped {
	return &Scoped{d: d, scope: scope}
}

type Scoped struct {
	d     *Drawer
	scope []uint64
}

func (s *Scoped) Draw(purpose string, seeds ...uint64) uint32 {
	all := make([]uint64, 0, len(s.scope)+len(seeds))
	all = append(all, s.scope...)
	all = append(all, seeds...)
	return s.d.Draw(purpose, all...)
}
