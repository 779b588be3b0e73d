package domain

import (
	"strings"

	"blindbox/internal/errs"
)

// BoxID identifies a box inside one pool. Standard and special pools are
// separate namespaces, so the same numeric id may exist in both.
type BoxID uint32

type Pool string

const (
	PoolStandard Pool = "standard"
	PoolSpecial  Pool = "special"
)

// Pools lists pools in lookup order: redemption checks standard first.
var Pools = []Pool{PoolStandard, PoolSpecial}

func (p Pool) Valid() bool {
	return p == PoolStandard || p == PoolSpecial
}

// Index is the pool's position in Pools, used to separate random draws.
func (p Pool) Index() uint64 {
	if p == PoolSpecial {
		return 1
	}
	return 0
}

func ParsePool(s string) (Pool, error) {
	p := Pool(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", errs.Wrapf(errs.ErrInvalidPool, "pool %q", s)
	}
	return p, nil
}

// PoolStatus is the cached remaining count for a pool.
type PoolStatus struct {
	Pool      Pool   `json:"pool"`
	Remaining uint32 `json:"remaining"`
}

// GenerationResult reports what one id generation call produced.
// Complete is false when the attempt cap stopped generation early.
type GenerationResult struct {
	Pool      Pool    `json:"pool"`
	IDs       []BoxID `json:"ids"`
	Requested uint32  `json:"requested"`
	Attempts  uint32  `json:"attempts"`
	Complete  bool    `json:"complete"`
}
