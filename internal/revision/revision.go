// Package revision implements the absolute/relative revision algebra (§4.H):
// positive revisions are absolute commit numbers, non-positive revisions are
// offsets from HEAD.
package revision

import (
	"fmt"

	"github.com/dogma-project/dogma/common"
	cn "github.com/dogma-project/dogma/common/constant"
)

// Revision is an absolute, normalized revision number. It is always >= 1
// once produced by Normalize.
type Revision int32

// Head is the sentinel relative revision meaning "the current head".
const Head Revision = 0

// Normalize resolves rev against head: positive values must not exceed head;
// non-positive values are subtracted from head. Either case failing to land
// in [1, head] fails with RevisionNotFound.
func Normalize(rev int32, head int32) (Revision, error) {
	if rev > 0 {
		if rev > head {
			return 0, common.ValidateBusinessError(cn.ErrRevisionNotFound, "", fmt.Sprintf("%d", rev))
		}

		return Revision(rev), nil
	}

	abs := head + rev
	if abs < 1 {
		return 0, common.ValidateBusinessError(cn.ErrRevisionNotFound, "", fmt.Sprintf("%d", rev))
	}

	return Revision(abs), nil
}

// Equivalent reports whether a and b normalize to the same absolute revision
// against the same head.
func Equivalent(a, b int32, head int32) bool {
	na, errA := Normalize(a, head)
	nb, errB := Normalize(b, head)

	return errA == nil && errB == nil && na == nb
}

// Int32 returns the revision as a plain int32, for wire/storage encoding.
func (r Revision) Int32() int32 { return int32(r) }

// String implements fmt.Stringer.
func (r Revision) String() string { return fmt.Sprintf("%d", int32(r)) }
