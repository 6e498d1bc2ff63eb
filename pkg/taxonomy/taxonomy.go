// Package taxonomy resolves a taxon id to the ids of its whole subtree.
package taxonomy

import (
	"context"
	"errors"
	"fmt"

	"github.com/sigi-k/vogdbAPI/internal/util"
)

var ErrInvalidTaxonID = errors.New("invalid taxonomy id")

// Source is the taxonomy tree lookup. Descendants returns every node below
// taxonID (intermediate nodes included, taxonID itself excluded) or
// ErrInvalidTaxonID when the id is not in the tree.
type Source interface {
	Descendants(ctx context.Context, taxonID int64) ([]int64, error)
}

// Expander returns taxonID plus its descendants, sorted and distinct.
// Returned slices are shared and must not be modified.
type Expander interface {
	Expand(ctx context.Context, taxonID int64) ([]int64, error)
}

// ExpanderFunc adapts a plain function to the Expander interface.
type ExpanderFunc func(ctx context.Context, taxonID int64) ([]int64, error)

func (f ExpanderFunc) Expand(ctx context.Context, taxonID int64) ([]int64, error) {
	return f(ctx, taxonID)
}

// Uncached expands straight from the source on every call.
func Uncached(src Source) Expander {
	return ExpanderFunc(func(ctx context.Context, taxonID int64) ([]int64, error) {
		return expand(ctx, src, taxonID)
	})
}

func expand(ctx context.Context, src Source, taxonID int64) ([]int64, error) {
	if taxonID < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTaxonID, taxonID)
	}
	desc, err := src.Descendants(ctx, taxonID)
	if err != nil {
		return nil, err
	}
	return util.Unique(append([]int64{taxonID}, desc...)), nil
}
