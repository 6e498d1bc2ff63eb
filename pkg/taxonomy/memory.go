package taxonomy

import (
	"context"
	"fmt"
)

// MemorySource holds the whole tree as child lists.
type MemorySource struct {
	children map[int64][]int64
	known    map[int64]struct{}
}

// NewMemorySource builds the tree from child -> parent links. A node that is
// its own parent (the NCBI root) or whose parent is 0 is a root.
func NewMemorySource(parents map[int64]int64) *MemorySource {
	m := &MemorySource{
		children: make(map[int64][]int64, len(parents)),
		known:    make(map[int64]struct{}, len(parents)),
	}
	for child, parent := range parents {
		m.known[child] = struct{}{}
		if parent == child || parent == 0 {
			continue
		}
		m.known[parent] = struct{}{}
		m.children[parent] = append(m.children[parent], child)
	}
	return m
}

func (m *MemorySource) Len() int {
	return len(m.known)
}

func (m *MemorySource) Descendants(ctx context.Context, taxonID int64) ([]int64, error) {
	if _, ok := m.known[taxonID]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTaxonID, taxonID)
	}

	out := make([]int64, 0)
	seen := map[int64]struct{}{taxonID: {}}
	queue := []int64{taxonID}
	for len(queue) > 0 {
		if len(out)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		node := queue[0]
		queue = queue[1:]
		for _, c := range m.children[node] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out, nil
}
