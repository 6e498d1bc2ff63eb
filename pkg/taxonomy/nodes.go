package taxonomy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// ParseNodes reads an NCBI taxdump nodes.dmp and returns child -> parent links.
// Lines look like "10310\t|\t10294\t|\tspecies\t|\t...".
func ParseNodes(r io.Reader) (map[int64]int64, error) {
	parents := make(map[int64]int64, 1<<16)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "|", 3)
		if len(fields) < 2 {
			return nil, fmt.Errorf("nodes.dmp line %d: expected tax_id and parent", lineNo)
		}
		child, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("nodes.dmp line %d: bad tax_id: %w", lineNo, err)
		}
		parent, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("nodes.dmp line %d: bad parent: %w", lineNo, err)
		}
		parents[child] = parent
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return parents, nil
}

// FileSource is a MemorySource loaded from a nodes.dmp file. Reload swaps
// the tree atomically, lookups in flight keep the old one.
type FileSource struct {
	path string

	mu   sync.RWMutex
	tree *MemorySource
}

func OpenNodesFile(path string) (*FileSource, error) {
	fs := &FileSource{path: path}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileSource) Path() string {
	return fs.path
}

func (fs *FileSource) Reload() error {
	f, err := os.Open(fs.path)
	if err != nil {
		return fmt.Errorf("fail to open taxonomy: %w", err)
	}
	defer f.Close()

	parents, err := ParseNodes(f)
	if err != nil {
		return err
	}
	tree := NewMemorySource(parents)

	fs.mu.Lock()
	fs.tree = tree
	fs.mu.Unlock()
	return nil
}

func (fs *FileSource) Descendants(ctx context.Context, taxonID int64) ([]int64, error) {
	fs.mu.RLock()
	tree := fs.tree
	fs.mu.RUnlock()
	return tree.Descendants(ctx, taxonID)
}
