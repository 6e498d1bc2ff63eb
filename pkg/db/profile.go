package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/sigi-k/vogdbAPI/internal/util"
)

// ProfileKind selects one of the per-VOG blobs.
type ProfileKind int

const (
	HMM ProfileKind = iota
	MSA
)

func (k ProfileKind) String() string {
	switch k {
	case HMM:
		return "hmm"
	case MSA:
		return "msa"
	default:
		return "unknown"
	}
}

func (k ProfileKind) dir() string {
	if k == MSA {
		return "raw_algs"
	}
	return "hmm"
}

// Key is the blob path relative to the store root, e.g. hmm/VOG00001.hmm.gz
func (k ProfileKind) Key(id string) string {
	return path.Join(k.dir(), strings.ToUpper(id)+"."+k.String()+".gz")
}

// ProfileStore is a keyed store of gzip text blobs.
type ProfileStore interface {
	Profile(ctx context.Context, kind ProfileKind, id string) (string, error)
}

// folder which hosts hmm/ and raw_algs/
type FileProfileStore struct {
	Dir string
}

func NewFileProfileStore(dir string) (*FileProfileStore, error) {
	required_folders := []string{
		dir,
		filepath.Join(dir, HMM.dir()),
		filepath.Join(dir, MSA.dir()),
	}

	var errs []error
	for _, folder := range required_folders {
		if !util.DirExists(folder) {
			errs = append(errs, fmt.Errorf("%w: %s", os.ErrNotExist, folder))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &FileProfileStore{Dir: dir}, nil
}

func (s *FileProfileStore) Profile(ctx context.Context, kind ProfileKind, id string) (string, error) {
	if !validBlobID(id) {
		return "", fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(filepath.Join(s.Dir, filepath.FromSlash(kind.Key(id))))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	if err != nil {
		return "", fmt.Errorf("fail to open %s for %s: %w", kind, id, err)
	}
	defer f.Close()

	return readGzip(f)
}

func readGzip(r io.Reader) (string, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return "", fmt.Errorf("fail to read gzip header: %w", err)
	}
	defer zr.Close()

	b, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("fail to decompress: %w", err)
	}
	return string(b), nil
}

// Ids never address anything outside of the store root.
func validBlobID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}
