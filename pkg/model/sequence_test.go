package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigi-k/vogdbAPI/internal/testdb"
	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
)

func TestProteinSequences(t *testing.T) {
	vdb := testdb.Open(t)
	ctx := context.Background()
	ids := []string{"2713308.YP_009820101.1", "2713301.YP_009820002.1", "10298.NP_040188.1"}

	aa, err := ProteinAminoAcids(ctx, vdb, ids)
	require.NoError(t, err)
	require.Len(t, aa, 3)
	assert.Equal(t, "10298.NP_040188.1", aa[0].ID)
	assert.Equal(t, "MDLLVDELFA", *aa[0].AASeq)
	assert.Equal(t, "MSNNLQLSAE", *aa[1].AASeq)
	assert.Nil(t, aa[2].AASeq)

	nt, err := ProteinNucleotides(ctx, vdb, ids)
	require.NoError(t, err)
	require.Len(t, nt, 3)
	assert.Equal(t, "ATGGATCTGCTG", *nt[0].NTSeq)
	assert.Nil(t, nt[1].NTSeq)
	assert.Equal(t, "ATGACCGAATAC", *nt[2].NTSeq)

	_, err = ProteinAminoAcids(ctx, vdb, []string{"missing.YP_1"})
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := ProteinNucleotides(ctx, vdb, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

type stubStore struct {
	blobs map[string]string
	err   error
}

func (s stubStore) Profile(_ context.Context, kind mydb.ProfileKind, id string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	text, ok := s.blobs[kind.Key(id)]
	if !ok {
		return "", mydb.ErrNotFound
	}
	return text, nil
}

func TestVOGProfiles(t *testing.T) {
	store, err := mydb.NewFileProfileStore(testdb.ProfileDir(t))
	require.NoError(t, err)
	ctx := context.Background()

	hmm, err := VOGProfiles(ctx, store, mydb.HMM, []string{"VOG00002", "VOG00001", "VOG99999"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"VOG00001": testdb.Profiles["VOG00001"],
		"VOG00002": testdb.Profiles["VOG00002"],
	}, hmm)

	msa, err := VOGProfiles(ctx, store, mydb.MSA, []string{"VOG00001", "VOG00001"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"VOG00001": testdb.Alignments["VOG00001"]}, msa)

	_, err = VOGProfiles(ctx, store, mydb.MSA, []string{"VOG00002", "VOG99999"})
	assert.ErrorIs(t, err, ErrNotFound)

	one, err := VOGProfile(ctx, store, mydb.HMM, "VOG00001")
	require.NoError(t, err)
	assert.Equal(t, testdb.Profiles["VOG00001"], one)

	_, err = VOGProfile(ctx, store, mydb.HMM, "VOG00003")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVOGProfilesUnavailable(t *testing.T) {
	broken := stubStore{err: errors.New("connection reset by peer")}
	ctx := context.Background()

	_, err := VOGProfiles(ctx, broken, mydb.HMM, []string{"VOG00001"})
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = VOGProfile(ctx, broken, mydb.MSA, "VOG00001")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestVOGProfileKeysAreUppercased(t *testing.T) {
	store := stubStore{blobs: map[string]string{"hmm/VOG00001.hmm.gz": "HMMER3/f"}}
	text, err := VOGProfile(context.Background(), store, mydb.HMM, "vog00001")
	require.NoError(t, err)
	assert.Equal(t, "HMMER3/f", text)
}
