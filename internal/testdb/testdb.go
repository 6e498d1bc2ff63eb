// Package testdb seeds a small VOG dataset into in-memory sqlite for tests.
package testdb

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
	"github.com/sigi-k/vogdbAPI/pkg/taxonomy"
)

const Version = 202

type species struct {
	taxonID int64
	name    string
	phage   bool
	source  string
}

var Species = []species{
	{10298, "Human alphaherpesvirus 1", false, "NCBI Refseq"},
	{10310, "Human alphaherpesvirus 2", false, "NCBI Refseq"},
	{11676, "Human immunodeficiency virus 1", false, "NCBI Refseq"},
	{2713301, "Escherichia phage Alpha", true, "NCBI Refseq"},
	{2713308, "Escherichia phage Beta", true, "GenBank"},
	{2713400, "Salmonella phage Gamma", true, "GenBank"}, // no proteins
}

type protein struct {
	id      string
	taxonID int64
	aa      *string
	nt      *string
}

func str(s string) *string { return &s }

var Proteins = []protein{
	{"10298.NP_040188.1", 10298, str("MDLLVDELFA"), str("ATGGATCTGCTG")},
	{"10310.NP_044470.1", 10310, str("MSAEQRKKKK"), str("ATGAGCGCGGAA")},
	{"10310.NP_044471.1", 10310, str("MEPRPGTSSR"), str("ATGGAGCCCCGC")},
	{"11676.NP_057849.4", 11676, str("MGARASVLSG"), str("ATGGGTGCGAGA")},
	{"2713301.YP_009820001.1", 2713301, str("MAKLTKRMRV"), str("ATGGCTAAACTG")},
	{"2713301.YP_009820002.1", 2713301, str("MSNNLQLSAE"), nil},
	{"2713308.YP_009820101.1", 2713308, nil, str("ATGACCGAATAC")},
}

type vog struct {
	id         string
	function   string
	consensus  string
	inGroup    int64
	totalInLCA int64
	ancestors  *string
	h, m, l    bool
	members    []string
}

var VOGs = []vog{
	{"VOG00001", "XrXs", "DNA polymerase", 3, 100, str("Viruses;Duplodnaviria"), false, true, true,
		[]string{"10298.NP_040188.1", "10310.NP_044470.1", "2713301.YP_009820001.1"}},
	{"VOG00002", "Xu", "hypothetical protein", 2, 50, str("Viruses"), false, false, false,
		[]string{"10310.NP_044471.1", "11676.NP_057849.4"}},
	{"VOG00003", "Xs", "major capsid protein", 2, 20, str("Viruses;Duplodnaviria;Heunggongvirae"), true, true, true,
		[]string{"2713301.YP_009820001.1", "2713301.YP_009820002.1", "2713308.YP_009820101.1"}},
	{"VOG00004", "Xh", "Transcriptional activator ICP4", 1, 10, str("Viruses;Duplodnaviria;Heunggongvirae;Herpesvirales"), false, false, false,
		[]string{"10310.NP_044470.1", "10310.NP_044471.1"}},
	{"VOG01642", "Xr", "Transcriptional activator", 2, 200, nil, false, false, true,
		[]string{"10298.NP_040188.1", "2713308.YP_009820101.1"}},
}

// Parents is the taxonomy above the fixture species: 10239 Viruses holds
// 10292 Herpesviridae (10298, 10310), 11676 and the phage genus 2713300
// (2713301, 2713308, 2713400).
var Parents = map[int64]int64{
	1:       1,
	10239:   1,
	10292:   10239,
	10298:   10292,
	10310:   10292,
	11676:   10239,
	2713300: 10239,
	2713301: 2713300,
	2713308: 2713300,
	2713400: 2713300,
}

func Taxonomy() *taxonomy.MemorySource {
	return taxonomy.NewMemorySource(Parents)
}

// Open returns a seeded store backed by one in-memory connection.
func Open(t testing.TB) *mydb.VOGDB {
	t.Helper()
	ctx := context.Background()

	vdb, err := mydb.Open(ctx, "sqlite", ":memory:", mydb.PoolOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { vdb.Close() })
	require.NoError(t, vdb.ApplySchema(ctx))

	sqldb := vdb.SQL()
	phage := map[int64]bool{}
	for _, s := range Species {
		phage[s.taxonID] = s.phage
		_, err := sqldb.ExecContext(ctx,
			`INSERT INTO species_profile (taxon_id, species_name, phage, source, version) VALUES (?, ?, ?, ?, ?)`,
			s.taxonID, s.name, s.phage, s.source, Version)
		require.NoError(t, err)
	}

	taxonOf := map[string]int64{}
	for _, p := range Proteins {
		taxonOf[p.id] = p.taxonID
		_, err := sqldb.ExecContext(ctx,
			`INSERT INTO protein_profile (protein_id, taxon_id, aa_seq, nt_seq) VALUES (?, ?, ?, ?)`,
			p.id, p.taxonID, p.aa, p.nt)
		require.NoError(t, err)
	}

	for _, v := range VOGs {
		taxa := map[int64]struct{}{}
		var numPhages, numNonPhages int64
		for _, m := range v.members {
			taxa[taxonOf[m]] = struct{}{}
			if phage[taxonOf[m]] {
				numPhages++
			} else {
				numNonPhages++
			}
		}
		_, err := sqldb.ExecContext(ctx, `INSERT INTO vog_profile (
			vog_id, protein_count, species_count, functional_category, consensus_function,
			genomes_in_group, genomes_total_in_lca, ancestors,
			h_stringency, m_stringency, l_stringency, virus_specific,
			num_phages, num_nonphages, phages_nonphages
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.id, len(v.members), len(taxa), v.function, v.consensus,
			v.inGroup, v.totalInLCA, v.ancestors,
			v.h, v.m, v.l, v.h || v.m || v.l,
			numPhages, numNonPhages, classify(numPhages, numNonPhages))
		require.NoError(t, err)

		for _, m := range v.members {
			_, err := sqldb.ExecContext(ctx, `INSERT INTO vog_membership (vog_id, protein_id) VALUES (?, ?)`, v.id, m)
			require.NoError(t, err)
		}
	}
	return vdb
}

func classify(numPhages, numNonPhages int64) string {
	switch {
	case numPhages > 0 && numNonPhages > 0:
		return "mixed"
	case numPhages > 0:
		return "phages_only"
	default:
		return "non_phages_only"
	}
}

// HMM and MSA bodies written by ProfileDir
var Profiles = map[string]string{
	"VOG00001": "HMMER3/f [3.1b2 | February 2015]\nNAME  VOG00001\n//\n",
	"VOG00002": "HMMER3/f [3.1b2 | February 2015]\nNAME  VOG00002\n//\n",
}

var Alignments = map[string]string{
	"VOG00001": ">10298.NP_040188.1\nMDLLVDELFA\n>10310.NP_044470.1\nMSAEQ-KKKK\n",
}

// ProfileDir writes a blob store with the hmm and raw_algs layout.
func ProfileDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	write := func(sub, name, body string) {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(body))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, os.WriteFile(filepath.Join(dir, sub, name), buf.Bytes(), 0o644))
	}
	for _, id := range sortedKeys(Profiles) {
		write("hmm", id+".hmm.gz", Profiles[id])
	}
	for _, id := range sortedKeys(Alignments) {
		write("raw_algs", id+".msa.gz", Alignments[id])
	}
	return dir
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
