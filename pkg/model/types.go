package model

type Species struct {
	TaxonID     int64  `json:"taxon_id"`
	SpeciesName string `json:"species_name"`
	Phage       bool   `json:"phage"`
	Source      string `json:"source"`
	Version     int64  `json:"version"`
}

type Protein struct {
	ID          string   `json:"id"`
	VOGIDs      []string `json:"vog_ids"`
	TaxonID     int64    `json:"taxon_id"`
	SpeciesName string   `json:"species_name"`
}

type VOG struct {
	ID                 string  `json:"id"`
	ProteinCount       int64   `json:"protein_count"`
	SpeciesCount       int64   `json:"species_count"`
	FunctionalCategory string  `json:"function"`
	ConsensusFunction  string  `json:"consensus_function"`
	GenomesInGroup     int64   `json:"genomes_in_group"`
	GenomesTotalInLCA  int64   `json:"genomes_total_in_LCA"`
	Ancestors          *string `json:"ancestors"`
	HStringency        bool    `json:"h_stringency"`
	MStringency        bool    `json:"m_stringency"`
	LStringency        bool    `json:"l_stringency"`
	VirusSpecific      bool    `json:"virus_specific"`
	NumPhages          int64   `json:"num_phages"`
	NumNonPhages       int64   `json:"num_nonphages"`
	PhagesNonphages    string  `json:"phages_nonphages"`

	// member protein ids, sorted
	Proteins []string `json:"proteins"`
}

type AASequence struct {
	ID    string  `json:"id"`
	AASeq *string `json:"aa_seq"`
}

type NTSequence struct {
	ID    string  `json:"id"`
	NTSeq *string `json:"nt_seq"`
}

// Values of VOG.PhagesNonphages
const (
	PhagesOnly    = "phages_only"
	NonPhagesOnly = "non_phages_only"
	Mixed         = "mixed"
)

// ClassifyPhages derives the phage classification from the member counts.
// A VOG without members counts as non_phages_only.
func ClassifyPhages(numPhages, numNonPhages int64) string {
	switch {
	case numPhages > 0 && numNonPhages > 0:
		return Mixed
	case numPhages > 0:
		return PhagesOnly
	default:
		return NonPhagesOnly
	}
}

func VirusSpecific(h, m, l bool) bool {
	return h || m || l
}
