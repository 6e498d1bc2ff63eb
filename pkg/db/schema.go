package db

import (
	"context"
	"fmt"
)

// Schema is valid for both sqlite and postgres. The loader owns the data,
// the API only reads it.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS species_profile (
		taxon_id     INTEGER PRIMARY KEY,
		species_name TEXT NOT NULL,
		phage        BOOLEAN NOT NULL,
		source       TEXT NOT NULL,
		version      INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS protein_profile (
		protein_id TEXT PRIMARY KEY,
		taxon_id   INTEGER NOT NULL REFERENCES species_profile (taxon_id),
		aa_seq     TEXT,
		nt_seq     TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS vog_profile (
		vog_id               TEXT PRIMARY KEY,
		protein_count        INTEGER NOT NULL,
		species_count        INTEGER NOT NULL,
		functional_category  TEXT NOT NULL,
		consensus_function   TEXT NOT NULL,
		genomes_in_group     INTEGER NOT NULL,
		genomes_total_in_lca INTEGER NOT NULL,
		ancestors            TEXT,
		h_stringency         BOOLEAN NOT NULL,
		m_stringency         BOOLEAN NOT NULL,
		l_stringency         BOOLEAN NOT NULL,
		virus_specific       BOOLEAN NOT NULL,
		num_phages           INTEGER NOT NULL,
		num_nonphages        INTEGER NOT NULL,
		phages_nonphages     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vog_membership (
		vog_id     TEXT NOT NULL REFERENCES vog_profile (vog_id),
		protein_id TEXT NOT NULL REFERENCES protein_profile (protein_id),
		PRIMARY KEY (vog_id, protein_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_protein_profile_taxon ON protein_profile (taxon_id)`,
	`CREATE INDEX IF NOT EXISTS idx_vog_membership_protein ON vog_membership (protein_id)`,
}

// ApplySchema creates the tables when they are missing.
func (v *VOGDB) ApplySchema(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := v.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("fail to apply schema: %w", err)
		}
	}
	return nil
}
