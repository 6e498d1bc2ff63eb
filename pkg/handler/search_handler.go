package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sigi-k/vogdbAPI/logger"
	"github.com/sigi-k/vogdbAPI/pkg/handler/params"
	"github.com/sigi-k/vogdbAPI/pkg/model"
	"github.com/sigi-k/vogdbAPI/pkg/render"
)

// Search routes answer with newline separated ids. No match is an empty
// 200 response.

func (dbctx *DBContext) SearchSpeciesHandler(w http.ResponseWriter, r *http.Request) {
	q := params.New(r.URL.Query())
	f := model.SpeciesFilter{
		TaxonIDs: q.Ints(params.MaxTaxonID, "taxon_id"),
		Names:    q.Strings(params.ShortText, "name", "species_name"),
		Phage:    q.Bool("phage"),
		Source:   q.String(params.Letters, "source"),
	}
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	ids, err := model.SearchSpecies(r.Context(), dbctx.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("Species search", zap.Int("results", len(ids)))
	_ = render.PlainIDs(w, ids)
}

func (dbctx *DBContext) SearchProteinsHandler(w http.ResponseWriter, r *http.Request) {
	q := params.New(r.URL.Query())
	f := model.ProteinFilter{
		TaxonIDs:     q.Ints(params.MaxTaxonID, "taxon_id"),
		VOGIDs:       q.Strings(params.VOGID, "VOG_id", "vog_id"),
		SpeciesNames: q.Strings(params.Letters, "species_name"),
	}
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	ids, err := model.SearchProteins(r.Context(), dbctx.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("Protein search", zap.Int("results", len(ids)))
	_ = render.PlainIDs(w, ids)
}

func (dbctx *DBContext) SearchVOGsHandler(w http.ResponseWriter, r *http.Request) {
	q := params.New(r.URL.Query())
	f := model.VOGFilter{
		IDs: q.Strings(params.VOGID, "id"),

		ProteinCount:      model.Range{Min: q.Int(params.MaxCount, "pmin"), Max: q.Int(params.MaxCount, "pmax")},
		SpeciesCount:      model.Range{Min: q.Int(params.MaxCount, "smin"), Max: q.Int(params.MaxCount, "smax")},
		GenomesTotalInLCA: model.Range{Min: q.Int(params.MaxCount, "mingLCA"), Max: q.Int(params.MaxCount, "maxgLCA")},
		GenomesInGroup:    model.Range{Min: q.Int(params.MaxCount, "mingGLCA"), Max: q.Int(params.MaxCount, "maxgGLCA")},

		Functions:          q.Strings(params.Category, "functional_category"),
		ConsensusFunctions: q.Strings(params.Text, "consensus_function"),
		Ancestors:          q.Strings(params.Lineage, "ancestors"),

		HStringency:     q.Bool("h_stringency"),
		MStringency:     q.Bool("m_stringency"),
		LStringency:     q.Bool("l_stringency"),
		VirusSpecific:   q.Bool("virus_specific"),
		PhagesNonphages: q.String(params.ShortText, "phages_nonphages"),

		Proteins: q.Strings(params.ProteinID, "proteins"),
		// exact names, so digits and punctuation are allowed
		Species: q.Strings(params.Lineage, "species"),
		TaxIDs:  q.Ints(params.MaxTaxonID, "tax_id"),
		Union:   q.Bool("union"),
	}
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	ids, err := model.SearchVOGs(r.Context(), dbctx.DB, dbctx.Taxonomy, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("VOG search", zap.Int("results", len(ids)))
	_ = render.PlainIDs(w, ids)
}
