package handler

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sigi-k/vogdbAPI/logger"
	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
	"github.com/sigi-k/vogdbAPI/pkg/handler/params"
	"github.com/sigi-k/vogdbAPI/pkg/model"
	"github.com/sigi-k/vogdbAPI/pkg/render"
)

// FetchProfilesHandler answers with a map of VOG id to HMM or MSA text.
func (dbctx *DBContext) FetchProfilesHandler(kind mydb.ProfileKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := idsOf(w, r, params.VOGID, vogBody)
		if err != nil {
			writeError(w, r, err)
			return
		}
		profiles, err := model.VOGProfiles(r.Context(), dbctx.Profiles, kind, ids)
		if err != nil {
			writeError(w, r, err)
			return
		}
		logger.Debug("Profile fetch", zap.String("kind", kind.String()), zap.Int("found", len(profiles)), zap.Int("asked", len(ids)))
		_ = render.JSON(w, http.StatusOK, profiles)
	}
}

// PlainProfileHandler serves one profile as text, for /vplain/vog/{kind}/{id}.
func (dbctx *DBContext) PlainProfileHandler(kind mydb.ProfileKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if err := params.PlainVOGID.Check("id", id); err != nil {
			writeError(w, r, err)
			return
		}
		text, err := model.VOGProfile(r.Context(), dbctx.Profiles, kind, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		_ = render.Plain(w, http.StatusOK, text)
	}
}

func fastaRequested(r *http.Request) (bool, error) {
	switch f := r.URL.Query().Get("format"); f {
	case "", "json":
		return false, nil
	case "fasta":
		return true, nil
	default:
		return false, fmt.Errorf("%w: format: %q is not json or fasta", params.ErrInvalid, f)
	}
}

func (dbctx *DBContext) FetchAminoAcidsHandler(w http.ResponseWriter, r *http.Request) {
	fasta, err := fastaRequested(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ids, err := idsOf(w, r, params.ProteinID, proteinBody)
	if err != nil {
		writeError(w, r, err)
		return
	}
	seqs, err := model.ProteinAminoAcids(r.Context(), dbctx.DB, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(seqs) != len(ids) {
		logger.Warn("At least one of the proteins was not found, or there were duplicates", zap.Strings("ids", ids))
	}
	if fasta {
		_ = render.AminoAcidFASTA(w, seqs)
		return
	}
	_ = render.JSON(w, http.StatusOK, seqs)
}

func (dbctx *DBContext) FetchNucleotidesHandler(w http.ResponseWriter, r *http.Request) {
	fasta, err := fastaRequested(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ids, err := idsOf(w, r, params.ProteinID, proteinBody)
	if err != nil {
		writeError(w, r, err)
		return
	}
	seqs, err := model.ProteinNucleotides(r.Context(), dbctx.DB, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(seqs) != len(ids) {
		logger.Warn("At least one of the proteins was not found, or there were duplicates", zap.Strings("ids", ids))
	}
	if fasta {
		_ = render.NucleotideFASTA(w, seqs)
		return
	}
	_ = render.JSON(w, http.StatusOK, seqs)
}
