package handler

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sigi-k/vogdbAPI/logger"
	"github.com/sigi-k/vogdbAPI/pkg/handler/params"
	"github.com/sigi-k/vogdbAPI/pkg/handler/request"
	"github.com/sigi-k/vogdbAPI/pkg/model"
	"github.com/sigi-k/vogdbAPI/pkg/render"
)

// Summary and fetch routes take their ids from the query (GET) or from a
// JSON list body (POST). GET without any id is a 422, an empty POST list is
// a 404 like a list of unknown ids.

func errNoIDs() error {
	return fmt.Errorf("%w: empty id list", model.ErrNotFound)
}

func taxonIDsOf(w http.ResponseWriter, r *http.Request) ([]int64, error) {
	if r.Method == http.MethodPost {
		body, err := request.DecodeList[request.SpeciesID](w, r)
		if err != nil {
			return nil, err
		}
		ids := request.TaxonIDs(body)
		if len(ids) == 0 {
			return nil, errNoIDs()
		}
		for _, id := range ids {
			if id > params.MaxTaxonID {
				return nil, fmt.Errorf("%w: taxon_id: ensure this value is less than or equal to %d", params.ErrInvalid, params.MaxTaxonID)
			}
		}
		return ids, nil
	}
	q := params.New(r.URL.Query())
	q.Require("taxon_id")
	ids := q.Ints(params.MaxTaxonID, "taxon_id")
	return ids, q.Err()
}

// idsOf reads string ids checked against rule.
func idsOf(w http.ResponseWriter, r *http.Request, rule params.Rule, fromBody func(http.ResponseWriter, *http.Request) ([]string, error)) ([]string, error) {
	if r.Method == http.MethodPost {
		ids, err := fromBody(w, r)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, errNoIDs()
		}
		var errs []error
		for _, id := range ids {
			if err := rule.Check("id", id); err != nil {
				errs = append(errs, err)
			}
		}
		return ids, errors.Join(errs...)
	}
	q := params.New(r.URL.Query())
	q.Require("id")
	ids := q.Strings(rule, "id")
	return ids, q.Err()
}

func vogBody(w http.ResponseWriter, r *http.Request) ([]string, error) {
	body, err := request.DecodeList[request.VOGID](w, r)
	return request.VOGIDs(body), err
}

func proteinBody(w http.ResponseWriter, r *http.Request) ([]string, error) {
	body, err := request.DecodeList[request.ProteinID](w, r)
	return request.ProteinIDs(body), err
}

func (dbctx *DBContext) SpeciesSummaryHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := taxonIDsOf(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := model.SpeciesSummary(r.Context(), dbctx.DB, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(records) != len(ids) {
		logger.Warn("At least one of the species was not found, or there were duplicates", zap.Int64s("ids", ids))
	}
	_ = render.JSON(w, http.StatusOK, records)
}

func (dbctx *DBContext) ProteinSummaryHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := idsOf(w, r, params.ProteinID, proteinBody)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := model.ProteinSummary(r.Context(), dbctx.DB, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(records) != len(ids) {
		logger.Warn("At least one of the proteins was not found, or there were duplicates", zap.Strings("ids", ids))
	}
	_ = render.JSON(w, http.StatusOK, records)
}

func (dbctx *DBContext) VOGSummaryHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := idsOf(w, r, params.VOGID, vogBody)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := model.VOGSummary(r.Context(), dbctx.DB, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Debug("VOG summaries have been retrieved", zap.Int("records", len(records)))
	_ = render.JSON(w, http.StatusOK, records)
}
