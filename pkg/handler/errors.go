package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sigi-k/vogdbAPI/logger"
	"github.com/sigi-k/vogdbAPI/pkg/handler/params"
	"github.com/sigi-k/vogdbAPI/pkg/handler/request"
	"github.com/sigi-k/vogdbAPI/pkg/middle"
	"github.com/sigi-k/vogdbAPI/pkg/model"
	"github.com/sigi-k/vogdbAPI/pkg/render"
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

// statusOf maps the error kinds of the model and of request parsing.
func statusOf(err error) int {
	switch {
	case errors.Is(err, params.ErrInvalid), errors.Is(err, request.ErrInvalidBody):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrEmptyQuery),
		errors.Is(err, model.ErrInvalidRange),
		errors.Is(err, model.ErrInvalidUnionUsage),
		errors.Is(err, model.ErrInvalidTaxonID):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func detailOf(err error, status int) string {
	switch {
	case status == http.StatusNotFound:
		return "Item not found"
	case errors.Is(err, model.ErrEmptyQuery):
		return "No parameters given."
	case status == http.StatusInternalServerError:
		// storage details stay in the log
		return "Internal Server Error"
	default:
		return err.Error()
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	log := middle.Logger(r.Context(), logger.L())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Debug("Bad request", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	_ = render.JSON(w, status, ErrorResponse{Detail: detailOf(err, status)})
}
