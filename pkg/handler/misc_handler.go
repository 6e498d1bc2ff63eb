// Handler for miscellaneous endpoints such as health check

package handler

import (
	"net/http"
	"time"

	"github.com/sigi-k/vogdbAPI/pkg/model"
	"github.com/sigi-k/vogdbAPI/pkg/render"
)

type WelcomeResponse struct {
	Message string `json:"message"`
	Version int64  `json:"version"`
}

type HealthResponse struct {
	Health    string    `json:"health"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

func (dbctx *DBContext) WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	version, err := model.DatasetVersion(r.Context(), dbctx.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = render.JSON(w, http.StatusOK, WelcomeResponse{
		Message: "Welcome to the VOGDB-API.",
		Version: version,
	})
}

// HealthCheck is 503 when the store can not be reached.
func (dbctx *DBContext) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Health:    "ok",
		Database:  "ok",
		Timestamp: time.Now(),
	}
	status := http.StatusOK
	if err := dbctx.DB.Ping(r.Context()); err != nil {
		response.Health = "degraded"
		response.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	_ = render.JSON(w, status, response)
}
