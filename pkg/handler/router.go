package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
	"github.com/sigi-k/vogdbAPI/pkg/middle"
	"github.com/sigi-k/vogdbAPI/pkg/render"
)

// RouterOptions are the optional layers around the API routes.
type RouterOptions struct {
	Logger   *zap.Logger
	Limiter  middle.Limiter
	Metrics  *middle.Metrics
	Registry *prometheus.Registry
	// TrustProxy keys the limiter on X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

func NewRouter(dbctx *DBContext, opts RouterOptions) *mux.Router {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(middle.RequestIDMiddleware(log), middle.LoggingMiddleware(log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = render.JSON(w, http.StatusNotFound, ErrorResponse{Detail: "Not Found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = render.JSON(w, http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method Not Allowed"})
	})

	// Outside of the limiter
	r.HandleFunc("/api/v1/health", dbctx.HealthCheck).Methods(http.MethodGet)
	if opts.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	if opts.Limiter != nil {
		api.Use(middle.RateLimitMiddleware(opts.Limiter, opts.TrustProxy, log))
	}

	api.HandleFunc("/", dbctx.WelcomeHandler).Methods(http.MethodGet)

	// Search
	api.HandleFunc("/vsearch/species", dbctx.SearchSpeciesHandler).Methods(http.MethodGet)
	api.HandleFunc("/vsearch/protein", dbctx.SearchProteinsHandler).Methods(http.MethodGet)
	api.HandleFunc("/vsearch/vog", dbctx.SearchVOGsHandler).Methods(http.MethodGet)

	// Summaries
	api.HandleFunc("/vsummary/species", dbctx.SpeciesSummaryHandler).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/vsummary/protein", dbctx.ProteinSummaryHandler).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/vsummary/vog", dbctx.VOGSummaryHandler).Methods(http.MethodGet, http.MethodPost)

	// Profiles and sequences
	api.HandleFunc("/vfetch/vog/hmm", dbctx.FetchProfilesHandler(mydb.HMM)).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/vfetch/vog/msa", dbctx.FetchProfilesHandler(mydb.MSA)).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/vplain/vog/hmm/{id}", dbctx.PlainProfileHandler(mydb.HMM)).Methods(http.MethodGet)
	api.HandleFunc("/vplain/vog/msa/{id}", dbctx.PlainProfileHandler(mydb.MSA)).Methods(http.MethodGet)
	api.HandleFunc("/vfetch/protein/faa", dbctx.FetchAminoAcidsHandler).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/vfetch/protein/fna", dbctx.FetchNucleotidesHandler).Methods(http.MethodGet, http.MethodPost)

	return r
}
