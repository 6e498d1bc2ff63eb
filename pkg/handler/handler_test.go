package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigi-k/vogdbAPI/internal/testdb"
	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
	"github.com/sigi-k/vogdbAPI/pkg/middle"
	"github.com/sigi-k/vogdbAPI/pkg/model"
	"github.com/sigi-k/vogdbAPI/pkg/taxonomy"
)

func newTestContext(t *testing.T) *DBContext {
	t.Helper()
	store, err := mydb.NewFileProfileStore(testdb.ProfileDir(t))
	require.NoError(t, err)
	return &DBContext{
		DB:       testdb.Open(t),
		Taxonomy: taxonomy.Uncached(testdb.Taxonomy()),
		Profiles: store,
	}
}

func newTestServer(t *testing.T) http.Handler {
	return NewRouter(newTestContext(t), RouterOptions{})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e.Detail
}

func TestWelcome(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to the VOGDB-API.","version":202}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var h HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "ok", h.Health)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSearchRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		target string
		want   string
	}{
		{"/vsearch/species?taxon_id=2713308&taxon_id=2713301", "2713301\n2713308"},
		{"/vsearch/species?name=Human&species_name=1", "10298\n11676"},
		{"/vsearch/species?phage=false", "10298\n10310\n11676"},
		{"/vsearch/species?source=Gen", "2713308\n2713400"},
		{"/vsearch/species?name=Mimivirus", ""},
		{"/vsearch/protein?VOG_id=VOG00003", "2713301.YP_009820001.1\n2713301.YP_009820002.1\n2713308.YP_009820101.1"},
		{"/vsearch/protein?species_name=herpes&taxon_id=10310", "10310.NP_044470.1\n10310.NP_044471.1"},
		{"/vsearch/vog?functional_category=Xr", "VOG00001\nVOG01642"},
		{"/vsearch/vog?pmin=3&pmax=3", "VOG00001\nVOG00003"},
		{"/vsearch/vog?tax_id=10292&tax_id=2713300", "VOG00001\nVOG01642"},
		{"/vsearch/vog?tax_id=10292&tax_id=2713300&union=true", "VOG00001\nVOG00002\nVOG00003\nVOG00004\nVOG01642"},
		{"/vsearch/vog?species=Human+alphaherpesvirus+1&species=Escherichia+phage+Alpha", "VOG00001"},
		{"/vsearch/vog?tax_id=11676&tax_id=2713308", ""},
		{"/vsearch/vog?phages_nonphages=mixed", "VOG00001\nVOG01642"},
		{"/vsearch/vog?proteins=10298.NP_040188.1", "VOG00001\nVOG01642"},
		{"/vsearch/vog?h_stringency=true", "VOG00003"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestSearchErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		target string
		status int
	}{
		{"/vsearch/species", http.StatusBadRequest},
		{"/vsearch/protein", http.StatusBadRequest},
		{"/vsearch/vog", http.StatusBadRequest},
		{"/vsearch/vog?union=false", http.StatusBadRequest},
		{"/vsearch/vog?union=true", http.StatusBadRequest},
		{"/vsearch/vog?tax_id=11676&union=true", http.StatusBadRequest},
		{"/vsearch/vog?pmin=4&pmax=3", http.StatusBadRequest},
		{"/vsearch/vog?smin=-1", http.StatusBadRequest},
		{"/vsearch/vog?tax_id=999", http.StatusBadRequest},
		{"/vsearch/species?taxon_id=abc", http.StatusUnprocessableEntity},
		{"/vsearch/species?taxon_id=10000000", http.StatusUnprocessableEntity},
		{"/vsearch/species?phage=maybe", http.StatusUnprocessableEntity},
		{"/vsearch/species?name=abcdefghijklmnopqrstuvwxyz", http.StatusUnprocessableEntity},
		{"/vsearch/species?source=NCBI1", http.StatusUnprocessableEntity},
		{"/vsearch/protein?VOG_id=XYZ00001", http.StatusUnprocessableEntity},
		{"/vsearch/vog?pmax=1000000", http.StatusUnprocessableEntity},
		{"/vsearch/vog?proteins=10298.XP_1", http.StatusUnprocessableEntity},
		{"/vsearch/vog?id=VOG00001&union=1&union=nope", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, detail(t, rec))
		})
	}

	rec := do(t, srv, http.MethodGet, "/vsearch/vog", "")
	assert.Equal(t, "No parameters given.", detail(t, rec))
}

func TestSummaryRoutes(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/vsummary/species?taxon_id=10298&taxon_id=42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var species []model.Species
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &species))
	require.Len(t, species, 1)
	assert.Equal(t, "Human alphaherpesvirus 1", species[0].SpeciesName)

	rec = do(t, srv, http.MethodPost, "/vsummary/species", `[{"taxon_id":2713301},{"taxon_id":2713308}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &species))
	assert.Len(t, species, 2)

	rec = do(t, srv, http.MethodGet, "/vsummary/protein?id=10310.NP_044470.1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"10310.NP_044470.1","vog_ids":["VOG00001","VOG00004"],"taxon_id":10310,"species_name":"Human alphaherpesvirus 2"}]`, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/vsummary/vog", `[{"id":"VOG01642"}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	var vogs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vogs))
	require.Len(t, vogs, 1)
	assert.Equal(t, "VOG01642", vogs[0]["id"])
	assert.Equal(t, "Xr", vogs[0]["function"])
	assert.Nil(t, vogs[0]["ancestors"])
	assert.Equal(t, "mixed", vogs[0]["phages_nonphages"])
	assert.Equal(t, float64(200), vogs[0]["genomes_total_in_LCA"])
}

func TestSummaryErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method, target, body string
		status               int
	}{
		{http.MethodGet, "/vsummary/species?taxon_id=42", "", http.StatusNotFound},
		{http.MethodGet, "/vsummary/vog?id=VOG99999", "", http.StatusNotFound},
		{http.MethodGet, "/vsummary/species", "", http.StatusUnprocessableEntity},
		{http.MethodGet, "/vsummary/vog", "", http.StatusUnprocessableEntity},
		{http.MethodGet, "/vsummary/vog?id=ABC", "", http.StatusUnprocessableEntity},
		{http.MethodGet, "/vsummary/protein?id=10298.XP_1", "", http.StatusUnprocessableEntity},
		{http.MethodPost, "/vsummary/vog", `{"id":"VOG00001"}`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/vsummary/vog", `[{"id":"ABC"}]`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/vsummary/species", `[{"taxon_id":"x"}]`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/vsummary/species", `[{"taxon_id":10000000}]`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/vsummary/protein", `not json`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/vsummary/protein", `[{"id":"missing.YP_1"}]`, http.StatusNotFound},
		{http.MethodPost, "/vsummary/species", `[]`, http.StatusNotFound},
		{http.MethodPost, "/vsummary/protein", `[]`, http.StatusNotFound},
		{http.MethodPost, "/vsummary/vog", `[]`, http.StatusNotFound},
		{http.MethodPost, "/vfetch/protein/faa", `[]`, http.StatusNotFound},
		{http.MethodPost, "/vfetch/protein/fna", `[]`, http.StatusNotFound},
		{http.MethodPost, "/vfetch/vog/hmm", `[]`, http.StatusNotFound},
		{http.MethodDelete, "/vsummary/vog", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, srv, http.MethodGet, "/vsummary/vog?id=VOG99999", "")
	assert.Equal(t, "Item not found", detail(t, rec))

	rec = do(t, srv, http.MethodPost, "/vsummary/species", `[]`)
	assert.Equal(t, "Item not found", detail(t, rec))
}

func TestFetchProfiles(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/vfetch/vog/hmm?id=VOG00001&id=VOG99999", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, map[string]string{"VOG00001": testdb.Profiles["VOG00001"]}, got)

	rec = do(t, srv, http.MethodPost, "/vfetch/vog/msa", `[{"id":"VOG00001"}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, testdb.Alignments["VOG00001"], got["VOG00001"])

	rec = do(t, srv, http.MethodGet, "/vfetch/vog/msa?id=VOG00002", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/vplain/vog/hmm/VOG00002", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testdb.Profiles["VOG00002"], rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = do(t, srv, http.MethodGet, "/vplain/vog/msa/VOG00002", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/vplain/vog/hmm/VOGabc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFetchSequences(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/vfetch/protein/faa?id=2713308.YP_009820101.1&id=10298.NP_040188.1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"10298.NP_040188.1","aa_seq":"MDLLVDELFA"},{"id":"2713308.YP_009820101.1","aa_seq":null}]`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/vfetch/protein/faa?id=2713308.YP_009820101.1&id=10298.NP_040188.1&format=fasta", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ">10298.NP_040188.1\nMDLLVDELFA\n", rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/vfetch/protein/fna?format=fasta", `[{"id":"2713301.YP_009820001.1"}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ">2713301.YP_009820001.1\nATGGCTAAACTG\n", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/vfetch/protein/fna?id=missing.YP_1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/vfetch/protein/fna?id=10298.NP_040188.1&format=xml", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStorageUnavailable(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqldb.Close()

	dbctx := &DBContext{
		DB:       mydb.New(sqldb, mydb.SQLite, 0),
		Taxonomy: taxonomy.Uncached(testdb.Taxonomy()),
	}
	srv := NewRouter(dbctx, RouterOptions{})

	mock.ExpectQuery("SELECT s.taxon_id").WillReturnError(context.DeadlineExceeded)
	rec := do(t, srv, http.MethodGet, "/vsearch/species?name=phage", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", detail(t, rec))

	mock.ExpectPing().WillReturnError(context.DeadlineExceeded)
	rec = do(t, srv, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouterLayers(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := middle.NewMetrics()
	registry.MustRegister(metrics.Collectors()...)

	srv := NewRouter(newTestContext(t), RouterOptions{
		Limiter:  middle.NewLocalLimiter(1, 1),
		Metrics:  metrics,
		Registry: registry,
	})

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/vsearch/vog?id=VOG00001", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, srv, http.MethodGet, "/vsearch/vog?id=VOG00001", "").Code)
	// health and metrics are not limited
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/v1/health", "").Code)

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vogdb_http_requests_total{method="GET",route="/vsearch/vog",status="429"} 1`)

	rec = do(t, srv, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", detail(t, rec))
}
