// Package request holds the POST bodies of the summary and fetch routes.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// largest accepted POST body
const maxBody = 4 << 20

var ErrInvalidBody = errors.New("invalid request body")

type SpeciesID struct {
	TaxonID int64 `json:"taxon_id"`
}

type VOGID struct {
	ID string `json:"id"`
}

type ProteinID struct {
	ID string `json:"id"`
}

// DecodeList reads a JSON array body such as [{"id":"VOG00001"}].
func DecodeList[T any](w http.ResponseWriter, r *http.Request) ([]T, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	var out []T
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: body must hold a single JSON array", ErrInvalidBody)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidBody)
	}
	return out, nil
}

func TaxonIDs(body []SpeciesID) []int64 {
	out := make([]int64, len(body))
	for i, s := range body {
		out[i] = s.TaxonID
	}
	return out
}

func VOGIDs(body []VOGID) []string {
	out := make([]string, len(body))
	for i, v := range body {
		out[i] = v.ID
	}
	return out
}

func ProteinIDs(body []ProteinID) []string {
	out := make([]string, len(body))
	for i, p := range body {
		out[i] = p.ID
	}
	return out
}
