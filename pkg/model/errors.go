package model

import (
	"errors"

	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
	"github.com/sigi-k/vogdbAPI/pkg/taxonomy"
)

// Every error returned by this package is one of these, test with errors.Is.
var (
	ErrEmptyQuery        = errors.New("no search parameter given")
	ErrInvalidRange      = errors.New("invalid range")
	ErrInvalidUnionUsage = errors.New("union needs at least two species or tax_id values")

	ErrInvalidTaxonID     = taxonomy.ErrInvalidTaxonID
	ErrNotFound           = mydb.ErrNotFound
	ErrStorageUnavailable = mydb.ErrStorageUnavailable
)
