package handler

// DI for all handlers and models alike.

import (
	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
	"github.com/sigi-k/vogdbAPI/pkg/taxonomy"
)

type DBContext struct {
	DB       *mydb.VOGDB
	Taxonomy taxonomy.Expander
	Profiles mydb.ProfileStore
}
