package models

import (
	"github.com/ekaya-inc/ekaya-tmdb/pkg/sql"
)

// Collection is the franchise a movie belongs to.
type Collection struct {
	ID           int64  `json:"id" validate:"gt=0"`
	Name         string `json:"name" validate:"required"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
}

func (c Collection) Kind() EntityKind { return KindCollection }
func (c Collection) Label() string { return c.Name }
func (c Collection) Table() string { return TableCollections }

func (c Collection) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableCollections,
		[]string{"id", "name", "poster_path", "backdrop_path"},
		[]any{c.ID, c.Name, c.PosterPath, c.BackdropPath},
		"id")
}

// Genre is a TMDB genre.
type Genre struct {
	ID   int64  `json:"id" validate:"gt=0"`
	Name string `json:"name" validate:"required"`
}

func (g Genre) Kind() EntityKind { return KindGenre }
func (g Genre) Label() string { return g.Name }
func (g Genre) Table() string { return TableGenres }

func (g Genre) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableGenres, []string{"id", "name"}, []any{g.ID, g.Name}, "id")
}

// ProductionCompany is a studio credited on a movie.
type ProductionCompany struct {
	ID   int64  `json:"id" validate:"gt=0"`
	Name string `json:"name" validate:"required"`
}

func (p ProductionCompany) Kind() EntityKind { return KindProductionCompany }
func (p ProductionCompany) Label() string { return p.Name }
func (p ProductionCompany) Table() string { return TableProductionCompanies }

func (p ProductionCompany) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableProductionCompanies, []string{"id", "name"}, []any{p.ID, p.Name}, "id")
}

// Keyword is a TMDB keyword tag.
type Keyword struct {
	ID   int64  `json:"id" validate:"gt=0"`
	Name string `json:"name" validate:"required"`
}

func (k Keyword) Kind() EntityKind { return KindKeyword }
func (k Keyword) Label() string { return k.Name }
func (k Keyword) Table() string { return TableKeywords }

func (k Keyword) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableKeywords, []string{"id", "name"}, []any{k.ID, k.Name}, "id")
}
