package models

import (
	"github.com/ekaya-inc/ekaya-tmdb/pkg/sql"
)

// Table names for every entity the pipeline writes.
const (
	TableMovies              = "tmdb_movies"
	TableCollections         = "tmdb_collection"
	TableGenres              = "tmdb_genres"
	TableProductionCompanies = "tmdb_production_companies"
	TableCountries           = "tmdb_countries"
	TableLanguages           = "tmdb_languages"
	TableKeywords            = "tmdb_keywords"
	TableCast                = "tmdb_cast"
	TableCrew                = "tmdb_crew"
)

// EntityKind identifies the type of a written entity in reports and metrics.
type EntityKind string

const (
	KindMovie             EntityKind = "movie"
	KindCollection        EntityKind = "collection"
	KindGenre             EntityKind = "genre"
	KindProductionCompany EntityKind = "production_company"
	KindCountry           EntityKind = "country"
	KindLanguage          EntityKind = "language"
	KindKeyword           EntityKind = "keyword"
	KindCast              EntityKind = "cast"
	KindCrew              EntityKind = "crew"
)

// Noun returns the singular human-readable noun for the kind.
func (k EntityKind) Noun() string {
	switch k {
	case KindProductionCompany:
		return "production company"
	case KindCast:
		return "cast member"
	case KindCrew:
		return "crew member"
	default:
		return string(k)
	}
}

// Entity is anything the pipeline persists as a single row.
type Entity interface {
	Kind() EntityKind
	// Label is the human-readable name used when reporting a failed write.
	Label() string
	Table() string
	InsertStatement() sql.Statement
}

// Dimension is an entity identified by a natural key whose numeric id is
// assigned by storage.
type Dimension interface {
	Entity
	NaturalKey() string
	LookupStatement() sql.Statement
}
