package models

import (
	"fmt"
	"time"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/sql"
)

// Movie holds the scalar attributes of a movie as they arrive from the source.
// Relationships live on MovieRecord.
type Movie struct {
	ID               int64     `json:"id" validate:"gt=0"`
	Budget           int64     `json:"budget" validate:"gte=0"`
	Revenue          int64     `json:"revenue" validate:"gte=0"`
	Popularity       float64   `json:"popularity" validate:"gte=0"`
	Runtime          *int64    `json:"runtime" validate:"omitnil,gte=0"`
	ReleaseDate      time.Time `json:"release_date"`
	Homepage         string    `json:"homepage"`
	IMDBID           string    `json:"imdb_id"`
	OriginalTitle    string    `json:"original_title"`
	Overview         string    `json:"overview"`
	PosterPath       string    `json:"poster_path"`
	Status           string    `json:"status"`
	Tagline          string    `json:"tagline"`
	Title            string    `json:"title" validate:"required"`
	OriginalLanguage string    `json:"original_language" validate:"omitempty,len=2,alpha"`
}

func (m Movie) Label() string {
	return fmt.Sprintf("%s (%d)", m.Title, m.ID)
}

// MovieRecord is the aggregate built from one raw record: the movie plus every
// entity it references.
type MovieRecord struct {
	Movie               Movie
	Collection          Collection
	Genres              []Genre
	ProductionCompanies []ProductionCompany
	ProductionCountries []Country
	Keywords            []Keyword
	Cast                []CastMember
	Crew                []CrewMember
	SpokenLanguages     []Language

	// Warnings lists non-fatal oddities found while building, such as text
	// fields that look like SQL injection payloads.
	Warnings []string
}

// FactRow projects the aggregate onto the tmdb_movies row. Countries and spoken
// languages must already be resolved, in the order they appear on the record.
func (r *MovieRecord) FactRow(countries []ResolvedCountry, spokenLanguages []ResolvedLanguage) MovieRow {
	row := MovieRow{
		Movie:             r.Movie,
		CollectionID:      r.Collection.ID,
		GenreIDs:          make([]int64, 0, len(r.Genres)),
		CompanyIDs:        make([]int64, 0, len(r.ProductionCompanies)),
		CountryIDs:        make([]int64, 0, len(countries)),
		SpokenLanguageIDs: make([]int64, 0, len(spokenLanguages)),
		KeywordIDs:        make([]int64, 0, len(r.Keywords)),
	}
	for _, g := range r.Genres {
		row.GenreIDs = append(row.GenreIDs, g.ID)
	}
	for _, c := range r.ProductionCompanies {
		row.CompanyIDs = append(row.CompanyIDs, c.ID)
	}
	for _, c := range countries {
		row.CountryIDs = append(row.CountryIDs, c.ID)
	}
	for _, l := range spokenLanguages {
		row.SpokenLanguageIDs = append(row.SpokenLanguageIDs, l.ID)
	}
	for _, k := range r.Keywords {
		row.KeywordIDs = append(row.KeywordIDs, k.ID)
	}
	return row
}

// MovieRow is the fact row written to tmdb_movies. Cast and crew are not
// embedded; their rows point back at the movie instead.
type MovieRow struct {
	Movie
	CollectionID      int64
	GenreIDs          []int64
	CompanyIDs        []int64
	CountryIDs        []int64
	SpokenLanguageIDs []int64
	KeywordIDs        []int64
}

func (m MovieRow) Kind() EntityKind { return KindMovie }
func (m MovieRow) Table() string { return TableMovies }

var movieColumns = []string{
	"id", "collection_id", "budget", "genre_ids", "homepage", "imdb_id",
	"original_language", "original_title", "overview", "popularity", "poster_path",
	"production_company_ids", "production_country_ids", "release_date", "runtime",
	"spoken_language_ids", "status", "tagline", "title", "keyword_ids", "revenue",
}

func (m MovieRow) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableMovies, movieColumns, []any{
		m.ID, m.CollectionID, m.Budget, m.GenreIDs, m.Homepage, m.IMDBID,
		m.OriginalLanguage, m.OriginalTitle, m.Overview, m.Popularity, m.PosterPath,
		m.CompanyIDs, m.CountryIDs, m.ReleaseDate, m.Runtime,
		m.SpokenLanguageIDs, m.Status, m.Tagline, m.Title, m.KeywordIDs, m.Revenue,
	}, "id")
}
