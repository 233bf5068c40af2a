package models

import (
	"github.com/ekaya-inc/ekaya-tmdb/pkg/sql"
)

// Country is a production country before its storage id is known.
// Natural key: ISO 3166-1 alpha-2 code.
type Country struct {
	ISO31661 string `json:"iso_3166_1" validate:"len=2,alpha"`
	Name     string `json:"name"`
}

func (c Country) Kind() EntityKind { return KindCountry }
func (c Country) Table() string { return TableCountries }
func (c Country) NaturalKey() string { return c.ISO31661 }

func (c Country) Label() string {
	if c.Name == "" {
		return c.ISO31661
	}
	return c.Name
}

// InsertStatement omits the id column so storage assigns one.
func (c Country) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableCountries, []string{"iso_3166_1", "name"}, []any{c.ISO31661, c.Name})
}

func (c Country) LookupStatement() sql.Statement {
	return sql.SelectWhere(TableCountries, "id", "iso_3166_1", c.ISO31661)
}

// Resolve pairs the country with its storage id.
func (c Country) Resolve(id int64) ResolvedCountry {
	return ResolvedCountry{ID: id, Country: c}
}

// ResolvedCountry is a Country whose storage id is known.
type ResolvedCountry struct {
	ID int64 `json:"id"`
	Country
}

// InsertStatement includes the id explicitly.
func (c ResolvedCountry) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableCountries,
		[]string{"id", "iso_3166_1", "name"},
		[]any{c.ID, c.ISO31661, c.Name})
}

// Language is a spoken or original language before its storage id is known.
// Natural key: ISO 639-1 code.
type Language struct {
	ISO6391 string `json:"iso_639_1" validate:"len=2,alpha"`
	Name    string `json:"name"`
}

func (l Language) Kind() EntityKind { return KindLanguage }
func (l Language) Table() string { return TableLanguages }
func (l Language) NaturalKey() string { return l.ISO6391 }

func (l Language) Label() string {
	if l.Name == "" {
		return l.ISO6391
	}
	return l.Name
}

// InsertStatement omits the id column so storage assigns one.
func (l Language) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableLanguages, []string{"iso_639_1", "name"}, []any{l.ISO6391, l.Name})
}

func (l Language) LookupStatement() sql.Statement {
	return sql.SelectWhere(TableLanguages, "id", "iso_639_1", l.ISO6391)
}

// Resolve pairs the language with its storage id.
func (l Language) Resolve(id int64) ResolvedLanguage {
	return ResolvedLanguage{ID: id, Language: l}
}

// ResolvedLanguage is a Language whose storage id is known.
type ResolvedLanguage struct {
	ID int64 `json:"id"`
	Language
}

// InsertStatement includes the id explicitly.
func (l ResolvedLanguage) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableLanguages,
		[]string{"id", "iso_639_1", "name"},
		[]any{l.ID, l.ISO6391, l.Name})
}
