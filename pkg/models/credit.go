package models

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/sql"
)

// CharacterSeparator joins several character names in one source field.
const CharacterSeparator = "/"

// CastMember is one acting credit on a movie.
type CastMember struct {
	ID          int64  `json:"id" validate:"gt=0"`
	MovieID     int64  `json:"movie_id" validate:"gt=0"`
	CastID      int64  `json:"cast_id" validate:"gte=0"`
	CreditID    string `json:"credit_id" validate:"required"`
	Character   string `json:"character"`
	Gender      int    `json:"gender" validate:"gte=0"`
	Name        string `json:"name" validate:"required"`
	Order       int    `json:"order" validate:"gte=0"`
	ProfilePath string `json:"profile_path"`
}

func (c CastMember) Kind() EntityKind { return KindCast }
func (c CastMember) Table() string { return TableCast }

func (c CastMember) Label() string {
	if c.Character == "" {
		return c.Name
	}
	return fmt.Sprintf("%s as %s", c.Name, strings.Join(c.Characters(), ", "))
}

// Characters splits the character field on "/" into trimmed, non-empty names.
func (c CastMember) Characters() []string {
	parts := strings.Split(c.Character, CharacterSeparator)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

func (c CastMember) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableCast,
		[]string{"id", "movie_id", "cast_id", "credit_id", "character", "gender", "name", `"order"`, "profile_path"},
		[]any{c.ID, c.MovieID, c.CastID, c.CreditID, c.Characters(), c.Gender, c.Name, c.Order, c.ProfilePath},
		"id")
}

// CrewMember is one production credit on a movie.
type CrewMember struct {
	ID          int64  `json:"id" validate:"gt=0"`
	MovieID     int64  `json:"movie_id" validate:"gt=0"`
	CreditID    string `json:"credit_id" validate:"required"`
	Department  string `json:"department"`
	Gender      int    `json:"gender" validate:"gte=0"`
	Job         string `json:"job"`
	Name        string `json:"name" validate:"required"`
	ProfilePath string `json:"profile_path"`
}

func (c CrewMember) Kind() EntityKind { return KindCrew }
func (c CrewMember) Table() string { return TableCrew }

func (c CrewMember) Label() string {
	if c.Job == "" {
		return c.Name
	}
	return fmt.Sprintf("%s (%s)", c.Name, c.Job)
}

func (c CrewMember) InsertStatement() sql.Statement {
	return sql.InsertIgnore(TableCrew,
		[]string{"id", "movie_id", "credit_id", "department", "gender", "job", "name", "profile_path"},
		[]any{c.ID, c.MovieID, c.CreditID, c.Department, c.Gender, c.Job, c.Name, c.ProfilePath},
		"id")
}
