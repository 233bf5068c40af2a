package services

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
)

func loadFixture(t *testing.T) models.RawRecord {
	t.Helper()
	data, err := os.ReadFile("testdata/record.json")
	require.NoError(t, err)

	var raw models.RawRecord
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw
}

// withField copies raw and sets field to the given JSON, or removes it when
// value is empty.
func withField(raw models.RawRecord, field, value string) models.RawRecord {
	out := make(models.RawRecord, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	if value == "" {
		delete(out, field)
	} else {
		out[field] = []byte(value)
	}
	return out
}

func requireBuildError(t *testing.T, err error, field string, target error) {
	t.Helper()
	var be *apperrors.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, field, be.Field)
	assert.ErrorIs(t, err, target)
}

func TestRecordBuilder_Fixture(t *testing.T) {
	builder := NewRecordBuilder(zap.NewNop())

	record, err := builder.Build(loadFixture(t))
	require.NoError(t, err)

	m := record.Movie
	assert.Equal(t, int64(1), m.ID)
	assert.Equal(t, "Hot Tub Time Machine 2", m.Title)
	assert.Equal(t, time.Date(2015, 2, 20, 0, 0, 0, 0, time.UTC), m.ReleaseDate)
	require.NotNil(t, m.Runtime)
	assert.Equal(t, int64(93), *m.Runtime)

	assert.Equal(t, int64(313576), record.Collection.ID)
	assert.Equal(t, "Hot Tub Time Machine Collection", record.Collection.Name)
	assert.Len(t, record.Genres, 1)
	assert.Len(t, record.ProductionCompanies, 3)
	assert.Len(t, record.Keywords, 4)
	assert.Empty(t, record.SpokenLanguages)

	require.Len(t, record.ProductionCountries, 3)
	codes := []string{}
	for _, c := range record.ProductionCountries {
		codes = append(codes, c.ISO31661)
	}
	assert.Equal(t, []string{"US", "CA", "GB"}, codes)

	require.Len(t, record.Cast, 2)
	assert.Equal(t, int64(1), record.Cast[0].MovieID)
	assert.Equal(t, []string{"Nick", "Nick Webber-Agnew"}, record.Cast[1].Characters())
	assert.Equal(t, "", record.Cast[1].ProfilePath)
	require.Len(t, record.Crew, 1)
	assert.Equal(t, int64(1), record.Crew[0].MovieID)
	assert.Equal(t, "Steve Pink (Director)", record.Crew[0].Label())

	row := record.FactRow(nil, nil)
	assert.Equal(t,
		"INSERT INTO tmdb_movies (id, collection_id, budget, genre_ids, homepage, imdb_id, original_language, "+
			"original_title, overview, popularity, poster_path, production_company_ids, production_country_ids, "+
			"release_date, runtime, spoken_language_ids, status, tagline, title, keyword_ids, revenue) VALUES ("+
			"1, 313576, 14000000, ARRAY[35], $$$$, $$tt2637294$$, $$en$$, $$Hot Tub Time Machine 2$$, "+
			"$$When Lou, who has become the \"father of the Internet,\" is shot by an unknown assailant, "+
			"Jacob and Nick fire up the time machine again to save their friend.$$, 6.575393, "+
			"$$/tQtWuwvMf0hCc2QR2tkolwl7c3c.jpg$$, ARRAY[4, 60, 8411], ARRAY[]::bigint[], '2015-02-20', 93, "+
			"ARRAY[]::bigint[], $$Released$$, $$The Laws of Space and Time are About to be Violated.$$, "+
			"$$Hot Tub Time Machine 2$$, ARRAY[4379, 9663, 11830, 179431], 12314651) ON CONFLICT (id) DO NOTHING",
		row.InsertStatement().String())
}

func TestRecordBuilder_RequiredFields(t *testing.T) {
	builder := NewRecordBuilder(zap.NewNop())
	raw := loadFixture(t)

	tests := []struct {
		name   string
		raw    models.RawRecord
		field  string
		target error
	}{
		{name: "missing id", raw: withField(raw, "id", ""), field: "id", target: apperrors.ErrMissingField},
		{name: "null id", raw: withField(raw, "id", "null"), field: "id", target: apperrors.ErrMissingField},
		{name: "text id", raw: withField(raw, "id", `"abc"`), field: "id", target: apperrors.ErrInvalidField},
		{name: "fractional id", raw: withField(raw, "id", "1.5"), field: "id", target: apperrors.ErrInvalidField},
		{name: "missing title", raw: withField(raw, "title", ""), field: "title", target: apperrors.ErrMissingField},
		{name: "blank title", raw: withField(raw, "title", `"  "`), field: "title", target: apperrors.ErrMissingField},
		{name: "missing release date", raw: withField(raw, "release_date", ""), field: "release_date", target: apperrors.ErrMissingField},
		{name: "unparsable release date", raw: withField(raw, "release_date", `"coming soon"`), field: "release_date", target: apperrors.ErrInvalidDate},
		{name: "negative budget", raw: withField(raw, "budget", "-5"), field: "budget", target: apperrors.ErrInvalidField},
		{name: "negative runtime", raw: withField(raw, "runtime", `"-1"`), field: "runtime", target: apperrors.ErrInvalidField},
		{name: "list where a number belongs", raw: withField(raw, "revenue", "[1]"), field: "revenue", target: apperrors.ErrInvalidField},
		{name: "object title", raw: withField(raw, "title", `{"x": 1}`), field: "title", target: apperrors.ErrInvalidField},
		{name: "list title", raw: withField(raw, "title", `["a", "b"]`), field: "title", target: apperrors.ErrInvalidField},
		{name: "boolean title", raw: withField(raw, "title", "true"), field: "title", target: apperrors.ErrInvalidField},
		{name: "object tagline", raw: withField(raw, "tagline", `{"x": 1}`), field: "tagline", target: apperrors.ErrInvalidField},
		{name: "boolean release date", raw: withField(raw, "release_date", "false"), field: "release_date", target: apperrors.ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := builder.Build(tt.raw)
			assert.Nil(t, record)
			requireBuildError(t, err, tt.field, tt.target)
		})
	}
}

func TestRecordBuilder_NestedElementErrors(t *testing.T) {
	builder := NewRecordBuilder(zap.NewNop())
	raw := loadFixture(t)

	tests := []struct {
		name   string
		field  string
		value  string
		path   string
		target error
	}{
		{
			name:   "cast member without credit id",
			field:  "cast",
			value:  `[{"id": 1, "credit_id": "a", "name": "A"}, {"id": 2, "name": "B"}]`,
			path:   "cast[1].credit_id",
			target: apperrors.ErrMissingField,
		},
		{
			name:   "crew member without id",
			field:  "crew",
			value:  `[{"credit_id": "x", "name": "C"}]`,
			path:   "crew[0].id",
			target: apperrors.ErrMissingField,
		},
		{
			name:   "genre without name",
			field:  "genres",
			value:  `[{"id": 35}]`,
			path:   "genres[0].name",
			target: apperrors.ErrMissingField,
		},
		{
			name:   "three letter country code",
			field:  "production_countries",
			value:  `[{"iso_3166_1": "USA", "name": "United States"}]`,
			path:   "production_countries[0].iso_3166_1",
			target: apperrors.ErrInvalidField,
		},
		{
			name:   "numeric language code",
			field:  "spoken_languages",
			value:  `[{"iso_639_1": "12"}]`,
			path:   "spoken_languages[0].iso_639_1",
			target: apperrors.ErrInvalidField,
		},
		{
			name:   "zero keyword id",
			field:  "keywords",
			value:  `[{"id": 0, "name": "sequel"}]`,
			path:   "keywords[0].id",
			target: apperrors.ErrInvalidField,
		},
		{
			name:   "cast credit id holding an object",
			field:  "cast",
			value:  `[{"id": 1, "credit_id": {"a": 1}, "name": "A"}]`,
			path:   "cast[0].credit_id",
			target: apperrors.ErrInvalidField,
		},
		{
			name:   "cast name holding a list",
			field:  "cast",
			value:  `[{"id": 1, "credit_id": "a", "name": ["x"]}]`,
			path:   "cast[0].name",
			target: apperrors.ErrInvalidField,
		},
		{
			name:   "crew name holding a boolean",
			field:  "crew",
			value:  `[{"id": 2, "credit_id": "x", "name": true}]`,
			path:   "crew[0].name",
			target: apperrors.ErrInvalidField,
		},
		{
			name:   "crew job holding an object",
			field:  "crew",
			value:  `[{"id": 2, "credit_id": "x", "name": "C", "job": {"title": "Director"}}]`,
			path:   "crew[0].job",
			target: apperrors.ErrInvalidField,
		},
		{
			name:   "country name holding a list",
			field:  "production_countries",
			value:  `[{"iso_3166_1": "US", "name": ["United States"]}]`,
			path:   "production_countries[0].name",
			target: apperrors.ErrInvalidField,
		},
		{
			name:   "list field holding text",
			field:  "genres",
			value:  `"Comedy"`,
			path:   "genres",
			target: apperrors.ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := builder.Build(withField(raw, tt.field, tt.value))
			requireBuildError(t, err, tt.path, tt.target)
		})
	}
}

func TestRecordBuilder_MissingListsAreEmpty(t *testing.T) {
	builder := NewRecordBuilder(zap.NewNop())
	raw := loadFixture(t)
	for _, field := range []string{"genres", "production_companies", "production_countries", "keywords", "cast", "crew", "spoken_languages"} {
		raw = withField(raw, field, "")
	}
	raw = withField(raw, "runtime", `""`)

	record, err := builder.Build(raw)
	require.NoError(t, err)

	assert.Empty(t, record.Genres)
	assert.Empty(t, record.Cast)
	assert.Empty(t, record.Crew)
	assert.Nil(t, record.Movie.Runtime)
}

func TestRecordBuilder_Collection(t *testing.T) {
	builder := NewRecordBuilder(zap.NewNop())
	raw := loadFixture(t)

	t.Run("missing", func(t *testing.T) {
		_, err := builder.Build(withField(raw, "belongs_to_collection", ""))
		requireBuildError(t, err, "belongs_to_collection", apperrors.ErrMissingCollection)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := builder.Build(withField(raw, "belongs_to_collection", "[]"))
		requireBuildError(t, err, "belongs_to_collection", apperrors.ErrMissingCollection)
	})

	t.Run("bare object", func(t *testing.T) {
		record, err := builder.Build(withField(raw, "belongs_to_collection", `{"id": 10, "name": "Solo"}`))
		require.NoError(t, err)
		assert.Equal(t, int64(10), record.Collection.ID)
	})

	t.Run("several keeps the first", func(t *testing.T) {
		record, err := builder.Build(withField(raw, "belongs_to_collection",
			`[{"id": 10, "name": "First"}, {"id": 11, "name": "Second"}]`))
		require.NoError(t, err)
		assert.Equal(t, "First", record.Collection.Name)
	})

	t.Run("string encoded list", func(t *testing.T) {
		record, err := builder.Build(withField(raw, "belongs_to_collection", `"[{\"id\": 12, \"name\": \"Csv\"}]"`))
		require.NoError(t, err)
		assert.Equal(t, int64(12), record.Collection.ID)
	})

	t.Run("element without name", func(t *testing.T) {
		_, err := builder.Build(withField(raw, "belongs_to_collection", `[{"id": 10}]`))
		requireBuildError(t, err, "belongs_to_collection[0].name", apperrors.ErrMissingField)
	})
}

func TestRecordBuilder_CSVStyleValues(t *testing.T) {
	builder := NewRecordBuilder(zap.NewNop())
	raw := loadFixture(t)
	raw = withField(raw, "id", `"1"`)
	raw = withField(raw, "budget", `"14000000"`)
	raw = withField(raw, "popularity", `"6.575393"`)
	raw = withField(raw, "runtime", "93.0")
	raw = withField(raw, "imdb_id", `"tt2637294"`)
	raw = withField(raw, "original_language", `"EN"`)
	raw = withField(raw, "genres", `"[{\"id\": \"35\", \"name\": \"Comedy\"}]"`)

	record, err := builder.Build(raw)
	require.NoError(t, err)

	assert.Equal(t, int64(1), record.Movie.ID)
	assert.Equal(t, int64(14000000), record.Movie.Budget)
	assert.InDelta(t, 6.575393, record.Movie.Popularity, 1e-9)
	require.NotNil(t, record.Movie.Runtime)
	assert.Equal(t, int64(93), *record.Movie.Runtime)
	assert.Equal(t, "en", record.Movie.OriginalLanguage)
	require.Len(t, record.Genres, 1)
	assert.Equal(t, int64(35), record.Genres[0].ID)
}

func TestRecordBuilder_ScreensTextFields(t *testing.T) {
	builder := NewRecordBuilder(zap.NewNop())
	raw := withField(loadFixture(t), "tagline", `"'; DROP TABLE users--"`)

	record, err := builder.Build(raw)
	require.NoError(t, err)

	assert.Equal(t, "'; DROP TABLE users--", record.Movie.Tagline, "value is kept as is")
	found := false
	for _, w := range record.Warnings {
		if strings.HasPrefix(w, "tagline looks like SQL injection") {
			found = true
		}
	}
	assert.True(t, found, "expected a tagline warning, got %v", record.Warnings)
}

func TestParseReleaseDate(t *testing.T) {
	want := time.Date(2015, 2, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{name: "iso date", input: "2015-02-20"},
		{name: "us slashes", input: "02/20/2015"},
		{name: "day month name year", input: "20 February 2015"},
		{name: "timestamp", input: "2015-02-20T10:30:00Z"},
		{name: "surrounding words", input: "released 2015-02-20 in the USA"},
		{name: "parenthesised region", input: "2015-02-20 (USA)"},
		{name: "bare year before the date", input: "Episode 2015 released 2015-02-20"},
		{name: "month name after a year", input: "2015 remaster, out 20 Feb 2015"},
		{name: "trailing tokens", input: "2015-02-20 (USA) 1080p"},
		{name: "day month name in a sentence", input: "Released on 20 Feb 2015 worldwide"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseReleaseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseReleaseDate_YearOnly(t *testing.T) {
	got, err := parseReleaseDate("sometime in 2015")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseReleaseDate_NoDate(t *testing.T) {
	_, err := parseReleaseDate("coming soon")
	assert.ErrorIs(t, err, apperrors.ErrInvalidDate)
}
