package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/sql"
)

// RecordBuilder turns one raw source record into a MovieRecord aggregate.
// A *apperrors.BuildError is returned when the record cannot be built; nothing
// has been written at that point.
type RecordBuilder interface {
	Build(raw models.RawRecord) (*models.MovieRecord, error)
}

type recordBuilder struct {
	logger *zap.Logger
}

func NewRecordBuilder(logger *zap.Logger) RecordBuilder {
	return &recordBuilder{logger: logger.Named("record_builder")}
}

var _ RecordBuilder = (*recordBuilder)(nil)

func (b *recordBuilder) Build(raw models.RawRecord) (*models.MovieRecord, error) {
	movie, err := buildMovie(raw)
	if err != nil {
		return nil, err
	}

	collection, err := b.buildCollection(raw, movie.ID)
	if err != nil {
		return nil, err
	}

	record := &models.MovieRecord{Movie: movie, Collection: collection}

	if record.Genres, err = buildList(raw, models.FieldGenres, newGenre); err != nil {
		return nil, err
	}
	if record.ProductionCompanies, err = buildList(raw, models.FieldProductionCompanies, newProductionCompany); err != nil {
		return nil, err
	}
	if record.ProductionCountries, err = buildList(raw, models.FieldProductionCountries, newCountry); err != nil {
		return nil, err
	}
	if record.Keywords, err = buildList(raw, models.FieldKeywords, newKeyword); err != nil {
		return nil, err
	}
	if record.SpokenLanguages, err = buildList(raw, models.FieldSpokenLanguages, newLanguage); err != nil {
		return nil, err
	}
	record.Cast, err = buildList(raw, models.FieldCast, func(path string, el models.RawRecord) (models.CastMember, error) {
		return newCastMember(path, el, movie.ID)
	})
	if err != nil {
		return nil, err
	}
	record.Crew, err = buildList(raw, models.FieldCrew, func(path string, el models.RawRecord) (models.CrewMember, error) {
		return newCrewMember(path, el, movie.ID)
	})
	if err != nil {
		return nil, err
	}

	record.Warnings = b.screen(record)
	return record, nil
}

func buildMovie(raw models.RawRecord) (models.Movie, error) {
	var (
		m   models.Movie
		err error
	)
	if m.ID, err = requiredInt64(raw, "", models.FieldID); err != nil {
		return m, err
	}
	if m.Title, err = requiredString(raw, "", models.FieldTitle); err != nil {
		return m, err
	}
	if m.Budget, err = optionalInt64(raw, "", models.FieldBudget); err != nil {
		return m, err
	}
	if m.Revenue, err = optionalInt64(raw, "", models.FieldRevenue); err != nil {
		return m, err
	}
	if m.Popularity, err = optionalFloat64(raw, "", models.FieldPopularity); err != nil {
		return m, err
	}
	if m.Runtime, err = optionalInt64Ptr(raw, "", models.FieldRuntime); err != nil {
		return m, err
	}

	released, err := optionalString(raw, "", models.FieldReleaseDate)
	if err != nil {
		return m, err
	}
	if released == "" {
		return m, apperrors.NewBuildError(models.FieldReleaseDate, apperrors.ErrMissingField)
	}
	if m.ReleaseDate, err = parseReleaseDate(released); err != nil {
		return m, apperrors.NewBuildError(models.FieldReleaseDate, err)
	}

	err = optionalStrings(raw, "",
		stringField{models.FieldHomepage, &m.Homepage},
		stringField{models.FieldIMDBID, &m.IMDBID},
		stringField{models.FieldOriginalTitle, &m.OriginalTitle},
		stringField{models.FieldOriginalLanguage, &m.OriginalLanguage},
		stringField{models.FieldOverview, &m.Overview},
		stringField{models.FieldPosterPath, &m.PosterPath},
		stringField{models.FieldStatus, &m.Status},
		stringField{models.FieldTagline, &m.Tagline},
	)
	if err != nil {
		return m, err
	}
	m.OriginalLanguage = strings.ToLower(m.OriginalLanguage)

	return m, validateEntity("", m)
}

var (
	dateNumberPattern = regexp.MustCompile(`\d+`)
	monthNamePattern  = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`)
)

// parseReleaseDate returns the most complete date found in s. The whole string
// is tried first, then windows of whitespace-separated tokens from longest to
// shortest, left to right, so surrounding words are ignored. A window naming
// day, month and year wins at once; otherwise the window with the most date
// parts does, so a bare year never shadows a full date later in s.
func parseReleaseDate(s string) (time.Time, error) {
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return dateOnly(t), nil
	}

	tokens := strings.Fields(s)
	for i := range tokens {
		tokens[i] = strings.Trim(tokens[i], ",;()[]")
	}

	var (
		best      time.Time
		bestParts int
	)
	for size := len(tokens) - 1; size >= 1; size-- {
		for start := 0; start+size <= len(tokens); start++ {
			candidate := strings.TrimSpace(strings.Join(tokens[start:start+size], " "))
			if candidate == "" {
				continue
			}
			t, err := dateparse.ParseIn(candidate, time.UTC)
			if err != nil {
				continue
			}
			parts := dateParts(candidate)
			if parts >= 3 {
				return dateOnly(t), nil
			}
			if parts > bestParts {
				best, bestParts = t, parts
			}
		}
	}
	if bestParts > 0 {
		return dateOnly(best), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidDate, s)
}

// dateParts counts the numeric groups and month names in a date candidate,
// capped at three.
func dateParts(candidate string) int {
	n := len(dateNumberPattern.FindAllString(candidate, -1)) +
		len(monthNamePattern.FindAllString(candidate, -1))
	return min(n, 3)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// buildCollection takes the first element of belongs_to_collection. A record
// without a collection cannot be built.
func (b *recordBuilder) buildCollection(raw models.RawRecord, movieID int64) (models.Collection, error) {
	elements, err := decodeObjects(raw[models.FieldCollection], models.FieldCollection, true)
	if err != nil {
		return models.Collection{}, err
	}
	if len(elements) == 0 {
		return models.Collection{}, apperrors.NewBuildError(models.FieldCollection, apperrors.ErrMissingCollection)
	}
	if len(elements) > 1 {
		b.logger.Debug("Record lists several collections, keeping the first",
			zap.Int64("movie_id", movieID),
			zap.Int("count", len(elements)))
	}
	return newCollection(models.FieldCollection+"[0]", elements[0])
}

func newCollection(path string, el models.RawRecord) (models.Collection, error) {
	var (
		c   models.Collection
		err error
	)
	if c.ID, err = requiredInt64(el, path, "id"); err != nil {
		return c, err
	}
	if c.Name, err = requiredString(el, path, "name"); err != nil {
		return c, err
	}
	err = optionalStrings(el, path,
		stringField{"poster_path", &c.PosterPath},
		stringField{"backdrop_path", &c.BackdropPath},
	)
	if err != nil {
		return c, err
	}
	return c, validateEntity(path, c)
}

func newGenre(path string, el models.RawRecord) (models.Genre, error) {
	id, name, err := idAndName(path, el)
	if err != nil {
		return models.Genre{}, err
	}
	g := models.Genre{ID: id, Name: name}
	return g, validateEntity(path, g)
}

func newProductionCompany(path string, el models.RawRecord) (models.ProductionCompany, error) {
	id, name, err := idAndName(path, el)
	if err != nil {
		return models.ProductionCompany{}, err
	}
	p := models.ProductionCompany{ID: id, Name: name}
	return p, validateEntity(path, p)
}

func newKeyword(path string, el models.RawRecord) (models.Keyword, error) {
	id, name, err := idAndName(path, el)
	if err != nil {
		return models.Keyword{}, err
	}
	k := models.Keyword{ID: id, Name: name}
	return k, validateEntity(path, k)
}

func idAndName(path string, el models.RawRecord) (int64, string, error) {
	id, err := requiredInt64(el, path, "id")
	if err != nil {
		return 0, "", err
	}
	name, err := requiredString(el, path, "name")
	if err != nil {
		return 0, "", err
	}
	return id, name, nil
}

func newCountry(path string, el models.RawRecord) (models.Country, error) {
	code, err := requiredString(el, path, "iso_3166_1")
	if err != nil {
		return models.Country{}, err
	}
	name, err := optionalString(el, path, "name")
	if err != nil {
		return models.Country{}, err
	}
	c := models.Country{ISO31661: strings.ToUpper(code), Name: name}
	return c, validateEntity(path, c)
}

func newLanguage(path string, el models.RawRecord) (models.Language, error) {
	code, err := requiredString(el, path, "iso_639_1")
	if err != nil {
		return models.Language{}, err
	}
	name, err := optionalString(el, path, "name")
	if err != nil {
		return models.Language{}, err
	}
	l := models.Language{ISO6391: strings.ToLower(code), Name: name}
	return l, validateEntity(path, l)
}

func newCastMember(path string, el models.RawRecord, movieID int64) (models.CastMember, error) {
	var (
		c   = models.CastMember{MovieID: movieID}
		err error
	)
	if c.ID, err = requiredInt64(el, path, "id"); err != nil {
		return c, err
	}
	if c.CreditID, err = requiredString(el, path, "credit_id"); err != nil {
		return c, err
	}
	if c.Name, err = requiredString(el, path, "name"); err != nil {
		return c, err
	}
	if c.CastID, err = optionalInt64(el, path, "cast_id"); err != nil {
		return c, err
	}
	if c.Gender, err = optionalInt(el, path, "gender"); err != nil {
		return c, err
	}
	if c.Order, err = optionalInt(el, path, "order"); err != nil {
		return c, err
	}
	err = optionalStrings(el, path,
		stringField{"character", &c.Character},
		stringField{"profile_path", &c.ProfilePath},
	)
	if err != nil {
		return c, err
	}
	return c, validateEntity(path, c)
}

func newCrewMember(path string, el models.RawRecord, movieID int64) (models.CrewMember, error) {
	var (
		c   = models.CrewMember{MovieID: movieID}
		err error
	)
	if c.ID, err = requiredInt64(el, path, "id"); err != nil {
		return c, err
	}
	if c.CreditID, err = requiredString(el, path, "credit_id"); err != nil {
		return c, err
	}
	if c.Name, err = requiredString(el, path, "name"); err != nil {
		return c, err
	}
	if c.Gender, err = optionalInt(el, path, "gender"); err != nil {
		return c, err
	}
	err = optionalStrings(el, path,
		stringField{"department", &c.Department},
		stringField{"job", &c.Job},
		stringField{"profile_path", &c.ProfilePath},
	)
	if err != nil {
		return c, err
	}
	return c, validateEntity(path, c)
}

// screen checks free-text fields with libinjection. Hits are kept as warnings;
// the values are still written through bound parameters.
func (b *recordBuilder) screen(record *models.MovieRecord) []string {
	m := record.Movie
	params := map[string]any{
		models.FieldTitle:         m.Title,
		models.FieldOriginalTitle: m.OriginalTitle,
		models.FieldOverview:      m.Overview,
		models.FieldTagline:       m.Tagline,
		models.FieldHomepage:      m.Homepage,
		models.FieldStatus:        m.Status,
		models.FieldIMDBID:        m.IMDBID,
	}
	for i, c := range record.Cast {
		params[fmt.Sprintf("%s[%d].name", models.FieldCast, i)] = c.Name
		params[fmt.Sprintf("%s[%d].character", models.FieldCast, i)] = c.Character
	}
	for i, c := range record.Crew {
		params[fmt.Sprintf("%s[%d].name", models.FieldCrew, i)] = c.Name
		params[fmt.Sprintf("%s[%d].job", models.FieldCrew, i)] = c.Job
	}

	var warnings []string
	for _, hit := range sql.CheckAllParameters(params) {
		b.logger.Warn("Text field looks like SQL injection",
			zap.Int64("movie_id", m.ID),
			zap.String("field", hit.ParamName),
			zap.String("fingerprint", hit.Fingerprint))
		warnings = append(warnings, fmt.Sprintf("%s looks like SQL injection (fingerprint %s)", hit.ParamName, hit.Fingerprint))
	}
	return warnings
}
