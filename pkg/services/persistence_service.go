package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/metrics"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
)

// PersistenceService writes a built MovieRecord to storage.
type PersistenceService interface {
	// Persist attempts every write the record needs and reports each outcome.
	// A failed write never stops the writes after it.
	Persist(ctx context.Context, record *models.MovieRecord) *models.WriteReport
}

type persistenceService struct {
	storage  Storage
	resolver DimensionResolver
	logger   *zap.Logger
}

func NewPersistenceService(storage Storage, resolver DimensionResolver, logger *zap.Logger) PersistenceService {
	return &persistenceService{
		storage:  storage,
		resolver: resolver,
		logger:   logger.Named("persistence"),
	}
}

var _ PersistenceService = (*persistenceService)(nil)

func (s *persistenceService) Persist(ctx context.Context, record *models.MovieRecord) *models.WriteReport {
	report := models.NewWriteReport(record.Movie.ID)

	countries, countriesFailed := resolveDistinct(ctx, s, report, record.ProductionCountries, s.resolver.ResolveCountry)
	spoken, spokenFailed := resolveDistinct(ctx, s, report, record.SpokenLanguages, s.resolver.ResolveLanguage)
	originalFailed := s.resolveOriginalLanguage(ctx, report, record, spoken)

	unresolved := countriesFailed + spokenFailed + originalFailed
	row := record.FactRow(countries, spoken)
	if unresolved > 0 {
		err := fmt.Errorf("%w: movie row skipped, %s unresolved",
			apperrors.ErrUnresolved, models.Quantify(unresolved, "dimension"))
		s.record(report, models.KindMovie, row.Label(), err)
	} else {
		s.write(ctx, report, row)
	}

	s.write(ctx, report, record.Collection)
	for _, g := range record.Genres {
		s.write(ctx, report, g)
	}
	for _, c := range record.ProductionCompanies {
		s.write(ctx, report, c)
	}
	for _, k := range record.Keywords {
		s.write(ctx, report, k)
	}
	for _, c := range record.Cast {
		s.write(ctx, report, c)
	}
	for _, c := range record.Crew {
		s.write(ctx, report, c)
	}

	if !report.OK() {
		s.logger.Debug("Record partially written",
			zap.Int64("movie_id", record.Movie.ID),
			zap.String("summary", report.Summary()))
	}
	return report
}

// resolveDistinct resolves each natural key once and returns the resolved
// values in record order, duplicates included. Failed keys are dropped from the
// result and counted.
func resolveDistinct[D models.Dimension, R any](
	ctx context.Context,
	s *persistenceService,
	report *models.WriteReport,
	dims []D,
	resolve func(context.Context, D) (R, error),
) ([]R, int) {
	byKey := make(map[string]R, len(dims))
	failedKeys := make(map[string]bool)
	for _, d := range dims {
		key := d.NaturalKey()
		if _, seen := byKey[key]; seen || failedKeys[key] {
			continue
		}
		resolved, err := resolve(ctx, d)
		s.record(report, d.Kind(), d.Label(), err)
		if err != nil {
			failedKeys[key] = true
			continue
		}
		byKey[key] = resolved
	}

	out := make([]R, 0, len(dims))
	for _, d := range dims {
		if r, ok := byKey[d.NaturalKey()]; ok {
			out = append(out, r)
		}
	}
	return out, len(failedKeys)
}

// resolveOriginalLanguage makes sure the movie's original language exists in
// the languages dimension. It returns 1 when that fails.
func (s *persistenceService) resolveOriginalLanguage(ctx context.Context, report *models.WriteReport, record *models.MovieRecord, spoken []models.ResolvedLanguage) int {
	code := record.Movie.OriginalLanguage
	if code == "" {
		return 0
	}
	for _, l := range spoken {
		if l.ISO6391 == code {
			return 0
		}
	}
	for _, l := range record.SpokenLanguages {
		if l.ISO6391 == code {
			// Already attempted and failed with the spoken languages.
			return 0
		}
	}

	original := models.Language{ISO6391: code, Name: languageName(code)}
	_, err := s.resolver.ResolveLanguage(ctx, original)
	s.record(report, original.Kind(), original.Label(), err)
	if err != nil {
		return 1
	}
	return 0
}

// languageName returns the English display name of an ISO 639-1 code, or ""
// when the code is unknown.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return display.English.Languages().Name(tag)
}

func (s *persistenceService) write(ctx context.Context, report *models.WriteReport, entity models.Entity) {
	s.record(report, entity.Kind(), entity.Label(), s.storage.ExecuteWrite(ctx, entity.InsertStatement()))
}

func (s *persistenceService) record(report *models.WriteReport, kind models.EntityKind, label string, err error) {
	report.Record(kind, label, err)
	metrics.RecordEntityWrite(string(kind), err != nil)
}
