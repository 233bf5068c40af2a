package models

import "encoding/json"

// RawRecord is one undecoded source record: top-level field name to raw JSON.
type RawRecord map[string]json.RawMessage

// Raw record field names.
const (
	FieldID                  = "id"
	FieldBudget              = "budget"
	FieldRevenue             = "revenue"
	FieldPopularity          = "popularity"
	FieldRuntime             = "runtime"
	FieldReleaseDate         = "release_date"
	FieldHomepage            = "homepage"
	FieldIMDBID              = "imdb_id"
	FieldOriginalTitle       = "original_title"
	FieldOriginalLanguage    = "original_language"
	FieldOverview            = "overview"
	FieldPosterPath          = "poster_path"
	FieldStatus              = "status"
	FieldTagline             = "tagline"
	FieldTitle               = "title"
	FieldCollection          = "belongs_to_collection"
	FieldGenres              = "genres"
	FieldProductionCompanies = "production_companies"
	FieldProductionCountries = "production_countries"
	FieldKeywords            = "keywords"
	FieldCast                = "cast"
	FieldCrew                = "crew"
	FieldSpokenLanguages     = "spoken_languages"
)
