package ingest

import (
	"github.com/mrlokans/querylog/internal/config"
	"github.com/mrlokans/querylog/internal/flatten"
)

// Settings are the knobs shared by every entry point: CLI flags, HTTP
// query parameters and task payloads override the configured values.
type Settings struct {
	Delimiter          string
	CategoryField      string
	OmitCategoryColumn bool
	Categories         string // comma-separated filter
	AlwaysInclude      string // comma-separated, unioned into a non-empty filter
	BatchSize          int
	Workers            int
}

func SettingsFromConfig(cfg config.Ingest) Settings {
	return Settings{
		Delimiter:          cfg.Delimiter,
		CategoryField:      cfg.CategoryField,
		OmitCategoryColumn: cfg.OmitCategoryColumn,
		Categories:         cfg.CategoryFilter,
		AlwaysInclude:      cfg.AlwaysInclude,
		BatchSize:          cfg.BatchSize,
		Workers:            cfg.Workers,
	}
}

// FilterSet builds the category filter. An empty filter stays empty, so
// the always-include list never turns accept-all into a restriction.
func (s Settings) FilterSet() flatten.FilterSet {
	filter := flatten.ParseFilterSet(s.Categories)
	if s.AlwaysInclude == "" {
		return filter
	}
	return filter.Union(flatten.ParseFilterSet(s.AlwaysInclude).Names()...)
}

func (s Settings) Flattener() *flatten.Flattener {
	opts := []flatten.Option{
		flatten.WithCategoryField(s.CategoryField),
		flatten.WithDelimiter(s.Delimiter),
	}
	if s.OmitCategoryColumn {
		opts = append(opts, flatten.WithOmitCategoryColumn())
	}
	return flatten.New(opts...)
}

// Pipeline builds a pipeline from the settings.
func (s Settings) Pipeline(observer Observer) *Pipeline {
	opts := []PipelineOption{
		WithFilter(s.FilterSet()),
		WithBatchSize(s.BatchSize),
		WithWorkers(s.Workers),
	}
	if observer != nil {
		opts = append(opts, WithObserver(observer))
	}
	return NewPipeline(s.Flattener(), opts...)
}
