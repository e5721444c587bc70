package ingest

import (
	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/router"
)

// Service hands out runners that share settings, the run ledger and
// observers. The HTTP API, the task queue and the folder sweep all start
// their runs through it.
type Service struct {
	settings    Settings
	observer    Observer
	runObserver RunObserver
	recorder    RunRecorder
	routerOpts  []router.Option
}

type ServiceOption func(*Service)

func WithServiceObserver(observer Observer) ServiceOption {
	return func(s *Service) {
		s.observer = observer
	}
}

func WithServiceRunObserver(observer RunObserver) ServiceOption {
	return func(s *Service) {
		s.runObserver = observer
	}
}

func WithServiceRecorder(recorder RunRecorder) ServiceOption {
	return func(s *Service) {
		s.recorder = recorder
	}
}

func WithServiceRouterOptions(opts ...router.Option) ServiceOption {
	return func(s *Service) {
		s.routerOpts = append(s.routerOpts, opts...)
	}
}

func NewService(settings Settings, opts ...ServiceOption) *Service {
	s := &Service{settings: settings}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Settings() Settings {
	return s.settings
}

// Runner returns a runner for trigger. A non-empty categories list replaces
// the configured filter; the always-include list still applies to it.
func (s *Service) Runner(trigger entities.RunTrigger, categories string) *Runner {
	settings := s.settings
	if categories != "" {
		settings.Categories = categories
	}

	opts := []RunnerOption{
		WithTrigger(trigger),
		WithRouterOptions(s.routerOpts...),
	}
	if s.recorder != nil {
		opts = append(opts, WithRecorder(s.recorder))
	}
	if s.runObserver != nil {
		opts = append(opts, WithRunObserver(s.runObserver))
	}
	return NewRunner(settings.Pipeline(s.observer), opts...)
}
