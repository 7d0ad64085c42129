// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kernelci imports CI build artifacts into a document store and
// notifies HTTP subscribers about CI events.
package kernelci

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/poiesic/kernelci/config"
	"github.com/poiesic/kernelci/core"
	"github.com/poiesic/kernelci/hooks"
	"github.com/poiesic/kernelci/ingestion"
	"github.com/poiesic/kernelci/storage"
	"github.com/poiesic/kernelci/storage/badger"
	"github.com/spf13/afero"
)

// Service wires the document store, import pipeline and hook dispatcher.
type Service struct {
	config     *config.Config
	backend    *badger.Backend
	repo       storage.DocumentRepository
	pipeline   *ingestion.Pipeline
	dispatcher *hooks.Dispatcher
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	fs             afero.Fs
	inMemory       bool
	client         *http.Client
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// WithFs sets the filesystem artifacts and the hooks file are read from.
func WithFs(fsys afero.Fs) ServiceOption {
	return func(o *serviceOptions) {
		o.fs = fsys
	}
}

// WithInMemoryStore keeps documents in memory instead of at Config.DBPath.
func WithInMemoryStore() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithHTTPClient sets the client hook deliveries use.
func WithHTTPClient(client *http.Client) ServiceOption {
	return func(o *serviceOptions) {
		o.client = client
	}
}

// WithProgress reports ImportAll progress to w every interval kernels.
func WithProgress(w io.Writer, interval int) ServiceOption {
	return func(o *serviceOptions) {
		o.progress = w
		o.reportInterval = interval
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// ImportReport is the outcome of one import and of the build notification
// that followed it, if one was requested.
type ImportReport struct {
	Result   *ingestion.ImportResult
	Outcomes []hooks.Outcome
}

// JobView is a job together with its variants.
type JobView struct {
	Job      *core.Job       `json:"job"`
	Variants []*core.Variant `json:"variants"`
}

// NewService opens the document store described by cfg and builds the
// pipeline and dispatcher on top of it. A nil cfg uses config.DefaultConfig.
func NewService(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &serviceOptions{
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(cfg.DBPath, options.inMemory)
	if err != nil {
		return nil, err
	}
	repo := badger.NewDocumentRepository(backend)

	pipelineOpts := []ingestion.Option{
		ingestion.WithBasePath(cfg.BasePath),
		ingestion.WithFs(options.fs),
		ingestion.WithLogger(options.logger),
	}
	if options.progress != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithProgress(options.progress, options.reportInterval))
	}
	pipeline, err := ingestion.NewPipeline(repo, pipelineOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	registry := hooks.NewRegistry(hooks.FileLoader(options.fs, cfg.HooksFile), options.logger)
	dispatchOpts := []hooks.Option{
		hooks.WithTimeout(cfg.HTTPTimeout),
		hooks.WithMaxAttempts(cfg.MaxAttempts),
		hooks.WithRetryDelay(cfg.RetryDelay),
		hooks.WithRetryServerErrors(cfg.RetryServerErrors),
		hooks.WithConcurrency(cfg.Concurrency),
		hooks.WithLogger(options.logger),
	}
	if options.client != nil {
		dispatchOpts = append(dispatchOpts, hooks.WithHTTPClient(options.client))
	}
	dispatcher, err := hooks.NewDispatcher(registry, dispatchOpts...)
	if err != nil {
		pipeline.Release()
		backend.Close()
		return nil, err
	}

	return &Service{
		config:     cfg,
		backend:    backend,
		repo:       repo,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		logger:     options.logger,
	}, nil
}

// Close releases workers and closes the document store.
func (s *Service) Close() error {
	s.dispatcher.Close()
	s.pipeline.Release()

	if err := s.repo.Close(); err != nil {
		s.logger.Error("error closing document repository", "err", err)
		return err
	}

	// Close backend
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *config.Config {
	return s.config
}

// Repository returns the document store.
func (s *Service) Repository() storage.DocumentRepository {
	return s.repo
}

// ImportJob imports one job/kernel pair. When notify is set and the
// documents were saved, a build event is dispatched to subscribers.
func (s *Service) ImportJob(ctx context.Context, job, kernel string, notify bool) (*ImportReport, error) {
	report := &ImportReport{}
	var opts []ingestion.ImportOption
	if notify {
		opts = append(opts, ingestion.WithCompletion(func(result *ingestion.ImportResult) {
			if result.Err != nil {
				return
			}
			report.Outcomes = s.dispatcher.Dispatch(ctx, core.EventBuild, result.Event())
		}))
	}

	result, err := s.pipeline.ImportJob(ctx, job, kernel, opts...)
	report.Result = result
	return report, err
}

// ImportAll imports every job/kernel pair under the configured base path.
func (s *Service) ImportAll(ctx context.Context) ([]*ingestion.ImportResult, error) {
	return s.pipeline.ImportAll(ctx)
}

// Dispatch delivers payload to the subscribers of eventType.
func (s *Service) Dispatch(ctx context.Context, eventType core.EventType, payload any) []hooks.Outcome {
	return s.dispatcher.Dispatch(ctx, eventType, payload)
}

// Lookup returns the job with the given ID and its variants.
// It returns storage.ErrNotFound if the job does not exist.
func (s *Service) Lookup(ctx context.Context, id string) (*JobView, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	variants, err := s.repo.GetVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	return &JobView{Job: job, Variants: variants}, nil
}

// IsNotFound reports whether err means a requested document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
