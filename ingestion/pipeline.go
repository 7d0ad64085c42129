package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/kernelci/core"
	"github.com/poiesic/kernelci/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/afero"
)

// DefaultBasePath is where CI workers publish artifacts.
const DefaultBasePath = "/var/www/images/kernel-ci"

var (
	importCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kernelci_imports_total",
		Help: "Job imports by outcome",
	}, []string{"status"})
	importedDocumentsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kernelci_imported_documents_total",
		Help: "Documents handed to storage by successful imports",
	})
)

// ImportResult describes one job/kernel import.
type ImportResult struct {
	JobID    string
	Job      *core.Job
	Variants []*core.Variant
	Saved    int   // documents reported written by storage
	Err      error // storage failure, if any
}

// Event returns the notification payload for a completed import.
func (r *ImportResult) Event() *core.ImportEvent {
	return core.NewImportEvent(r.Job, r.Variants)
}

// Pipeline scans artifact directories, builds documents and saves them.
type Pipeline struct {
	repository     storage.DocumentRepository
	fs             afero.Fs
	scanner        *Scanner
	basePath       string
	pool           *ants.Pool
	now            func() time.Time
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBasePath sets the artifact root.
// Default is DefaultBasePath.
func WithBasePath(path string) Option {
	return func(p *Pipeline) error {
		if strings.TrimSpace(path) == "" {
			return ErrBasePathRequired
		}
		p.basePath = path
		return nil
	}
}

// WithFs sets the filesystem artifacts are read from.
// Default is the host filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(p *Pipeline) error {
		if fsys == nil {
			return ErrFilesystemRequired
		}
		p.fs = fsys
		return nil
	}
}

// WithPoolSize sets how many kernels ImportAll imports at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithClock overrides the time source used to stamp Job.Created.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// WithProgress makes ImportAll report progress to w every interval kernels.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		p.progress = w
		p.reportInterval = interval
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new import pipeline.
func NewPipeline(repository storage.DocumentRepository, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrDocumentRepositoryRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		repository: repository,
		fs:         afero.NewOsFs(),
		basePath:   DefaultBasePath,
		pool:       pool,
		now:        time.Now,
		logger:     slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.scanner = NewScanner(p.fs, p.logger)
	return p, nil
}

// BasePath returns the artifact root the pipeline imports from.
func (p *Pipeline) BasePath() string {
	return p.basePath
}

// ImportOption adjusts a single ImportJob call.
type ImportOption func(*importConfig)

type importConfig struct {
	baseDir  string
	callback func(*ImportResult)
}

// FromBase imports from dir instead of the pipeline's base path.
func FromBase(dir string) ImportOption {
	return func(c *importConfig) {
		c.baseDir = dir
	}
}

// WithCompletion registers fn to be called once storage has returned,
// whether the save succeeded or failed. fn is not called if the import
// stops before reaching storage.
func WithCompletion(fn func(*ImportResult)) ImportOption {
	return func(c *importConfig) {
		c.callback = fn
	}
}

// ImportJob scans <base>/<job>/<kernel>, builds the documents and saves them.
// A storage failure is returned as an error and also recorded in the result.
func (p *Pipeline) ImportJob(ctx context.Context, job, kernel string, opts ...ImportOption) (*ImportResult, error) {
	cfg := importConfig{baseDir: p.basePath}
	for _, opt := range opts {
		opt(&cfg)
	}

	if job == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidJob, core.ErrEmptyJobName)
	}
	if kernel == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidJob, core.ErrEmptyKernelName)
	}

	scans, err := p.scanner.Scan(ctx, cfg.baseDir, job, kernel)
	if err != nil {
		importCounter.WithLabelValues("scan_error").Inc()
		return nil, fmt.Errorf("scanning %s/%s: %w", job, kernel, err)
	}

	jobDoc, variants := BuildDocuments(job, kernel, scans, p.now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saved, err := p.repository.Save(ctx, documents(jobDoc, variants)...)
	result := &ImportResult{
		JobID:    jobDoc.ID,
		Job:      jobDoc,
		Variants: variants,
		Saved:    saved,
		Err:      err,
	}
	if cfg.callback != nil {
		cfg.callback(result)
	}

	if err != nil {
		importCounter.WithLabelValues("save_error").Inc()
		p.logger.Error("error saving import", "job_id", jobDoc.ID, "err", err)
		return result, fmt.Errorf("saving %s: %w", jobDoc.ID, err)
	}

	importCounter.WithLabelValues("ok").Inc()
	importedDocumentsCounter.Add(float64(saved))
	p.logger.Info("imported job", "job_id", jobDoc.ID, "variants", len(variants), "saved", saved)
	return result, nil
}

// ImportAll imports every job/kernel pair found under the base path.
// Failures are collected per pair; results are returned for every pair
// that reached storage, ordered by job ID. A missing base path imports nothing.
func (p *Pipeline) ImportAll(ctx context.Context) ([]*ImportResult, error) {
	pairs, err := p.discoverPairs()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("base path not found", "path", p.basePath)
			return nil, nil
		}
		return nil, err
	}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(pairs), p.reportInterval)
		tracker.Start()
		defer tracker.Finish()
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*ImportResult
		errs    *multierror.Error
	)
	record := func(result *ImportResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		if tracker != nil {
			tracker.Done(err != nil)
		}
	}

	for _, pair := range pairs {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			record(p.ImportJob(ctx, pair[0], pair[1]))
		})
		if submitErr != nil {
			wg.Done()
			record(nil, fmt.Errorf("%s: %w", core.JobID(pair[0], pair[1]), submitErr))
		}
	}
	wg.Wait()

	slices.SortFunc(results, func(a, b *ImportResult) int {
		return strings.Compare(a.JobID, b.JobID)
	})
	return results, errs.ErrorOrNil()
}

// discoverPairs lists every <job>/<kernel> directory under the base path.
// Hidden entries are skipped.
func (p *Pipeline) discoverPairs() ([][2]string, error) {
	jobs, err := p.scanner.listDirs(p.basePath)
	if err != nil {
		return nil, err
	}

	var pairs [][2]string
	for _, job := range jobs {
		if strings.HasPrefix(job, ".") {
			continue
		}
		kernels, err := p.scanner.listDirs(filepath.Join(p.basePath, job))
		if err != nil {
			return nil, err
		}
		for _, kernel := range kernels {
			if strings.HasPrefix(kernel, ".") {
				continue
			}
			pairs = append(pairs, [2]string{job, kernel})
		}
	}
	return pairs, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
