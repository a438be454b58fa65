// Package pipeline chains the processing stages: extract paragraphs from a
// document folder, build the retrieval ensemble, run every clause through
// every method, and aggregate the results into the final report. Each stage
// reads and writes a JSON artifact so stages can also run standalone.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenderlab/clausematch/internal/analysis"
	"github.com/tenderlab/clausematch/internal/config"
	"github.com/tenderlab/clausematch/internal/embedding"
	"github.com/tenderlab/clausematch/internal/ensemble"
	"github.com/tenderlab/clausematch/internal/extract"
	"github.com/tenderlab/clausematch/internal/models"
	"github.com/tenderlab/clausematch/internal/retriever"
	"github.com/tenderlab/clausematch/internal/storage"
)

// Stage artifact file names, written under the configured output directory.
const (
	CorpusFile  = "extracted_data.json"
	ResultsFile = "retrieval_results.json"
	ReportFile  = "analysis_report.json"
)

// ErrMissingInput is returned when a stage's input artifact does not exist
// yet. Run the producing stage first.
var ErrMissingInput = errors.New("stage input not found")

// Pipeline runs the processing stages against one configuration.
type Pipeline struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *storage.Store
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStore enables run history and paragraph persistence.
func WithStore(store *storage.Store) Option {
	return func(p *Pipeline) {
		p.store = store
	}
}

// New creates a Pipeline.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// artifact returns the path of a stage artifact inside the output directory.
func (p *Pipeline) artifact(name string) string {
	return filepath.Join(p.cfg.Extraction.OutputDir, name)
}

// Extract walks the source directory, extracts and merges paragraphs, and
// writes the corpus artifact.
func (p *Pipeline) Extract(ctx context.Context) (*models.Corpus, error) {
	ex := extract.NewExtractor(p.cfg.Extraction.MinWords, p.cfg.Extraction.MinChars,
		extract.WithLogger(p.logger))
	corpus, err := ex.ExtractFolder(p.cfg.Extraction.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if err := extract.SaveCorpus(p.artifact(CorpusFile), corpus); err != nil {
		return nil, err
	}
	if p.store != nil {
		if err := p.store.ReplaceParagraphs(ctx, corpus.Paragraphs); err != nil {
			p.logger.Warn("failed to persist paragraphs", zap.Error(err))
		}
	}
	p.logger.Info("extraction complete",
		zap.Int("paragraphs", corpus.Len()),
		zap.Int("unsupported", len(corpus.Unsupported)))
	return corpus, nil
}

// LoadCorpus reads the corpus artifact produced by Extract.
func (p *Pipeline) LoadCorpus() (*models.Corpus, error) {
	path := p.artifact(CorpusFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
	}
	return extract.LoadCorpus(path)
}

// LoadResults reads the result artifact produced by Retrieve.
func (p *Pipeline) LoadResults() (models.ResultSet, error) {
	path := p.artifact(ResultsFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
	}
	return analysis.LoadResults(path)
}

// BuildEnsemble constructs the encoders from config, assembles the method
// set and indexes the corpus. The returned cleanup releases encoder
// resources and must be called when retrieval is done.
func (p *Pipeline) BuildEnsemble(ctx context.Context, corpus *models.Corpus) (*ensemble.Ensemble, func(), error) {
	deps, cleanup, err := p.buildDeps()
	if err != nil {
		return nil, nil, err
	}
	ens := ensemble.New(p.cfg.Retrieval.Methods, deps, ensemble.WithLogger(p.logger))
	if err := ens.Build(ctx, corpus); err != nil {
		cleanup()
		return nil, nil, err
	}
	p.logger.Info("ensemble built", zap.Strings("methods", ens.Methods()))
	return ens, cleanup, nil
}

// RestoreEnsemble is BuildEnsemble with the combined dense index loaded from
// a previous save instead of re-embedded from the corpus. The lexical methods
// still index the corpus; only the embedding work is skipped.
func (p *Pipeline) RestoreEnsemble(ctx context.Context, corpus *models.Corpus, indexPath string) (*ensemble.Ensemble, func(), error) {
	deps, cleanup, err := p.buildDeps()
	if err != nil {
		return nil, nil, err
	}
	ens := ensemble.New(p.cfg.Retrieval.Methods, deps, ensemble.WithLogger(p.logger))
	if err := ens.RestoreIndex(indexPath, deps.Compute); err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := ens.Build(ctx, corpus); err != nil {
		cleanup()
		return nil, nil, err
	}
	p.logger.Info("ensemble built from saved index",
		zap.String("index_path", indexPath),
		zap.Strings("methods", ens.Methods()))
	return ens, cleanup, nil
}

// buildDeps creates the configured encoders. A missing model path leaves the
// corresponding encoder nil; the dense methods depending on it are then
// skipped by the ensemble.
func (p *Pipeline) buildDeps() (retriever.Deps, func(), error) {
	device, err := embedding.ParseDevice(p.cfg.Embedding.Device)
	if err != nil {
		return retriever.Deps{}, nil, err
	}
	cc := embedding.ComputeContext{Device: device}
	deps := retriever.Deps{
		Compute:   cc,
		BatchSize: p.cfg.Embedding.BatchSize,
	}
	var closers []func() error
	load := func(path, role string) embedding.Embedder {
		if path == "" {
			p.logger.Debug("no model configured", zap.String("role", role))
			return nil
		}
		emb, err := embedding.NewONNXEmbedder(path, cc,
			p.cfg.Embedding.Dimensions, p.cfg.Embedding.MaxTokens, p.cfg.Embedding.CacheSize)
		if err != nil {
			p.logger.Warn("encoder failed to load, dense methods using it are skipped",
				zap.String("role", role), zap.String("path", path), zap.Error(err))
			return nil
		}
		closers = append(closers, emb.Close)
		return emb
	}
	deps.Encoder = load(p.cfg.Embedding.EncoderModelPath, "encoder")
	deps.DocEncoder = load(p.cfg.Embedding.DPRDocModelPath, "dpr-document")
	deps.QueryEncoder = load(p.cfg.Embedding.DPRQueryModelPath, "dpr-query")
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				p.logger.Warn("encoder close failed", zap.Error(err))
			}
		}
	}
	return deps, cleanup, nil
}

// Retrieve runs every clause through every usable method and writes the
// result artifact. A method failing on one clause loses only that cell;
// everything already gathered is kept.
func (p *Pipeline) Retrieve(ctx context.Context, ens *ensemble.Ensemble, clauses models.ClauseSet) (models.ResultSet, error) {
	results := make(models.ResultSet, len(clauses))
	for _, clauseID := range clauses.SortedIDs() {
		query := clauses[clauseID]
		perMethod := make(map[string]models.MethodResults)
		for _, method := range ens.Methods() {
			hits, err := ens.Retrieve(ctx, method, query, p.cfg.Retrieval.K)
			if err != nil {
				var unknown *ensemble.UnknownMethodError
				if errors.As(err, &unknown) {
					p.logger.Warn("unknown retrieval method requested",
						zap.String("method", unknown.Method))
				} else {
					p.logger.Warn("retrieval failed",
						zap.String("clause", clauseID),
						zap.String("method", method),
						zap.Error(err))
				}
				continue
			}
			perMethod[method] = hits
		}
		results[clauseID] = perMethod
	}
	if err := analysis.SaveResults(p.artifact(ResultsFile), results); err != nil {
		return nil, err
	}
	return results, nil
}

// Analyse aggregates a result set into the ranked report and writes the
// report artifact.
func (p *Pipeline) Analyse(corpus *models.Corpus, clauses models.ClauseSet, results models.ResultSet) (*models.AnalysisReport, error) {
	an := analysis.New(analysis.Options{
		MinThreshold: p.cfg.Analysis.MinThreshold,
		MinFrequency: p.cfg.Analysis.MinFrequency,
		TopNDocs:     p.cfg.Analysis.TopNDocs,
		TopMMethods:  p.cfg.Analysis.TopMMethods,
	}, analysis.WithLogger(p.logger))
	report := an.Analyse(corpus, clauses, results)
	if err := analysis.SaveReport(p.artifact(ReportFile), report); err != nil {
		return nil, err
	}
	return report, nil
}

// Run executes the full chain: extract, build, retrieve, analyse. Every run
// gets a unique ID recorded in the logs and, when storage is enabled, in the
// run history.
func (p *Pipeline) Run(ctx context.Context) (*models.AnalysisReport, error) {
	runID := uuid.NewString()
	started := time.Now()
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("run started")

	record := func(status string, docs, methods int) {
		if p.store == nil {
			return
		}
		err := p.store.RecordRun(ctx, storage.Run{
			ID:         runID,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Status:     status,
			Documents:  docs,
			Methods:    methods,
			ReportPath: p.artifact(ReportFile),
		})
		if err != nil {
			logger.Warn("failed to record run", zap.Error(err))
		}
	}

	corpus, err := p.Extract(ctx)
	if err != nil {
		record(storage.RunFailed, 0, 0)
		return nil, err
	}
	clauses, err := models.LoadClauses(p.cfg.Retrieval.ClausesPath)
	if err != nil {
		record(storage.RunFailed, corpus.Len(), 0)
		return nil, err
	}
	ens, cleanup, err := p.BuildEnsemble(ctx, corpus)
	if err != nil {
		record(storage.RunFailed, corpus.Len(), 0)
		return nil, err
	}
	defer cleanup()

	results, err := p.Retrieve(ctx, ens, clauses)
	if err != nil {
		record(storage.RunFailed, corpus.Len(), len(ens.Methods()))
		return nil, err
	}
	report, err := p.Analyse(corpus, clauses, results)
	if err != nil {
		record(storage.RunFailed, corpus.Len(), len(ens.Methods()))
		return nil, err
	}

	if p.cfg.Storage.IndexPath != "" {
		if err := ens.SaveIndex(p.cfg.Storage.IndexPath); err != nil {
			logger.Warn("failed to save combined index", zap.Error(err))
		}
	}
	record(storage.RunCompleted, corpus.Len(), len(ens.Methods()))
	logger.Info("run finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("reported_docs", len(report.Docs)))
	return report, nil
}
