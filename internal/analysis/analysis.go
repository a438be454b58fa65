// Package analysis turns raw per-method retrieval results into the final
// ranked document report: scores are brought onto a shared 0-100 scale,
// folded per document with thresholding and frequency counting, then ranked
// and truncated.
package analysis

import (
	"sort"

	"go.uber.org/zap"

	"github.com/tenderlab/clausematch/internal/models"
)

// Options controls thresholding and truncation.
type Options struct {
	MinThreshold float64 // scores below this never count
	MinFrequency int     // documents with fewer qualifying hits are dropped
	TopNDocs     int     // documents kept in the report
	TopMMethods  int     // methods kept per clause entry
}

// fractionalMethods score in [0,1] and are scaled by 100 before comparison
// with the percentage-style methods.
var fractionalMethods = map[string]struct{}{
	"bm25":      {},
	"tfidf":     {},
	"embedding": {},
}

// NormalizeScore maps a method's raw similarity onto the shared 0-100 scale.
func NormalizeScore(method string, score float64) float64 {
	if _, ok := fractionalMethods[method]; ok {
		return score * 100
	}
	return score
}

// Analyser aggregates result sets against a corpus and clause set.
type Analyser struct {
	opts   Options
	logger *zap.Logger
}

// Option configures an Analyser.
type Option func(*Analyser)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyser) {
		a.logger = logger
	}
}

// New creates an Analyser with the given options.
func New(opts Options, options ...Option) *Analyser {
	a := &Analyser{opts: opts, logger: zap.NewNop()}
	for _, o := range options {
		o(a)
	}
	return a
}

// docAccum is the per-document fold state.
type docAccum struct {
	id        int
	frequency int
	firstSeen int // qualifying-occurrence counter at first hit, for tie order
	// clause ID -> method -> best normalized score
	clauseScores map[string]map[string]float64
}

// Analyse folds a result set into the ranked report. Every qualifying
// occurrence (normalized score at or above the threshold) increments the
// owning document's frequency; per (document, clause, method) only the best
// score survives. Result IDs absent from the corpus still count, they are
// reported with empty text and source.
func (a *Analyser) Analyse(corpus *models.Corpus, clauses models.ClauseSet, results models.ResultSet) *models.AnalysisReport {
	byID := corpus.ByID()
	accums := make(map[int]*docAccum)
	occurrence := 0

	for _, clauseID := range sortedKeys(results) {
		methods := results[clauseID]
		for _, method := range sortedMethodKeys(methods) {
			for _, res := range methods[method] {
				score := NormalizeScore(method, res.Similarity)
				if score < a.opts.MinThreshold {
					continue
				}
				acc, ok := accums[res.ID]
				if !ok {
					acc = &docAccum{
						id:           res.ID,
						firstSeen:    occurrence,
						clauseScores: make(map[string]map[string]float64),
					}
					accums[res.ID] = acc
				}
				occurrence++
				acc.frequency++
				scores, ok := acc.clauseScores[clauseID]
				if !ok {
					scores = make(map[string]float64)
					acc.clauseScores[clauseID] = scores
				}
				if score > scores[method] {
					scores[method] = score
				}
			}
		}
	}

	ranked := make([]*docAccum, 0, len(accums))
	for _, acc := range accums {
		if acc.frequency < a.opts.MinFrequency {
			continue
		}
		ranked = append(ranked, acc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].frequency != ranked[j].frequency {
			return ranked[i].frequency > ranked[j].frequency
		}
		return ranked[i].firstSeen < ranked[j].firstSeen
	})
	if a.opts.TopNDocs > 0 && len(ranked) > a.opts.TopNDocs {
		ranked = ranked[:a.opts.TopNDocs]
	}

	report := &models.AnalysisReport{Docs: make([]models.DocReport, 0, len(ranked))}
	for _, acc := range ranked {
		doc := models.DocReport{
			DocumentID: acc.id,
			Frequency:  acc.frequency,
			Clauses:    a.clauseReports(acc, clauses),
		}
		if p, ok := byID[acc.id]; ok {
			doc.DocumentText = p.Text
			doc.DocumentSource = p.Source
		} else {
			a.logger.Warn("result references a paragraph missing from the corpus",
				zap.Int("id", acc.id))
		}
		report.Docs = append(report.Docs, doc)
	}
	return report
}

// clauseReports orders a document's clauses by their best method score and
// truncates each clause's method list.
func (a *Analyser) clauseReports(acc *docAccum, clauses models.ClauseSet) []models.ClauseReport {
	out := make([]models.ClauseReport, 0, len(acc.clauseScores))
	for clauseID, scores := range acc.clauseScores {
		methods := make([]models.MethodScore, 0, len(scores))
		for method, score := range scores {
			methods = append(methods, models.MethodScore{Method: method, Score: score})
		}
		sort.Slice(methods, func(i, j int) bool {
			if methods[i].Score != methods[j].Score {
				return methods[i].Score > methods[j].Score
			}
			return methods[i].Method < methods[j].Method
		})
		if a.opts.TopMMethods > 0 && len(methods) > a.opts.TopMMethods {
			methods = methods[:a.opts.TopMMethods]
		}
		out = append(out, models.ClauseReport{
			ClauseID:   clauseID,
			ClauseText: clauses[clauseID],
			Methods:    methods,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := bestScore(out[i]), bestScore(out[j])
		if bi != bj {
			return bi > bj
		}
		return out[i].ClauseID < out[j].ClauseID
	})
	return out
}

func bestScore(cl models.ClauseReport) float64 {
	if len(cl.Methods) == 0 {
		return 0
	}
	return cl.Methods[0].Score
}

func sortedKeys(m models.ResultSet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMethodKeys(m map[string]models.MethodResults) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
