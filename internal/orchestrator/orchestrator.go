// Package orchestrator coordinates the Normalize → Retrieve → Generate →
// Classify → Parse → Audit pipeline and the feedback-driven rerun.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/forensiq/forensiq/internal/audit"
	"github.com/forensiq/forensiq/internal/classify"
	"github.com/forensiq/forensiq/internal/feedback"
	"github.com/forensiq/forensiq/internal/llm"
	"github.com/forensiq/forensiq/internal/narrative"
	"github.com/forensiq/forensiq/internal/normalize"
	"github.com/forensiq/forensiq/internal/report"
	"github.com/forensiq/forensiq/internal/sigma"
	"github.com/forensiq/forensiq/internal/store"
)

// Options holds CLI flags for the orchestrator.
type Options struct {
	SafeMode bool
	Verbose  bool
	Version  string
}

// ContextRetriever supplies knowledge snippets for a log document.
// retrieval.ContextBuilder satisfies it; tests use fakes.
type ContextRetriever interface {
	BuildContext(ctx context.Context, logText string) []string
}

// Result is everything one analysis run produced.
type Result struct {
	LogID        string                  `json:"log_id"`
	Document     normalize.Document      `json:"-"`
	ReportText   string                  `json:"-"`
	Report       report.Report           `json:"report"`
	Metadata     narrative.Metadata      `json:"metadata"`
	Judgments    []classify.EventJudgment `json:"judgments"`
	Findings     []audit.Finding         `json:"findings"`
	SigmaMatches []sigma.Match           `json:"sigma_matches,omitempty"`
	RAGContext   []string                `json:"rag_context,omitempty"`
	// MatchedFeedback is set on feedback reruns only.
	MatchedFeedback []feedback.Record `json:"matched_feedback,omitempty"`
	// Cached marks a result served from the run cache without new
	// collaborator calls.
	Cached bool `json:"-"`
}

// Orchestrator runs the analysis pipeline. All collaborators are injected;
// a nil retriever or sigma engine disables that stage.
type Orchestrator struct {
	generator  *narrative.Generator
	classifier *classify.Classifier
	retriever  ContextRetriever
	sigmaEng   *sigma.Engine
	st         store.Store
	opts       Options

	mu    sync.Mutex
	cache map[string]*Result
}

// New creates an Orchestrator around the given collaborators.
func New(provider llm.Provider, retriever ContextRetriever, st store.Store, opts Options) *Orchestrator {
	return &Orchestrator{
		generator:  narrative.New(provider, opts.Verbose),
		classifier: classify.New(provider, opts.Verbose),
		retriever:  retriever,
		st:         st,
		opts:       opts,
		cache:      make(map[string]*Result),
	}
}

// SetSigmaEngine enables the deterministic rule pre-scan stage.
func (o *Orchestrator) SetSigmaEngine(e *sigma.Engine) {
	o.sigmaEng = e
}

// Run executes the full pipeline for one log document. Results are cached
// by content: repeating the same input (same safe-mode setting) returns
// the earlier result without new collaborator calls.
func (o *Orchestrator) Run(ctx context.Context, rawText, logID string) (*Result, error) {
	doc := normalize.New(rawText, o.opts.SafeMode)

	key := cacheKey(doc)
	o.mu.Lock()
	if cached, ok := o.cache[key]; ok {
		o.mu.Unlock()
		if o.opts.Verbose {
			fmt.Fprintf(os.Stderr, "[orchestrator] cache hit for %s\n", logID)
		}
		hit := *cached
		hit.Cached = true
		return &hit, nil
	}
	o.mu.Unlock()

	result := o.analyze(ctx, doc, doc.Text, logID, nil, nil)

	o.mu.Lock()
	o.cache[key] = result
	o.mu.Unlock()
	return result, nil
}

// RerunWithFeedback re-analyzes a log with user corrections blended in.
// Stored feedback is loaded from the persistence collaborator and merged
// with any extra records supplied by the caller; corrections similar to the
// log content are prepended as an instruction block and the enhanced text
// drives the narrative request and type re-detection. The per-event
// classifier, rule pre-scan, and auditor still see only the normalized log
// lines: the correction block is an instruction, not evidence. A non-nil
// contextOverride replaces the retrieval stage, so a caller holding a
// precomputed context skips the collaborator round trip. The audit entry is
// keyed "<logId>_enhanced". Rerun results are never cached: feedback is
// expected to change between reruns.
func (o *Orchestrator) RerunWithFeedback(ctx context.Context, rawText, logID string, extra []feedback.Record, contextOverride []string) (*Result, error) {
	doc := normalize.New(rawText, o.opts.SafeMode)

	records := o.loadFeedback()
	records = feedback.Merge(records, extra)

	matched := feedback.Match(doc.Text, records)
	if o.opts.Verbose {
		fmt.Fprintf(os.Stderr, "[orchestrator] %d of %d feedback records matched\n", len(matched), len(records))
	}

	enhanced := feedback.Enhance(doc.Text, matched)
	doc.DetectedType = normalize.ClassifyType(enhanced)

	result := o.analyze(ctx, doc, enhanced, logID+"_enhanced", matched, contextOverride)
	result.LogID = logID
	return result, nil
}

// analyze runs the collaborator stages over an already-normalized document
// and persists the audit entry under auditKey. narrativeText is what the
// generation service sees; it equals doc.Text except on feedback reruns,
// where it carries the correction block. A non-nil contextOverride bypasses
// the retriever.
func (o *Orchestrator) analyze(ctx context.Context, doc normalize.Document, narrativeText, auditKey string, matched []feedback.Record, contextOverride []string) *Result {
	if doc.Text == "" {
		// Nothing to analyze; the generator supplies the sentinel text and
		// no collaborator is called.
		reportText, meta := o.generator.Generate(ctx, "", doc.DetectedType, nil)
		return &Result{
			LogID:      auditKey,
			Document:   doc,
			ReportText: reportText,
			Report:     report.Parse(reportText).WithDefaults(),
			Metadata:   meta,
		}
	}

	lines := doc.Lines()

	var sigmaMatches []sigma.Match
	if o.sigmaEng != nil {
		sigmaMatches = o.sigmaEng.Scan(ctx, doc.DetectedType, lines)
		if len(sigmaMatches) > 0 {
			fmt.Fprintf(os.Stderr, "[*] Sigma: %d rule match(es) detected\n", len(sigmaMatches))
		}
	}

	var ragContext []string
	switch {
	case contextOverride != nil:
		ragContext = contextOverride
		if o.opts.Verbose {
			fmt.Fprintf(os.Stderr, "[orchestrator] using caller-supplied context (%d snippet(s))\n", len(ragContext))
		}
	case o.retriever != nil:
		ragContext = o.retriever.BuildContext(ctx, narrativeText)
		if o.opts.Verbose {
			fmt.Fprintf(os.Stderr, "[orchestrator] retrieved %d context snippet(s)\n", len(ragContext))
		}
	}

	fmt.Fprintf(os.Stderr, "[*] Generating incident report...\n")
	reportText, meta := o.generator.Generate(ctx, narrativeText, doc.DetectedType, ragContext)

	fmt.Fprintf(os.Stderr, "[*] Classifying events...\n")
	judgments := o.classifier.Classify(ctx, lines)
	if len(judgments) == 0 {
		fmt.Fprintf(os.Stderr, "[*] Classification unavailable; skipping per-event judgments\n")
	}

	parsed := report.Parse(reportText).WithDefaults()
	findings := audit.Audit(judgments)
	if len(findings) > 0 {
		fmt.Fprintf(os.Stderr, "[*] Consistency audit: %d finding(s)\n", len(findings))
	}

	o.storeAuditEntry(auditKey, doc.DetectedType, meta)

	return &Result{
		LogID:           auditKey,
		Document:        doc,
		ReportText:      reportText,
		Report:          parsed,
		Metadata:        meta,
		Judgments:       judgments,
		Findings:        findings,
		SigmaMatches:    sigmaMatches,
		RAGContext:      ragContext,
		MatchedFeedback: matched,
	}
}

// RecordFeedback appends one user correction to the feedback collection.
func (o *Orchestrator) RecordFeedback(logID, feedbackText, correction string) error {
	if o.st == nil {
		return fmt.Errorf("no store configured")
	}
	rec := feedback.Record{
		LogID:      logID,
		Feedback:   feedbackText,
		Correction: correction,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	return o.st.Append(feedback.FeedbackCollection, rec)
}

// FeedbackCounts tallies stored feedback records per log ID.
func (o *Orchestrator) FeedbackCounts() map[string]int {
	return feedback.Counts(o.loadFeedback())
}

// InvalidateCache drops all cached run results.
func (o *Orchestrator) InvalidateCache() {
	o.mu.Lock()
	o.cache = make(map[string]*Result)
	o.mu.Unlock()
}

func (o *Orchestrator) loadFeedback() []feedback.Record {
	if o.st == nil {
		return nil
	}
	raws, err := o.st.StreamAll(feedback.FeedbackCollection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[orchestrator] warning: load feedback: %v\n", err)
		return nil
	}
	return store.DecodeAll[feedback.Record](raws)
}

func (o *Orchestrator) storeAuditEntry(key string, logType normalize.LogType, meta narrative.Metadata) {
	if o.st == nil {
		return
	}
	ts := meta.Timestamp
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	entry := store.AuditEntry{LogType: string(logType), Timestamp: ts}
	if err := o.st.Set(store.AuditCollection, key, entry); err != nil {
		fmt.Fprintf(os.Stderr, "[orchestrator] warning: audit entry: %v\n", err)
	}
}

// cacheKey derives the run-cache key from the normalized text and the
// safe-mode flag, so toggling redaction never serves a stale result.
func cacheKey(doc normalize.Document) string {
	h := sha256.New()
	h.Write([]byte(doc.Text))
	if doc.SafeMode {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
