// Package narrative builds the incident report generation request and turns
// the provider's answer into report text plus run metadata.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/forensiq/forensiq/internal/llm"
	"github.com/forensiq/forensiq/internal/normalize"
)

// Metadata describes one narrative generation run. Persisted as the audit
// entry for the run.
type Metadata struct {
	LogType   normalize.LogType `json:"log_type"`
	Timestamp string            `json:"timestamp"`
}

// Generator invokes the generation service with the report contract.
type Generator struct {
	provider llm.Provider
	verbose  bool
}

// New creates a Generator around the given provider.
func New(provider llm.Provider, verbose bool) *Generator {
	return &Generator{provider: provider, verbose: verbose}
}

// Generate produces the free-text incident report for the given normalized
// log text. It never returns an error to the caller: transport and
// response-shape failures become explicit sentinel report texts with empty
// metadata, so the caller always has a value to show.
func (g *Generator) Generate(ctx context.Context, logText string, logType normalize.LogType, ragContext []string) (string, Metadata) {
	if logText == "" {
		return "No logs provided.", Metadata{}
	}

	userPrompt := BuildUserPrompt(logType, ragContext, logText)

	raw, err := g.provider.Complete(ctx, SystemContract, userPrompt)
	if err != nil {
		if g.verbose {
			fmt.Fprintf(os.Stderr, "[narrative] generation failed: %v\n", err)
		}
		var se *llm.StatusError
		if errors.As(err, &se) {
			return fmt.Sprintf("Error: %d - %s", se.Code, se.Body), Metadata{}
		}
		if errors.Is(err, llm.ErrMalformedResponse) {
			return "The model returned an invalid response.", Metadata{}
		}
		return fmt.Sprintf("Error: %v", err), Metadata{}
	}

	return raw, Metadata{
		LogType:   logType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
