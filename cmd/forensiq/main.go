// Package main is the CLI entry point for forensiq.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forensiq/forensiq/internal/config"
	"github.com/forensiq/forensiq/internal/embed"
	"github.com/forensiq/forensiq/internal/knowledge"
	"github.com/forensiq/forensiq/internal/llm"
	"github.com/forensiq/forensiq/internal/orchestrator"
	"github.com/forensiq/forensiq/internal/reporter"
	"github.com/forensiq/forensiq/internal/retrieval"
	"github.com/forensiq/forensiq/internal/sigma"
	"github.com/forensiq/forensiq/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "forensiq",
		Short: "Retrieval-augmented incident analysis for security log files",
		Long: `forensiq ingests raw security/operations log text and produces a
structured incident-analysis report: timeline, root cause, impact,
remediation steps, per-event risk scores, and a consistency audit of the
model's own judgments. User corrections feed back into re-analysis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "config.toml", "path to config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newRerunCmd())
	rootCmd.AddCommand(newFeedbackCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <logfile>",
		Short: "Analyze a log file and write the report artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			logID, _ := cmd.Flags().GetString("id")
			outDir, _ := cmd.Flags().GetString("out")
			noArchive, _ := cmd.Flags().GetBool("no-archive")

			rawText, logID, err := readLogFile(args[0], logID)
			if err != nil {
				return err
			}

			orch, err := buildOrchestrator(cfg, opts)
			if err != nil {
				return err
			}

			result, err := orch.Run(cmd.Context(), rawText, logID)
			if err != nil {
				return err
			}
			return writeArtifacts(cfg, opts, result, outDir, !noArchive)
		},
	}
	cmd.Flags().String("id", "", "log identifier (default: file name without extension)")
	cmd.Flags().Bool("safe-mode", false, "redact IPs, usernames, and file paths before analysis")
	cmd.Flags().String("out", "", "output directory (default: from config)")
	cmd.Flags().Bool("no-archive", false, "skip the zipped run archive")
	return cmd
}

func newRerunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rerun <logfile>",
		Short: "Re-analyze a log with stored feedback applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			logID, _ := cmd.Flags().GetString("id")
			outDir, _ := cmd.Flags().GetString("out")
			noArchive, _ := cmd.Flags().GetBool("no-archive")

			rawText, logID, err := readLogFile(args[0], logID)
			if err != nil {
				return err
			}

			orch, err := buildOrchestrator(cfg, opts)
			if err != nil {
				return err
			}

			result, err := orch.RerunWithFeedback(cmd.Context(), rawText, logID, nil, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "[*] %d feedback record(s) applied\n", len(result.MatchedFeedback))
			return writeArtifacts(cfg, opts, result, outDir, !noArchive)
		},
	}
	cmd.Flags().String("id", "", "log identifier (default: file name without extension)")
	cmd.Flags().Bool("safe-mode", false, "redact IPs, usernames, and file paths before analysis")
	cmd.Flags().String("out", "", "output directory (default: from config)")
	cmd.Flags().Bool("no-archive", false, "skip the zipped run archive")
	return cmd
}

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record and inspect analysis feedback",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record a correction for a log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			logID, _ := cmd.Flags().GetString("id")
			note, _ := cmd.Flags().GetString("note")
			correction, _ := cmd.Flags().GetString("correction")
			if logID == "" || correction == "" {
				return fmt.Errorf("--id and --correction are required")
			}

			orch, err := buildOrchestrator(cfg, opts)
			if err != nil {
				return err
			}
			if err := orch.RecordFeedback(logID, note, correction); err != nil {
				return err
			}
			fmt.Printf("Feedback recorded for %s\n", logID)
			return nil
		},
	}
	addCmd.Flags().String("id", "", "log identifier the feedback applies to")
	addCmd.Flags().String("note", "", "free-form feedback note")
	addCmd.Flags().String("correction", "", "corrected log line or expert suggestion")

	countsCmd := &cobra.Command{
		Use:   "counts",
		Short: "Show stored feedback counts per log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			orch, err := buildOrchestrator(cfg, opts)
			if err != nil {
				return err
			}
			counts := orch.FeedbackCounts()
			if len(counts) == 0 {
				fmt.Println("No feedback recorded.")
				return nil
			}
			for id, n := range counts {
				fmt.Printf("%s: %d\n", id, n)
			}
			return nil
		},
	}

	cmd.AddCommand(addCmd, countsCmd)
	return cmd
}

// loadSetup reads the shared flags and loads the configuration.
func loadSetup(cmd *cobra.Command) (*config.Config, orchestrator.Options, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	safeMode, _ := cmd.Flags().GetBool("safe-mode")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, orchestrator.Options{}, fmt.Errorf("config: %w", err)
	}

	opts := orchestrator.Options{
		SafeMode: safeMode || cfg.Analysis.SafeMode,
		Verbose:  verbose,
		Version:  fmt.Sprintf("%s (%s)", version, commit),
	}
	return cfg, opts, nil
}

// readLogFile loads the log text and derives a log ID from the file name
// when none was given.
func readLogFile(path, logID string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read log file: %w", err)
	}
	if logID == "" {
		base := filepath.Base(path)
		logID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return string(data), logID, nil
}

// buildOrchestrator wires the collaborators from configuration.
func buildOrchestrator(cfg *config.Config, opts orchestrator.Options) (*orchestrator.Orchestrator, error) {
	provider, err := llm.NewProvider(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Endpoint, llm.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		TimeoutSec:  cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	st, err := store.NewJSONStore(cfg.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	orch := orchestrator.New(provider, buildRetriever(cfg, opts), st, opts)

	if eng, err := sigma.NewDefault(); err != nil {
		fmt.Fprintf(os.Stderr, "[forensiq] warning: sigma engine init: %v\n", err)
	} else {
		orch.SetSigmaEngine(eng)
	}
	return orch, nil
}

// buildRetriever assembles the retrieval collaborator. Failures degrade to
// no retrieval: the pipeline runs without context rather than aborting.
func buildRetriever(cfg *config.Config, opts orchestrator.Options) orchestrator.ContextRetriever {
	if cfg.Knowledge.Path == "" {
		if opts.Verbose {
			fmt.Fprintf(os.Stderr, "[forensiq] no knowledge base configured; retrieval disabled\n")
		}
		return nil
	}

	docs, err := knowledge.LoadAttackDocs(cfg.Knowledge.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[forensiq] warning: knowledge base: %v\n", err)
		return nil
	}

	var embedder embed.Embedder
	if cfg.Knowledge.ModelPath != "" {
		embedder, err = embed.NewONNXEmbedder(cfg.Knowledge.ModelPath, cfg.Knowledge.VocabPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[forensiq] warning: onnx embedder: %v, falling back to hashing embedder\n", err)
			embedder = embed.NewHashingEmbedder(0)
		}
	} else {
		embedder = embed.NewHashingEmbedder(0)
	}

	qdrant := retrieval.NewQdrantClient(cfg.Vector.URL, cfg.Vector.APIKey, cfg.Vector.Timeout)
	return retrieval.NewContextBuilder(embedder, qdrant, cfg.Vector.Collection, cfg.Vector.TopK, docs, opts.Verbose)
}

// writeArtifacts renders the run's report artifacts and the optional
// zipped archive.
func writeArtifacts(cfg *config.Config, opts orchestrator.Options, result *orchestrator.Result, outOverride string, archive bool) error {
	outBase := cfg.Output.Dir
	if outOverride != "" {
		outBase = outOverride
	}
	outputDir := reporter.GenerateOutputDir(outBase)

	rep, err := reporter.New()
	if err != nil {
		return fmt.Errorf("create reporter: %w", err)
	}

	data := reporter.ReportData{
		LogID:           result.LogID,
		LogType:         string(result.Document.DetectedType),
		GeneratedAt:     time.Now().UTC(),
		Version:         opts.Version,
		Report:          result.Report,
		Judgments:       result.Judgments,
		Findings:        result.Findings,
		SigmaMatches:    result.SigmaMatches,
		RAGContext:      result.RAGContext,
		MatchedFeedback: result.MatchedFeedback,
	}

	reportPath, err := rep.Generate(data, outputDir)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "[*] Report written: %s\n", reportPath)

	if archive {
		zipPath, err := reporter.ExportArchive(outputDir, result.LogID, opts.Version)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[forensiq] warning: archive: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "[*] Run archive: %s\n", zipPath)
		}
	}

	fmt.Printf("\n=== forensiq ===\n")
	fmt.Printf("Log: %s (%s)\n", result.LogID, result.Document.DetectedType)
	fmt.Printf("Judgments: %d | Audit findings: %d | Sigma matches: %d\n",
		len(result.Judgments), len(result.Findings), len(result.SigmaMatches))
	fmt.Printf("Report: %s\n", reportPath)
	return nil
}
