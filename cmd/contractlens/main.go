package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/config"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/ingest"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/linker"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/metrics"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/registry"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/resolve"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/store"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/validate"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/watch"
)

var version = "0.1.0"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "contractlens",
		Short: "Clause identity and override resolution for construction contracts",
		Long: `Contractlens canonicalizes clause numbers across a contract's document
stack (agreement, conditions, addendums, bills of quantities, schedules),
links cross-references, and resolves which document's text governs each
clause when addendums and particular conditions override the general
conditions.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "contractlens.toml", "config file")

	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(sortCmd())
	rootCmd.AddCommand(docCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(overrideCmd())
	rootCmd.AddCommand(referenceCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func openStore(cfg *config.Config) (store.ContractStore, error) {
	return store.NewSQLiteContractStore(cfg.StorePath)
}

// loadRegistry rebuilds the mutable registry of one contract, starting empty
// when the contract has never been saved.
func loadRegistry(ctx context.Context, st store.ContractStore, cfg *config.Config, contractID string) (*registry.Registry, error) {
	snap, err := st.LoadSnapshot(ctx, contractID)
	if errors.Is(err, store.ErrNotFound) {
		return registry.New(contractID, registry.WithMinConfidence(cfg.MinOCRConfidence)), nil
	}
	if err != nil {
		return nil, err
	}
	return registry.FromSnapshot(snap, registry.WithMinConfidence(cfg.MinOCRConfidence)), nil
}

func saveRegistry(ctx context.Context, st store.ContractStore, reg *registry.Registry) error {
	return st.SaveSnapshot(ctx, reg.Snapshot())
}

// newCollector builds the collector the config asks for.
func newCollector(cfg *config.Config) metrics.Collector {
	if cfg.MetricsEnabled {
		return metrics.NewPrometheusCollector()
	}
	return metrics.NewNoopCollector()
}

// resolutionOutcome maps a resolution result onto its metric outcome label.
func resolutionOutcome(err error) string {
	if err == nil {
		return "resolved"
	}
	if issue, ok := validate.AsIssue(err); ok && issue.Code == validate.CodeMissingPCOverride {
		return "ambiguous"
	}
	return "unresolved"
}

func normalizeCmd() *cobra.Command {
	var showVariants bool

	cmd := &cobra.Command{
		Use:   "normalize [clause-number...]",
		Short: "Canonicalize raw clause numbers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range args {
				canonical := clause.Normalize(raw)
				fmt.Printf("%-20q -> %s\n", raw, canonical)
				if showVariants {
					for _, v := range clause.Variants(raw).List() {
						fmt.Printf("  variant: %s\n", v)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showVariants, "variants", false, "also print fuzzy-match variants")
	return cmd
}

func sortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sort [clause-number...]",
		Short: "Sort clause numbers in natural order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]clause.ID, len(args))
			for i, raw := range args {
				ids[i] = clause.Normalize(raw)
			}
			clause.Sort(ids)
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func docCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage contract documents",
	}
	cmd.AddCommand(docAddCmd())
	cmd.AddCommand(docListCmd())
	return cmd
}

func docAddCmd() *cobra.Command {
	var contractID, docID, title, group string
	var sequence int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a document in a contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			reg, err := loadRegistry(ctx, st, cfg, contractID)
			if err != nil {
				return err
			}
			if err := reg.AddDocument(registry.Document{
				ID:       docID,
				Title:    title,
				Group:    registry.Group(group),
				Sequence: sequence,
			}); err != nil {
				return err
			}
			if err := saveRegistry(ctx, st, reg); err != nil {
				return err
			}
			fmt.Printf("Registered document %s (%s, seq %d) in contract %s\n", docID, group, sequence, contractID)
			return nil
		},
	}
	cmd.Flags().StringVar(&contractID, "contract", "", "contract ID (required)")
	cmd.Flags().StringVar(&docID, "id", "", "document ID (generated when empty)")
	cmd.Flags().StringVar(&title, "title", "", "document title")
	cmd.Flags().StringVar(&group, "group", "", "document group: A, B, C, D, I or N (required)")
	cmd.Flags().IntVar(&sequence, "sequence", 1, "sequence number within the group")
	cmd.MarkFlagRequired("contract")
	cmd.MarkFlagRequired("group")
	return cmd
}

func docListCmd() *cobra.Command {
	var contractID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the documents of a contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := st.LoadSnapshot(cmd.Context(), contractID)
			if err != nil {
				return err
			}
			for _, doc := range snap.Documents {
				fmt.Printf("%-12s group %s seq %-3d %s\n", doc.ID, doc.Group, doc.Sequence, doc.Title)
			}
			fmt.Printf("%d documents, %d chunks\n", len(snap.Documents), len(snap.Chunks))
			return nil
		},
	}
	cmd.Flags().StringVar(&contractID, "contract", "", "contract ID (required)")
	cmd.MarkFlagRequired("contract")
	return cmd
}

func ingestCmd() *cobra.Command {
	var contractID, documentID string

	cmd := &cobra.Command{
		Use:   "ingest [export.json]",
		Short: "Ingest an OCR export into a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			reg, err := loadRegistry(ctx, st, cfg, contractID)
			if err != nil {
				return err
			}

			payload, err := ingest.LoadPayload(args[0])
			if err != nil {
				return fmt.Errorf("failed to load OCR export: %w", err)
			}

			summary, result := ingest.NewIngester().Ingest(reg, documentID, payload)
			if err := saveRegistry(ctx, st, reg); err != nil {
				return err
			}

			fmt.Printf("Ingested %s: %d lines scanned, %d chunks created\n",
				args[0], summary.LinesScanned, summary.ChunksCreated)
			if len(result.Errors) > 0 || len(result.Warnings) > 0 {
				fmt.Println()
				fmt.Print(result.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&contractID, "contract", "", "contract ID (required)")
	cmd.Flags().StringVar(&documentID, "document", "", "target document ID (required)")
	cmd.MarkFlagRequired("contract")
	cmd.MarkFlagRequired("document")
	return cmd
}

func overrideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage document override edges",
	}
	cmd.AddCommand(overrideAddCmd())
	cmd.AddCommand(overrideRetractCmd())
	return cmd
}

func overrideFlags(cmd *cobra.Command, contractID, overriding, overridden, typ *string) {
	cmd.Flags().StringVar(contractID, "contract", "", "contract ID (required)")
	cmd.Flags().StringVar(overriding, "overriding", "", "overriding document ID (required)")
	cmd.Flags().StringVar(overridden, "overridden", "", "overridden document ID (required)")
	cmd.Flags().StringVar(typ, "type", "full", "override type: full, partial or clause_specific")
	cmd.MarkFlagRequired("contract")
	cmd.MarkFlagRequired("overriding")
	cmd.MarkFlagRequired("overridden")
}

func overrideAddCmd() *cobra.Command {
	var contractID, overriding, overridden, typ, scope string
	var clauses []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Declare that one document overrides another",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			reg, err := loadRegistry(ctx, st, cfg, contractID)
			if err != nil {
				return err
			}

			affected := make([]clause.ID, len(clauses))
			for i, c := range clauses {
				affected[i] = clause.Normalize(c)
			}
			if err := reg.AddOverride(registry.DocumentOverride{
				OverridingDocumentID: overriding,
				OverriddenDocumentID: overridden,
				Type:                 registry.OverrideType(typ),
				AffectedClauses:      affected,
				Scope:                scope,
			}); err != nil {
				return err
			}
			if err := saveRegistry(ctx, st, reg); err != nil {
				return err
			}
			fmt.Printf("Override recorded: %s -> %s (%s)\n", overriding, overridden, typ)
			return nil
		},
	}
	overrideFlags(cmd, &contractID, &overriding, &overridden, &typ)
	cmd.Flags().StringSliceVar(&clauses, "clauses", nil, "affected clauses for clause_specific overrides")
	cmd.Flags().StringVar(&scope, "scope", "", "clause prefix for partial overrides, e.g. 14")
	return cmd
}

func overrideRetractCmd() *cobra.Command {
	var contractID, overriding, overridden, typ string

	cmd := &cobra.Command{
		Use:   "retract",
		Short: "Retract an override edge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			reg, err := loadRegistry(ctx, st, cfg, contractID)
			if err != nil {
				return err
			}

			affected, ok := reg.RetractOverride(overriding, overridden, registry.OverrideType(typ))
			if !ok {
				return fmt.Errorf("no %s override %s -> %s", typ, overriding, overridden)
			}
			if err := saveRegistry(ctx, st, reg); err != nil {
				return err
			}
			fmt.Printf("Override retracted; %d clauses affected:\n", len(affected))
			for _, id := range affected {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}
	overrideFlags(cmd, &contractID, &overriding, &overridden, &typ)
	return cmd
}

func referenceCmd() *cobra.Command {
	var contractID, source, target, typ string

	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Declare a clause-to-clause reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			reg, err := loadRegistry(ctx, st, cfg, contractID)
			if err != nil {
				return err
			}
			if err := reg.AddReference(registry.ClauseReference{
				SourceClause: clause.Normalize(source),
				TargetClause: clause.Normalize(target),
				Type:         registry.ReferenceType(typ),
			}); err != nil {
				return err
			}
			if err := saveRegistry(ctx, st, reg); err != nil {
				return err
			}
			fmt.Printf("Reference recorded: %s -> %s (%s)\n", source, target, typ)
			return nil
		},
	}
	cmd.Flags().StringVar(&contractID, "contract", "", "contract ID (required)")
	cmd.Flags().StringVar(&source, "source", "", "source clause number (required)")
	cmd.Flags().StringVar(&target, "target", "", "target clause number (required)")
	cmd.Flags().StringVar(&typ, "type", "cross_reference",
		"reference type: mentions, overrides, supplements, cross_reference, defines or amends")
	cmd.MarkFlagRequired("contract")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("target")
	return cmd
}

func resolveCmd() *cobra.Command {
	var contractID string

	cmd := &cobra.Command{
		Use:   "resolve [clause-number]",
		Short: "Resolve the governing text of a clause",
		Long: `Resolve which document's chunk governs a clause number. Without an
argument, resolves every clause of the contract and prints the full report.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			snap, err := st.LoadSnapshot(ctx, contractID)
			if err != nil {
				return err
			}
			collector := newCollector(cfg)

			if len(args) == 0 {
				start := time.Now()
				report := resolve.Report(snap)
				elapsed := time.Since(start).Milliseconds()
				for range report.Resolved {
					collector.RecordResolution(ctx, "resolved", elapsed)
				}
				for _, issue := range report.Failures {
					collector.RecordResolution(ctx, resolutionOutcome(issue), elapsed)
				}
				fmt.Print(report.String())
				return nil
			}

			start := time.Now()
			effective, err := resolve.Resolve(clause.Normalize(args[0]), snap)
			collector.RecordResolution(ctx, resolutionOutcome(err), time.Since(start).Milliseconds())
			if err != nil {
				return err
			}
			fmt.Printf("Clause %s is governed by document %s (chunk %s)\n",
				effective.CanonicalID, effective.DocumentID, effective.WinningChunkID)
			for _, s := range effective.OverriddenBy {
				fmt.Printf("  supersedes chunk %s in %s (%s)\n", s.ChunkID, s.DocumentID, s.Tier)
			}
			for _, w := range effective.Warnings {
				fmt.Printf("  warning [%s]: %s\n", w.Code, w.Message)
			}
			fmt.Printf("\n%s\n", effective.Content)
			return nil
		},
	}
	cmd.Flags().StringVar(&contractID, "contract", "", "contract ID (required)")
	cmd.MarkFlagRequired("contract")
	return cmd
}

func linkCmd() *cobra.Command {
	var contractID string
	var highlight bool

	cmd := &cobra.Command{
		Use:   "link [file]",
		Short: "Rewrite clause mentions in text into reference links",
		Long: `Rewrite keyword-prefixed clause mentions ("Clause 14.1", "Sub-clause
6 A.2 (b)") into anchor links against the contract's ingested clauses.
Reads from stdin when no file is given. With --highlight, also wraps the
configured search keywords.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := st.LoadSnapshot(cmd.Context(), contractID)
			if err != nil {
				return err
			}

			var text []byte
			if len(args) == 1 {
				text, err = os.ReadFile(args[0])
			} else {
				text, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return err
			}

			l := linker.NewLinker()
			out, count := l.Link(string(text), snap.KnownIDSet())
			newCollector(cfg).RecordLinks(cmd.Context(), count)
			if highlight {
				out = l.Highlight(out, cfg.HighlightKeywords)
			}
			fmt.Print(out)
			fmt.Fprintf(os.Stderr, "%d references linked\n", count)
			return nil
		},
	}
	cmd.Flags().StringVar(&contractID, "contract", "", "contract ID (required)")
	cmd.Flags().BoolVar(&highlight, "highlight", false, "also highlight configured keywords")
	cmd.MarkFlagRequired("contract")
	return cmd
}

func validateCmd() *cobra.Command {
	var contractID string
	var markdown bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run contract-wide consistency checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := st.LoadSnapshot(cmd.Context(), contractID)
			if err != nil {
				return err
			}

			result := snap.Validate()
			if markdown {
				fmt.Print(result.RenderMarkdown())
			} else {
				fmt.Print(result.String())
			}
			if !result.IsValid {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&contractID, "contract", "", "contract ID (required)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render the report as Markdown")
	cmd.MarkFlagRequired("contract")
	return cmd
}

func watchCmd() *cobra.Command {
	var contractID, dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory for OCR exports and ingest them",
		Long: `Watch a drop directory for OCR JSON exports. Each export is ingested
into the document named by its file stem: dropping GC.json ingests into
document "GC" of the contract.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.WatchDir
			}
			if dir == "" {
				return fmt.Errorf("no watch directory: set --dir or watch_dir in %s", configPath)
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			collector := newCollector(cfg)
			if prom, ok := collector.(*metrics.PrometheusCollector); ok {
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", promhttp.HandlerFor(prom.Registry(), promhttp.HandlerOpts{}))
					if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
						fmt.Fprintf(os.Stderr, "metrics endpoint failed: %v\n", err)
					}
				}()
			}

			ing := ingest.NewIngester()
			handler := func(ctx context.Context, path string) error {
				reg, err := loadRegistry(ctx, st, cfg, contractID)
				if err != nil {
					return err
				}
				payload, err := ingest.LoadPayload(path)
				if err != nil {
					return err
				}

				documentID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				start := time.Now()
				summary, result := ing.Ingest(reg, documentID, payload)
				collector.RecordIngest(ctx, documentID, summary.ChunksCreated,
					len(result.Errors)+len(result.Warnings))

				if err := saveRegistry(ctx, st, reg); err != nil {
					return err
				}
				snap := reg.Snapshot()
				collector.SetClauseCount(ctx, contractID, int64(len(snap.CanonicalIDs())))

				fmt.Printf("[%s] %s: %d chunks, %d errors, %d warnings\n",
					time.Since(start).Round(time.Millisecond), filepath.Base(path),
					summary.ChunksCreated, len(result.Errors), len(result.Warnings))
				return nil
			}

			w, err := watch.New(watch.Config{Dir: dir}, handler, nil)
			if err != nil {
				return err
			}
			fmt.Printf("Watching %s for OCR exports (contract %s)...\n", dir, contractID)
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&contractID, "contract", "", "contract ID (required)")
	cmd.Flags().StringVar(&dir, "dir", "", "directory to watch (defaults to watch_dir from config)")
	cmd.MarkFlagRequired("contract")
	return cmd
}
