package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/hupe1980/contextmesh"
	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/internal/config"
	"github.com/hupe1980/contextmesh/internal/telemetry"
	"github.com/hupe1980/contextmesh/logging"
	"github.com/hupe1980/contextmesh/memory"
	"github.com/hupe1980/contextmesh/model"
	anthropicmodel "github.com/hupe1980/contextmesh/model/anthropic"
	openaimodel "github.com/hupe1980/contextmesh/model/openai"
	"github.com/hupe1980/contextmesh/relevance"
	"github.com/hupe1980/contextmesh/router"
	"github.com/hupe1980/contextmesh/session"
)

// ModelFactory creates the generation backend (allows mocking in tests).
type ModelFactory func(cfg *config.Config) (model.Model, error)

// DefaultModelFactory builds the backend named by cfg.Provider.Type.
func DefaultModelFactory(cfg *config.Config) (model.Model, error) {
	p := cfg.Provider
	switch p.Type {
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.APIKey = p.APIKey
			o.MaxTokens = p.MaxTokens
			o.Temperature = p.Temperature
			if p.Model != "" {
				o.Model = anthropic.Model(p.Model)
			}
		}), nil
	case "openai":
		var opts []option.RequestOption
		if p.APIKey != "" {
			opts = append(opts, option.WithAPIKey(p.APIKey))
		}
		client := openai.NewClient(opts...)
		return openaimodel.NewModelFromClient(&client, func(o *openaimodel.Options) {
			o.MaxCompletionTokens = p.MaxTokens
			o.Temperature = p.Temperature
			if p.Model != "" {
				o.Model = p.Model
			}
		}), nil
	case "mock":
		name := p.Model
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, "mock"), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", p.Type)
	}
}

// CLIOptions carries injectable dependencies.
type CLIOptions struct {
	ModelFactory ModelFactory
	Stdout       io.Writer
	Stderr       io.Writer
}

type globalFlags struct {
	config  string
	session string
	store   string
}

// app is the per-invocation state shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *logging.ContextLogger
	mesh     *contextmesh.ContextMesh
	store    core.StateStore
	profiles router.Profiles
	shutdown func(context.Context) error
}

// runFunc is a subcommand body that receives the loaded app.
type runFunc func(cmd *cobra.Command, a *app, args []string) error

// appRunner loads the app for a command and releases it afterwards.
type appRunner func(fn runFunc) func(cmd *cobra.Command, args []string) error

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(CLIOptions{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(opts CLIOptions) *cobra.Command {
	if opts.ModelFactory == nil {
		opts.ModelFactory = DefaultModelFactory
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "contextmesh",
		Short:         "contextmesh - story context for multi-stage generation pipelines",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetOut(opts.Stdout)
	rootCmd.SetErr(opts.Stderr)
	rootCmd.PersistentFlags().StringVar(&flags.config, "config", "", "config file (default ~/.contextmesh/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.session, "session", "", "session file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.store, "store", "", "story-state file (overrides config)")

	run := func(fn runFunc) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags, opts.Stderr)
			if err != nil {
				return err
			}
			defer a.close()
			return fn(cmd, a, args)
		}
	}

	rootCmd.AddCommand(
		newProcessCmd(run),
		newQueryCmd(run),
		newRouteCmd(run),
		newGenerateCmd(run, opts.ModelFactory),
		newWatchCmd(run),
		newProfilesCmd(run),
	)
	return rootCmd
}

func newApp(ctx context.Context, flags globalFlags, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.session != "" {
		cfg.Session = flags.session
	}
	if flags.store != "" {
		cfg.Store = flags.store
	}
	if cfg.Session == "" {
		return nil, fmt.Errorf("session file not set. Use --session or set %sSESSION", config.EnvPrefix)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Output:    stderr,
		Component: "cli",
	})

	shutdown, err := telemetry.Setup(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, shutdown: shutdown}
	if err := a.loadStore(); err != nil {
		a.close()
		return nil, err
	}

	a.profiles = router.DefaultProfiles()
	if cfg.Profiles != "" {
		if a.profiles, err = router.LoadProfiles(cfg.Profiles); err != nil {
			a.close()
			return nil, fmt.Errorf("load profiles: %w", err)
		}
	}

	a.mesh = contextmesh.New(session.FileProvider{Path: cfg.Session, Logger: logger.WithComponent("session")}, func(o *contextmesh.Options) {
		o.Logger = logger
		o.Chat = cfg.ChatOptions()
		o.Lore = cfg.LoreOptions()
		o.Weights = cfg.Weights()
		o.MaxPromptLength = cfg.Router.MaxLength
	})
	return a, nil
}

// close flushes pending spans.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("tracing.shutdown_failed", "error", err)
	}
}

// loadStore (re)reads the story-state file. On failure the previously
// loaded store stays in place.
func (a *app) loadStore() error {
	if a.cfg.Store == "" {
		a.store = nil
		return nil
	}
	st, err := memory.LoadFile(a.cfg.Store)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	a.store = st
	return nil
}

func (a *app) process(ctx context.Context) error {
	_, err := a.mesh.Process(ctx, a.store)
	return err
}

func (a *app) profile(consumer string) (router.ConsumerProfile, error) {
	p, ok := a.profiles[consumer]
	if !ok {
		return router.ConsumerProfile{}, fmt.Errorf("unknown consumer %q (available: %s)", consumer, strings.Join(a.profiles.IDs(), ", "))
	}
	return p, nil
}

func newProcessCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run one processing pass and print its summary",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.process(cmd.Context()); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.mesh.Summary())
		}),
	}
}

func newQueryCmd(run appRunner) *cobra.Command {
	var (
		maxResults int
		minScore   float64
		sources    []string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Rank lore, chat, character and store excerpts against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.process(cmd.Context()); err != nil {
				return err
			}

			res, err := a.mesh.Query(cmd.Context(), strings.Join(args, " "), func(o *relevance.QueryOptions) {
				if cmd.Flags().Changed("max-results") {
					o.MaxResults = maxResults
				} else {
					o.MaxResults = a.cfg.Relevance.MaxResults
				}
				if cmd.Flags().Changed("min-score") {
					o.MinScore = minScore
				} else {
					o.MinScore = a.cfg.Relevance.MinScore
				}
				if len(sources) > 0 {
					o.Sources = o.Sources[:0]
					for _, s := range sources {
						o.Sources = append(o.Sources, relevance.Source(s))
					}
				}
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res)
			}
			if len(res.Items) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for _, it := range res.Items {
				fmt.Fprintf(out, "%5.1f  %-9s  %s\n", it.Score, it.Source, it.Label)
				fmt.Fprintf(out, "       %s\n", oneLine(it.Content, 120))
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&maxResults, "max-results", relevance.DefaultMaxResults, "maximum number of results")
	cmd.Flags().Float64Var(&minScore, "min-score", relevance.DefaultMinScore, "minimum score for inclusion")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "restrict to sources (lore, chat, character, store)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newRouteCmd(run appRunner) *cobra.Command {
	var (
		phase  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "route <consumer>",
		Short: "Print the context bundle assembled for a consumer",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			p, err := a.profile(args[0])
			if err != nil {
				return err
			}
			if err := a.process(cmd.Context()); err != nil {
				return err
			}
			b, err := a.mesh.RouteForConsumer(cmd.Context(), args[0], p, phase, a.store)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), b)
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.Formatted)
			return nil
		}),
	}
	cmd.Flags().StringVar(&phase, "phase", "draft", "pipeline phase")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the bundle as JSON")
	return cmd
}

func newGenerateCmd(run appRunner, factory ModelFactory) *cobra.Command {
	var (
		phase  string
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "generate <consumer> [prompt]",
		Short: "Route context for a consumer and send it to the configured model",
		Args:  cobra.RangeArgs(1, 2),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			p, err := a.profile(args[0])
			if err != nil {
				return err
			}
			if err := a.process(cmd.Context()); err != nil {
				return err
			}
			b, err := a.mesh.RouteForConsumer(cmd.Context(), args[0], p, phase, a.store)
			if err != nil {
				return err
			}

			var prompt string
			if len(args) > 1 {
				prompt = args[1]
			}
			req, err := model.NewRequest(b, p, prompt)
			if err != nil {
				return err
			}
			req.Stream = stream

			m, err := factory(a.cfg)
			if err != nil {
				return err
			}

			start := time.Now()
			resp, err := model.Collect(cmd.Context(), m, req)
			a.logger.LogGenerate(m.Info().Name, time.Since(start), err)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return nil
		}),
	}
	cmd.Flags().StringVar(&phase, "phase", "draft", "pipeline phase")
	cmd.Flags().BoolVar(&stream, "stream", false, "request a streaming completion")
	return cmd
}

func newProfilesCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List consumer profiles and their context needs",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			out := cmd.OutOrStdout()
			for _, id := range a.profiles.IDs() {
				p := a.profiles[id]
				fmt.Fprintf(out, "%s (%s)\n", id, p.Name)
				fmt.Fprintf(out, "  needs: %s\n", strings.Join(p.ContextNeeds, ", "))
			}
			return nil
		}),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
