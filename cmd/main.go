package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	cfgPkg "github.com/xhad/studio/pkg/config"
	"github.com/xhad/studio/pkg/fetch"
	"github.com/xhad/studio/pkg/llm"
	"github.com/xhad/studio/pkg/logger"
	"github.com/xhad/studio/pkg/processor"
	"github.com/xhad/studio/pkg/store"
	"github.com/xhad/studio/pkg/studio"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	config  *cfgPkg.Config
	state   *store.StateStore
	docs    *processor.Processor
	studio  *studio.Studio
	fetcher *fetch.Fetcher
}

var (
	configPath string
	logLevel   string
	current    app
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "studio",
		Short:         "Generative creative suite for product imagery, video and documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if current.state != nil {
				return current.state.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newServeCmd(),
		newSceneCmd(),
		newAngleCmd(),
		newUpscaleCmd(),
		newEditCmd(),
		newStyleCmd(),
		newVectorizeCmd(),
		newAuditCmd(),
		newVideoCmd(),
		newPDFCmd(),
		newHistoryCmd(),
	)
	return root
}

// setup loads configuration, installs the logger and wires the studio.
func setup(ctx context.Context) error {
	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return errors.Join(validationErrors(errs)...)
	}

	if _, err := logger.Setup(logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		return err
	}

	backend, err := store.Open(ctx, store.StoreConfig{
		Driver: cfg.Store.Driver,
		Path:   cfg.Store.Path,
		URL:    cfg.Store.URL,
		Key:    cfg.Store.Key,
	})
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	state := store.NewStateStore(backend, cfg.Store.Key)
	if err := state.Load(ctx); err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	model, err := llm.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.FastModel)
	if err != nil {
		return fmt.Errorf("failed to initialize model: %w", err)
	}

	docs := processor.NewWithConfig(processor.ProcessorConfig{})
	current = app{
		config: cfg,
		state:  state,
		docs:   &docs,
		studio: studio.NewWithConfig(studio.StudioConfig{
			Models: studio.Models{
				Fast:     cfg.LLM.FastModel,
				Image:    cfg.LLM.ImageModel,
				Pro:      cfg.LLM.ProModel,
				ProImage: cfg.LLM.ProImageModel,
				Video:    cfg.LLM.VideoModel,
			},
			APIKey:          cfg.LLM.APIKey,
			RequestTimeout:  cfg.LLM.RequestTimeout,
			PollInterval:    cfg.LLM.PollInterval,
			MaxPollAttempts: cfg.LLM.MaxPollAttempts,
		}, model, state, &docs),
		fetcher: fetch.NewWithConfig(fetch.FetcherConfig{
			Timeout:   cfg.Fetch.Timeout,
			RateLimit: cfg.Fetch.RateLimit,
		}),
	}
	return nil
}

func validationErrors(errs []cfgPkg.ValidationError) []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("polls"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// withSpinner runs fn behind a spinner and clears it afterwards.
func withSpinner[T any](description string, fn func() (T, error)) (T, error) {
	spinner := getSpinner(description)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				spinner.Add(1)
			}
		}
	}()

	v, err := fn()
	close(done)
	<-stopped
	spinner.Finish()
	fmt.Print("\r")
	return v, err
}
