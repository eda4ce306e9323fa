package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/handspeak/gesture-server/internal/config"
	"github.com/handspeak/gesture-server/internal/gesture"
	"github.com/handspeak/gesture-server/internal/handlers"
	"github.com/handspeak/gesture-server/internal/httpserver"
	"github.com/handspeak/gesture-server/internal/logging"
	"github.com/handspeak/gesture-server/internal/recording"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "gesture-server",
	Short:        "Classify watch gestures and polish captions",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to config.toml")
	rootCmd.AddCommand(
		serveCmd(),
		classifyCmd(),
		enhanceCmd(),
		checkCmd(),
	)
}

// loadConfig is the one-shot path used by every command except serve.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, _, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bootLogger, _, err := bootstrapLogger()
			if err != nil {
				return err
			}
			manager, err := config.NewManager(configPath, bootLogger)
			if err != nil {
				return err
			}
			cfg := manager.GetConfig()
			logger, level, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			svc, closeModel, err := openClassifier(cfg, logger)
			if err != nil {
				logger.Error("startup failed", zap.String("kind", gesture.KindOf(err)), zap.Error(err))
				return err
			}
			defer closeModel()

			enhancer, err := newEnhancer(ctx, cfg.Enhancer, logger)
			if err != nil {
				logger.Warn("text enhancement disabled", zap.Error(err))
			}

			h := handlers.NewHandler(svc, enhancer, cfg.Server.MaxBodyBytes, logger)
			defer func() {
				if e := h.SetEnhancer(nil); e != nil {
					_ = e.Close()
				}
			}()

			manager.Subscribe(func(next *config.Config) {
				if err := logging.SetLevel(level, next.Log.Level); err != nil {
					logger.Warn("log level not applied", zap.Error(err))
				}
				e, err := newEnhancer(ctx, next.Enhancer, logger)
				if err != nil {
					logger.Warn("enhancer not rebuilt, keeping previous", zap.Error(err))
					return
				}
				replaceEnhancer(h, e, logger)
				logger.Info("enhancer reloaded", zap.Bool("enabled", e != nil))
			})
			if _, err := os.Stat(configPath); err == nil {
				if err := manager.StartWatching(ctx); err != nil {
					logger.Warn("config hot reload unavailable", zap.Error(err))
				}
				defer manager.Stop()
			}

			schema := svc.Schema()
			logger.Info("serving",
				zap.Int("sequence_length", schema.SequenceLength()),
				zap.Int("features_per_frame", schema.FeaturesPerFrame()),
				zap.Strings("labels", svc.Labels().Names()),
				zap.Bool("enhancer", enhancer != nil))

			router := httpserver.NewRouter(h, cfg.Server.AllowedOrigins, logger)
			return httpserver.Run(ctx, httpserver.Options{
				Addr:            cfg.Server.Addr,
				AllowedOrigins:  cfg.Server.AllowedOrigins,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, router, logger)
		},
	}
}

// bootstrapLogger covers config loading, before the configured logger exists.
func bootstrapLogger() (*zap.Logger, zap.AtomicLevel, error) {
	return logging.New(logging.Config{Level: "info", Format: "json"})
}

func classifyCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one recording (.csv) or request body (.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			svc, closeModel, err := openClassifier(cfg, logger)
			if err != nil {
				return err
			}
			defer closeModel()

			raw, err := recording.LoadFile(input, svc.Schema())
			if err != nil {
				return err
			}

			pred, err := svc.Classify(raw)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", gesture.KindOf(err), err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.4f\n", pred.Label, pred.Confidence)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "recording or request file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func enhanceCmd() *cobra.Command {
	var text, tone string

	cmd := &cobra.Command{
		Use:   "enhance",
		Short: "Correct and restyle a caption",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cfg.Enhancer.Enabled {
				return errors.Errorf("enhancer is disabled in %s", configPath)
			}
			enhancer, err := newEnhancer(cmd.Context(), cfg.Enhancer, logger)
			if err != nil {
				return err
			}
			defer enhancer.Close()

			if text == "" {
				text = strings.Join(args, " ")
			}
			res, err := enhancer.Enhance(cmd.Context(), text, tone)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "original: %s\nenhanced: %s\n", res.Original, res.Enhanced)
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "text to enhance (defaults to the arguments)")
	cmd.Flags().StringVar(&tone, "tone", "", "FRIENDLY, PROFESSIONAL, CASUAL or PERSUASIVE")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the config and model and run startup validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			svc, closeModel, err := openClassifier(cfg, logger)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", gesture.KindOf(err), err)
				return err
			}
			defer closeModel()

			schema := svc.Schema()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sequence_length:    %d\n", schema.SequenceLength())
			fmt.Fprintf(out, "features_per_frame: %d\n", schema.FeaturesPerFrame())
			fmt.Fprintf(out, "labels:             %s\n", strings.Join(svc.Labels().Names(), ", "))
			return nil
		},
	}
}
