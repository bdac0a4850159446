package main

import (
	"bufio"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phdargen/xoninAgent/internal/brain"
	"github.com/phdargen/xoninAgent/internal/chain"
	"github.com/phdargen/xoninAgent/internal/config"
	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
	"github.com/phdargen/xoninAgent/internal/pipeline"
	"github.com/phdargen/xoninAgent/internal/render"
	"github.com/phdargen/xoninAgent/internal/resolver"
	"github.com/phdargen/xoninAgent/internal/scoring"
	"github.com/phdargen/xoninAgent/internal/sites/fake"
	"github.com/phdargen/xoninAgent/internal/sites/x"
	"github.com/phdargen/xoninAgent/internal/storage"
	"github.com/phdargen/xoninAgent/internal/ui/telegram"
)

var (
	flagConfig string
	flagStore  string
	flagDryRun bool
	flagDebug  bool
)

func main() {
	root := &cobra.Command{
		Use:          "xonin-agent",
		Short:        "Autonomous agent that mints reputation NFTs for mentioned addresses",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "optional YAML config file")
	root.PersistentFlags().StringVar(&flagStore, "store", "", "memory artifact path (overrides config)")
	root.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "no real social or chain calls")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "verbose development logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline pass (the CI entrypoint)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, log, err := buildController(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()
			_, err = ctrl.Run(cmd.Context())
			return err
		},
	}

	var flagInterval time.Duration
	loopCmd := &cobra.Command{
		Use:   "loop",
		Short: "Run resident, one pass per interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, log, err := buildController(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()

			// pressing enter triggers an immediate pass
			trigger := make(chan struct{}, 1)
			go func() {
				reader := bufio.NewReader(os.Stdin)
				for {
					if _, err := reader.ReadString('\n'); err != nil {
						return
					}
					select {
					case trigger <- struct{}{}:
					default:
					}
				}
			}()

			for {
				if _, err := ctrl.Run(cmd.Context()); err != nil {
					log.Error("pass failed", zap.Error(err))
				}
				select {
				case <-time.After(flagInterval):
				case <-trigger:
					log.Info("manual trigger")
				case <-cmd.Context().Done():
					return nil
				}
			}
		},
	}
	loopCmd.Flags().DurationVar(&flagInterval, "interval", 24*time.Hour, "time between passes")

	root.AddCommand(runCmd, loopCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildController(ctx context.Context) (*pipeline.Controller, *zap.Logger, error) {
	godotenv.Load()

	log, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagStore != "" {
		cfg.StorePath = flagStore
	}
	if err := cfg.Validate(flagDryRun); err != nil {
		return nil, nil, err
	}

	// storage: Postgres when a database is configured, artifact file otherwise
	var store ports.Storage
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		store, err = storage.NewPostgresStore(ctx, dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		log.Info("storage: postgres")
	} else {
		store, err = storage.NewJSONStore(cfg.StorePath, log)
		if err != nil {
			return nil, nil, fmt.Errorf("json store: %w", err)
		}
		log.Info("storage: artifact file", zap.String("path", cfg.StorePath))
	}

	var (
		social   ports.Social
		onchain  ports.Chain
		names    ports.NameService
		scorer   ports.Scorer
		composer ports.Composer
		notifier ports.Notifier
	)

	if flagDryRun {
		if cfg.DummyMentionsFile != "" {
			social, err = fake.NewClientFromFile(cfg.DummyMentionsFile)
			if err != nil {
				return nil, nil, err
			}
		} else {
			social = fake.NewClient(nil)
		}
		onchain = simulatedChain{}
		log.Info("dry-run: fake social and simulated chain")
	} else {
		social = x.NewClient(cfg.XBearerToken, cfg.XUserToken, cfg.XAccountID, cfg.MaxMentions, log)

		chainClient := chain.NewClient(cfg.ChainAPIBase, cfg.ChainAPIKey, cfg.NetworkID,
			cfg.ContractAddress, cfg.WalletDataFile, log)
		if err := chainClient.Initialize(ctx); err != nil {
			return nil, nil, fmt.Errorf("chain init: %w", err)
		}
		onchain = chainClient
		names = chainClient
	}

	scorer = scoring.NewExplorerScorer(cfg.ExplorerAPIBase, cfg.ExplorerAPIKey, cfg.Tiers, log)

	if cfg.GeminiAPIKey != "" {
		composer, err = brain.NewGeminiComposer(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Warn("composer unavailable, using template replies", zap.Error(err))
			composer = nil
		}
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifier, err = telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn("telegram notifier unavailable", zap.Error(err))
			notifier = nil
		}
	}

	return &pipeline.Controller{
		Social:        social,
		Resolver:      resolver.New(names),
		Scorer:        scorer,
		Chain:         onchain,
		Renderer:      render.NewSVGRenderer(cfg.MediaDir),
		Composer:      composer,
		Notifier:      notifier,
		Store:         store,
		Log:           log,
		ReplyTemplate: cfg.ReplyTemplate,
		TokenURIBase:  "https://xonin.art/meta",
	}, log, nil
}

func newLogger() (*zap.Logger, error) {
	if flagDebug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// simulatedChain stands in for the toolkit during dry runs: every mint
// "confirms" with a hash derived from the destination.
type simulatedChain struct{}

func (simulatedChain) Mint(ctx context.Context, to string, tier domain.Tier, tokenURI string) (domain.MintResult, error) {
	sum := sha256.Sum256([]byte(to + tokenURI))
	return domain.MintResult{
		Address: to,
		Tier:    tier,
		TxHash:  fmt.Sprintf("0x%x", sum),
		Success: true,
	}, nil
}
