package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/config"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/db"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/logging"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/relay"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/render"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/server"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/suggest"
)

var (
	serveAddr  string
	serveStore string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides HTTP_ADDR")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "memory, sqlite or dynamodb, overrides STORE_BACKEND")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the HTTP API and the collaboration relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.HTTPAddr = serveAddr
		}
		if serveStore != "" {
			cfg.StoreBackend = serveStore
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	srv, store, err := Build(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("could not close store", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, cfg.HTTPAddr, cfg.ClientURL)
}

// Build wires a server from cfg. The caller owns the returned store.
func Build(cfg config.Config, log *zap.Logger) (*server.Server, *db.Projects, error) {
	backend, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	store := db.New(backend)

	var engine suggest.Engine
	if cfg.OpenAIKey != "" {
		engine = suggest.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)
	} else {
		log.Warn("OPENAI_API_KEY not set, suggestions use fixed fallbacks")
	}

	renderer := render.New(render.Config{
		Dir:        cfg.ExportDir,
		Soundfont:  cfg.SoundfontPath,
		Fluidsynth: cfg.FluidsynthBin,
		FFmpeg:     cfg.FFmpegBin,
		Log:        log.Named("render"),
	})

	srv := server.New(
		store,
		relay.New(log.Named("relay"), cfg.PeerQueueSize),
		renderer,
		suggest.New(engine, log.Named("suggest")),
		log.Named("http"),
	)
	return srv, store, nil
}

// OpenStore opens the backend cfg names.
func OpenStore(cfg config.Config) (db.Backend, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case config.BackendMemory:
		return db.NewMemory(), nil
	case config.BackendSQLite:
		return db.OpenSQLite(cfg.SQLitePath)
	case config.BackendDynamoDB:
		return db.OpenDynamo(db.DynamoConfig{
			Endpoint: cfg.DynamoDBEndpoint,
			Region:   cfg.DynamoDBRegion,
			Table:    cfg.DynamoDBTable,
		})
	}
	return nil, errors.Errorf("unknown store backend %q", cfg.StoreBackend)
}
