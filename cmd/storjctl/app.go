package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/storj"
	"github.com/input-output-hk/catalyst-forge-libs/storj/backend"
	"github.com/input-output-hk/catalyst-forge-libs/storj/backend/gateway"
	"github.com/input-output-hk/catalyst-forge-libs/storj/backend/memory"
	"github.com/input-output-hk/catalyst-forge-libs/storj/backend/network"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/config"
)

// app carries the state shared by every storjctl command.
type app struct {
	fs     fs.Filesystem
	out    io.Writer
	logOut io.Writer

	// openBackend creates the backend named by the loaded configuration
	openBackend func(ctx context.Context, cfg *config.Config) (backend.Backend, error)

	configFile string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	log    *logrus.Logger
	client *storj.Client
}

func newApp(filesystem fs.Filesystem, out, logOut io.Writer) *app {
	return &app{
		fs:          filesystem,
		out:         out,
		logOut:      logOut,
		openBackend: openBackend,
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storjctl",
		Short:         "Transfer objects to and from a Storj bucket",
		Long:          `storjctl uploads, downloads, composes and manages objects in one Storj bucket, over the native network or an S3 gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.client == nil {
				return nil
			}
			return a.client.Close()
		},
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file path (yaml, json or toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(
		a.uploadCmd(),
		a.downloadCmd(),
		a.statCmd(),
		a.existsCmd(),
		a.deleteCmd(),
		a.deletePrefixCmd(),
		a.composeCmd(),
		a.urlCmd(),
		a.updateMetadataCmd(),
	)
	return root
}

// setup loads configuration, configures logging and opens the client.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}

	log, err := newLogger(cfg.LogLevel, cfg.LogFormat, a.logOut)
	if err != nil {
		return err
	}

	b, err := a.openBackend(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	client, err := storj.New(b, cfg.Bucket,
		storj.WithLogger(log),
		storj.WithUploadChunkSize(cfg.UploadChunkSize),
		storj.WithDownloadChunkSize(cfg.DownloadChunkSize),
		storj.WithMultipartUploadThreshold(cfg.MultipartThreshold),
		storj.WithPublic(cfg.Public),
	)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"backend": cfg.Backend,
		"bucket":  cfg.Bucket,
	}).Debug("Configuration loaded")

	a.cfg, a.log, a.client = cfg, log, client
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendGateway:
		return gateway.New(ctx, gateway.Config{
			Endpoint:        cfg.GatewayEndpoint,
			Region:          cfg.GatewayRegion,
			AccessKeyID:     cfg.GatewayAccessKey,
			SecretAccessKey: cfg.GatewaySecretKey,
		})
	case config.BackendMemory:
		return memory.New(), nil
	default:
		netCfg := network.Config{
			AccessGrant:  cfg.AccessGrant,
			AuthService:  cfg.AuthService,
			LinkshareURL: cfg.LinkshareURL,
		}
		if cfg.EnsureBucket {
			netCfg.EnsureBuckets = []string{cfg.Bucket}
		}
		return network.New(ctx, netCfg)
	}
}

func newLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// localPath resolves p against the working directory, since the filesystem is rooted at /.
func localPath(p string) (string, error) {
	return filepath.Abs(p)
}

func readFile(filesystem fs.Filesystem, path string) ([]byte, error) {
	f, err := filesystem.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
