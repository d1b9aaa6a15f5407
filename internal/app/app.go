// Package app assembles the runtime from a loaded config: logger,
// executor, object storage and the HTTP server.
package app

import (
	"context"
	"os"

	"github.com/koustreak/datamodeler/internal/config"
	"github.com/koustreak/datamodeler/internal/database/connect"
	"github.com/koustreak/datamodeler/internal/datasource"
	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/export"
	"github.com/koustreak/datamodeler/internal/filestore"
	"github.com/koustreak/datamodeler/internal/filestore/memory"
	"github.com/koustreak/datamodeler/internal/filestore/minio"
	"github.com/koustreak/datamodeler/internal/logger"
	"github.com/koustreak/datamodeler/internal/server"
)

// App owns every long-lived resource. Close releases them.
type App struct {
	Config *config.Config
	Log    *logger.Logger
	Conn   *connect.Conn
	Store  filestore.Store // nil without object storage
	Server *server.Server
}

// NewLogger builds the process logger from cfg and installs it as the
// global logger.
func NewLogger(cfg *config.Config) *logger.Logger {
	lc := cfg.Log.Logger()
	lc.Output = os.Stderr
	log := logger.New(lc)
	logger.SetGlobal(log)
	return log
}

// New validates cfg and opens the database and object storage.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	conn, err := connect.Open(ctx, &cfg.Database, log)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, &cfg.Filestore)
	if err != nil {
		conn.Close()
		return nil, err
	}

	deps := server.Deps{
		Executor: conn.Executor,
		Dialect:  cfg.Database.Dialect(),
		Log:      log,
	}
	if store != nil {
		deps.Loader = datasource.NewLoader(store, cfg.Filestore.Bucket, log)
		deps.Archive = export.NewArchive(store, cfg.Filestore.Bucket, log)
		log.InfoWith("object storage ready", map[string]any{
			"provider": string(cfg.Filestore.Provider), "bucket": cfg.Filestore.Bucket,
		})
	}

	return &App{
		Config: cfg,
		Log:    log,
		Conn:   conn,
		Store:  store,
		Server: server.New(cfg.Server, deps),
	}, nil
}

// OpenStore connects the configured provider. It returns nil, nil when
// object storage is disabled.
func OpenStore(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	switch {
	case !cfg.Enabled():
		return nil, nil
	case cfg.Provider == filestore.ProviderMemory:
		return memory.New(cfg.Bucket), nil
	case cfg.Provider == filestore.ProviderMinIO:
		d, err := minio.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown file store provider %q", cfg.Provider)
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	return a.Server.Run(ctx)
}

// Close releases the database pool and object storage.
func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
	a.Conn.Close()
}
