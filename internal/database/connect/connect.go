// Package connect picks the executor for a database.Config. It lives
// apart from database so that the driver packages can import database.
package connect

import (
	"context"

	"github.com/koustreak/datamodeler/internal/database"
	"github.com/koustreak/datamodeler/internal/database/mysql"
	"github.com/koustreak/datamodeler/internal/database/postgres"
	"github.com/koustreak/datamodeler/internal/logger"
)

// Conn is an open executor plus, for real drivers, the pool behind it.
type Conn struct {
	Executor database.Executor

	// DB is nil for the mock driver.
	DB database.DB

	Driver database.Driver
}

// Close releases the pool, if any.
func (c *Conn) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
}

// Open validates cfg and connects. The mock driver never touches the
// network and never fails after validation.
func Open(ctx context.Context, cfg *database.Config, log *logger.Logger) (*Conn, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	driver, _ := database.ParseDriver(string(cfg.Driver))

	var (
		db  database.DB
		err error
	)
	switch driver {
	case database.DriverMock:
		delay := cfg.MockDelay
		if delay < 0 {
			delay = 0
		}
		log.With().Str("driver", string(driver)).Any("delay", delay.String()).Logger().Info("using mock executor")
		return &Conn{
			Executor: &database.MockExecutor{Delay: delay, Result: database.SampleResult()},
			Driver:   driver,
		}, nil
	case database.DriverPostgres:
		db, err = postgres.New(ctx, cfg)
	case database.DriverMySQL:
		db, err = mysql.New(ctx, cfg)
	}
	if err != nil {
		log.ErrorWith("database connection failed", err, map[string]any{"driver": string(driver)})
		return nil, err
	}

	log.InfoWith("database connected", map[string]any{"driver": string(driver)})
	return &Conn{
		Executor: database.NewDBExecutor(db, cfg.QueryTimeout, log),
		DB:       db,
		Driver:   driver,
	}, nil
}
