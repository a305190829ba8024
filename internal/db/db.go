package db

import (
	"context"
	"fmt"
	"io"
	"log"
	"prompt-manager/internal/config"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/glebarez/sqlite"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var AppDb *gorm.DB

// Dialector picks the gorm driver for cfg.DBDriver.
func Dialector(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres", "postgresql", "":
		dsn := fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v sslmode=disable",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBPort,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(SQLiteDSN(cfg.SQLitePath)), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// SQLiteDSN enables foreign keys so ON DELETE rules are honoured.
func SQLiteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewLogger routes gorm's SQL log to w.
func NewLogger(w io.Writer, environment string) logger.Interface {
	level := logger.Info
	if environment == "production" {
		level = logger.Error
	}
	return logger.New(
		log.New(w, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  level,       // Log level
			IgnoreRecordNotFoundError: true,
			Colorful:                  environment != "production",
		},
	)
}

// ConnectDb opens the database, retrying while it is still starting up.
func ConnectDb(ctx context.Context, cfg config.Config, w io.Writer) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	attempts := cfg.DBConnectAttempts
	if attempts == 0 {
		attempts = 1
	}

	var db *gorm.DB
	err = retry.Do(
		func() error {
			conn, err := gorm.Open(dialector, &gorm.Config{Logger: NewLogger(w, cfg.Environment)})
			if err != nil {
				return err
			}
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			db = conn
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.OnRetry(func(n uint, err error) {
			zlog.Warn().Err(err).Uint("attempt", n+1).Msg("database not ready, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("error connecting to db: %w", err)
	}

	if cfg.DBDriver == "sqlite" {
		// sqlite allows a single writer
		sqlDB, _ := db.DB()
		sqlDB.SetMaxOpenConns(1)
	}

	AppDb = db
	zlog.Info().Str("driver", dialector.Name()).Msg("connected to db")
	return db, nil
}

func CloseDb(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if err != nil {
		zlog.Error().Err(err).Msg("failed to close db")
		return
	}
	zlog.Info().Msg("closing db")
}
