package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/therolffr/bichon/internal/config"
	"github.com/therolffr/bichon/internal/database"
	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/repository"
	"github.com/therolffr/bichon/server"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "bichon",
		Usage:   "self-hosted email archiving service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(c *cli.Context) error {
					_, metaDB, envelopeDB, err := setup()
					if err != nil {
						return err
					}
					if err := repository.MigrateDB(metaDB, envelopeDB); err != nil {
						return err
					}
					log.Println("Database migration completed successfully")
					return nil
				},
			},
			{
				Name:  "server",
				Usage: "Start the application server",
				Action: func(c *cli.Context) error {
					cfg, metaDB, envelopeDB, err := setup()
					if err != nil {
						return err
					}

					appLogger, err := logger.New(logger.Config{
						Level:       cfg.AppConfig.LogLevel,
						AnsiColors:  cfg.AppConfig.AnsiLogs,
						LogDir:      filepath.Join(cfg.AppConfig.DataDir, "log"),
						MaxLogFiles: cfg.AppConfig.MaxServerLogFiles,
					})
					if err != nil {
						return err
					}
					defer appLogger.Sync()

					srv, err := server.NewServer(cfg, metaDB, envelopeDB, appLogger, version)
					if err != nil {
						return err
					}
					return srv.Run()
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup() (*config.Config, *gorm.DB, *gorm.DB, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	metaDB, err := database.NewConnection(&database.DatabaseConfig{
		DBName:          cfg.MetaDatabaseConfig.DBName,
		Host:            cfg.MetaDatabaseConfig.Host,
		Port:            cfg.MetaDatabaseConfig.Port,
		User:            cfg.MetaDatabaseConfig.User,
		Password:        cfg.MetaDatabaseConfig.Password,
		MaxConn:         cfg.MetaDatabaseConfig.MaxConn,
		MaxIdleConn:     cfg.MetaDatabaseConfig.MaxIdleConn,
		ConnMaxLifetime: cfg.MetaDatabaseConfig.ConnMaxLifetime,
		LogLevel:        cfg.MetaDatabaseConfig.LogLevel,
		SSLMode:         cfg.MetaDatabaseConfig.SSLMode,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	envelopeDB, err := database.NewConnection(&database.DatabaseConfig{
		DBName:          cfg.EnvelopeDatabaseConfig.DBName,
		Host:            cfg.EnvelopeDatabaseConfig.Host,
		Port:            cfg.EnvelopeDatabaseConfig.Port,
		User:            cfg.EnvelopeDatabaseConfig.User,
		Password:        cfg.EnvelopeDatabaseConfig.Password,
		MaxConn:         cfg.EnvelopeDatabaseConfig.MaxConn,
		MaxIdleConn:     cfg.EnvelopeDatabaseConfig.MaxIdleConn,
		ConnMaxLifetime: cfg.EnvelopeDatabaseConfig.ConnMaxLifetime,
		LogLevel:        cfg.EnvelopeDatabaseConfig.LogLevel,
		SSLMode:         cfg.EnvelopeDatabaseConfig.SSLMode,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, metaDB, envelopeDB, nil
}
