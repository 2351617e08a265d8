package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	DBName          string
	Password        string
	MaxConn         int
	MaxIdleConn     int
	ConnMaxLifetime int
	LogLevel        string
	SSLMode         string
}

// NewConnection opens one logical database. The service holds two: the
// meta database for configuration-shaped entities and the envelope
// database for high-write per-account state and index tables.
func NewConnection(dbConfig *DatabaseConfig) (*gorm.DB, error) {
	sslMode := dbConfig.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connectString := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host, dbConfig.Port, dbConfig.User, dbConfig.Password, dbConfig.DBName, sslMode)

	gormDb, err := gorm.Open(postgres.Open(connectString), &gorm.Config{
		Logger: initLog(dbConfig.LogLevel),
	})
	if err != nil {
		log.Printf("Error opening DB: %v", err)
		return nil, err
	}

	sqlDB, err := gormDb.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Hour)

	return gormDb, nil
}

func initLog(logLevel string) gormlogger.Interface {
	var level gormlogger.LogLevel
	switch strings.ToUpper(logLevel) {
	case "SILENT":
		level = gormlogger.Silent
	case "INFO":
		level = gormlogger.Info
	case "ERROR":
		level = gormlogger.Error
	default:
		level = gormlogger.Warn
	}
	return gormlogger.Default.LogMode(level)
}
