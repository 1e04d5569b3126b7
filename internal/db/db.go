package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/envutil"
	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// New connects to the configured database. DB_DRIVER selects postgres
// (default) or sqlite; sqlite keeps local development and CI self-contained.
func New(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")
	driver := envutil.String("DB_DRIVER", "postgres")

	var (
		conn *gorm.DB
		err  error
	)
	switch driver {
	case "sqlite":
		path := envutil.String("SQLITE_PATH", "quizforge.db")
		log.Info("Connecting to SQLite...", "path", path)
		conn, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err == nil {
			err = conn.Exec(`PRAGMA foreign_keys = ON;`).Error
		}
	case "postgres":
		host := envutil.String("POSTGRES_HOST", "localhost")
		port := envutil.String("POSTGRES_PORT", "5432")
		user := envutil.String("POSTGRES_USER", "postgres")
		password := envutil.String("POSTGRES_PASSWORD", "")
		name := envutil.String("POSTGRES_NAME", "quizforge")
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

		log.Info("Connecting to Postgres...")
		conn, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			err = conn.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	if err != nil {
		log.Error("Failed to connect to database", "driver", driver, "error", err)
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	return &Service{db: conn, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.Course{},
		&types.Chapter{},
		&types.Section{},
		&types.Subsection{},
		&types.RawMaterial{},
		&types.Chunk{},
		&types.KnowledgeRelation{},
		&types.Question{},
		&types.Quiz{},
		&types.Transcript{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *Service) DB() *gorm.DB {
	return s.db
}
