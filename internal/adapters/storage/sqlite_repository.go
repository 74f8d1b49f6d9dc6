package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/logging"
	"github.com/fluxmind/flux/internal/ports"
)

// schemaVersion is the current persisted schema version. Databases written
// by older releases are migrated forward at open time.
const schemaVersion = "1"

// gormLogger wraps the flux logger for GORM
type gormLogger struct {
	level logger.LogLevel
}

// LogMode sets the log level
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

// Info logs info messages
func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

// Warn logs warn messages
func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

// Error logs error messages
func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs SQL queries - only in debug mode
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Logger.Error("gorm query error",
			"error", err,
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else if elapsed > 200*time.Millisecond {
		logging.Logger.Warn("slow query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else {
		logging.Logger.Debug("gorm query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	}
}

// newGormLogger creates a GORM logger that respects flux's debug settings
func newGormLogger() logger.Interface {
	if os.Getenv("FLUX_DEBUG") == "1" {
		return (&gormLogger{}).LogMode(logger.Info)
	}
	return (&gormLogger{}).LogMode(logger.Silent)
}

// SQLiteRepository implements ports.ThoughtRepository on a SQLite database
// with WAL mode enabled.
type SQLiteRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// Verify interface compliance at compile time
var _ ports.ThoughtRepository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (or creates) the thought database at dbPath.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	return NewSQLiteRepositoryWithClock(dbPath, time.Now)
}

// NewSQLiteRepositoryWithClock is like NewSQLiteRepository with an
// injectable clock for the load-time pruning rule.
func NewSQLiteRepositoryWithClock(dbPath string, now func() time.Time) (*SQLiteRepository, error) {
	// Expand home directory if present
	if len(dbPath) > 0 && dbPath[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, dbPath[1:])
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		PrepareStmt: false, // Disable to avoid transaction conflicts
		NowFunc:     func() time.Time { return time.Now().UTC() },
		Logger:      newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for concurrent access
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")
	db.Exec("PRAGMA foreign_keys=ON")

	if err := db.AutoMigrate(&ThoughtModel{}, &MetaModel{}); err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return nil, fmt.Errorf("failed to migrate thought schema: %w", err)
		}
	}

	// Manually create the sub-task table (AutoMigrate has issues with
	// foreign keys in SQLite)
	migrator := db.Migrator()
	if !migrator.HasTable(&SubTaskModel{}) {
		if err := db.Exec(`
			CREATE TABLE IF NOT EXISTS thought_sub_tasks (
				id TEXT PRIMARY KEY,
				thought_id TEXT NOT NULL,
				text TEXT NOT NULL,
				completed INTEGER NOT NULL DEFAULT 0,
				position INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME,
				updated_at DATETIME,
				FOREIGN KEY (thought_id) REFERENCES thoughts(id) ON UPDATE CASCADE ON DELETE CASCADE
			)
		`).Error; err != nil {
			return nil, fmt.Errorf("failed to create thought_sub_tasks table: %w", err)
		}
	}

	if err := ensureSchemaVersion(db); err != nil {
		return nil, err
	}

	// Configure connection pool after migration
	// SQLite with WAL mode can handle multiple readers + 1 writer
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(0)

	return &SQLiteRepository{db: db, now: now}, nil
}

// ensureSchemaVersion records the schema version on first open and runs
// forward migrations when an older database is found.
func ensureSchemaVersion(db *gorm.DB) error {
	var meta MetaModel
	err := db.Where("key = ?", "schema_version").First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		meta = MetaModel{Key: "schema_version", Value: schemaVersion}
		if err := db.Create(&meta).Error; err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if meta.Value > schemaVersion {
		return fmt.Errorf("database schema version %s is newer than supported %s", meta.Value, schemaVersion)
	}
	// No earlier versions shipped; nothing to migrate yet.
	return nil
}

// Load reads the whole thought collection, applying the completed-retention
// pruning rule before returning. Pruned rows are also removed from the
// database in the same transaction.
func (r *SQLiteRepository) Load(ctx context.Context) ([]domain.Thought, error) {
	var result []domain.Thought

	err := withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var thoughts []ThoughtModel
			if err := tx.Order("position ASC, id ASC").Find(&thoughts).Error; err != nil {
				return fmt.Errorf("failed to load thoughts: %w", err)
			}

			var subTasks []SubTaskModel
			if err := tx.Order("position ASC").Find(&subTasks).Error; err != nil {
				return fmt.Errorf("failed to load sub-tasks: %w", err)
			}

			subTaskMap := make(map[string][]SubTaskModel)
			for _, st := range subTasks {
				subTaskMap[st.ThoughtID] = append(subTaskMap[st.ThoughtID], st)
			}

			now := r.now()
			result = result[:0]
			for _, m := range thoughts {
				t := thoughtModelToDomain(m, subTaskMap[m.ID])
				if t.Expired(now) {
					if err := tx.Where("id = ?", m.ID).Delete(&ThoughtModel{}).Error; err != nil {
						return fmt.Errorf("failed to prune thought %s: %w", m.ID, err)
					}
					tx.Where("thought_id = ?", m.ID).Delete(&SubTaskModel{})
					continue
				}
				result = append(result, t)
			}

			return nil
		})
	}, 3)

	return result, err
}

// Save replaces the stored collection with the given one atomically.
func (r *SQLiteRepository) Save(ctx context.Context, thoughts []domain.Thought) error {
	return withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Get existing ids to detect deletions
			var existing []ThoughtModel
			if err := tx.Select("id").Find(&existing).Error; err != nil {
				return fmt.Errorf("failed to load existing thoughts: %w", err)
			}

			existingIDs := make(map[string]bool, len(existing))
			for _, m := range existing {
				existingIDs[m.ID] = true
			}

			for i, t := range thoughts {
				model := domainToThoughtModel(t, i)
				if err := tx.Save(&model).Error; err != nil {
					return fmt.Errorf("failed to save thought %s: %w", t.ID, err)
				}
				delete(existingIDs, t.ID)

				// Replace sub-task rows wholesale; the set is small
				if err := tx.Where("thought_id = ?", t.ID).Delete(&SubTaskModel{}).Error; err != nil {
					return fmt.Errorf("failed to clear sub-tasks for %s: %w", t.ID, err)
				}
				for _, st := range domainToSubTaskModels(t) {
					if err := tx.Create(&st).Error; err != nil {
						return fmt.Errorf("failed to save sub-task %s: %w", st.ID, err)
					}
				}
			}

			// Delete thoughts that are no longer in the collection
			for id := range existingIDs {
				if err := tx.Where("id = ?", id).Delete(&ThoughtModel{}).Error; err != nil {
					return fmt.Errorf("failed to delete thought %s: %w", id, err)
				}
				tx.Where("thought_id = ?", id).Delete(&SubTaskModel{})
			}

			return nil
		})
	}, 3)
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// withRetry retries operations on SQLITE_BUSY with exponential backoff
func withRetry(fn func() error, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries", maxRetries)
}
