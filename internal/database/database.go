package database

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xelth-com/catalogbot/internal/config"
	"github.com/xelth-com/catalogbot/internal/models"
)

const embeddedPassword = "postgres"

// DB wraps gorm.DB and includes a reference to an embedded process if active
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
}

// New wraps an already opened gorm connection (tests, alternative dialects)
func New(db *gorm.DB) *DB {
	return &DB{DB: db}
}

// Connect opens PostgreSQL. With host "localhost" and no password an embedded
// server is started under cfg.EmbeddedDataPath, otherwise cfg points at an
// external server.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	var embedded *embeddedpostgres.EmbeddedPostgres
	password := cfg.Password

	if cfg.Embedded() {
		log.Println("📦 Mode: [Embedded PostgreSQL] - starting local catalog database...")
		var err error
		embedded, err = startEmbedded(cfg)
		if err != nil {
			return nil, err
		}
		cfg.Port = strconv.Itoa(cfg.EmbeddedPort)
		password = embeddedPassword
		log.Printf("✅ Embedded PostgreSQL started on port %d", cfg.EmbeddedPort)
	} else {
		log.Printf("🌐 Mode: [External PostgreSQL] - connecting to %s:%s", cfg.Host, cfg.Port)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, password, cfg.Database, cfg.SSLMode,
	)

	logLevel := logger.Warn
	if cfg.Silent {
		logLevel = logger.Silent
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Println("✅ Database connection established")
	return &DB{DB: db, embedded: embedded}, nil
}

func startEmbedded(cfg config.DatabaseConfig) (*embeddedpostgres.EmbeddedPostgres, error) {
	cleanupStaleEmbedded(cfg.EmbeddedDataPath)

	if isPortInUse(cfg.EmbeddedPort) {
		log.Printf("⚠️  Port %d still in use, waiting for release...", cfg.EmbeddedPort)
		for i := 0; i < 6 && isPortInUse(cfg.EmbeddedPort); i++ {
			time.Sleep(500 * time.Millisecond)
		}
		if isPortInUse(cfg.EmbeddedPort) {
			return nil, fmt.Errorf("port %d is still in use by another process", cfg.EmbeddedPort)
		}
	}

	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		DataPath(cfg.EmbeddedDataPath).
		Port(uint32(cfg.EmbeddedPort)).
		Database(cfg.Database).
		Username(cfg.Username).
		Password(embeddedPassword))

	if err := pg.Start(); err != nil {
		return nil, fmt.Errorf("failed to start embedded database: %w", err)
	}
	return pg, nil
}

// cleanupStaleEmbedded stops a postmaster left behind by a crashed run
func cleanupStaleEmbedded(dataPath string) {
	pidFile := filepath.Join(dataPath, "postmaster.pid")
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	if !scanner.Scan() {
		return
	}
	pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		log.Printf("⚠️  Could not parse PID from postmaster.pid: %v", err)
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil || process.Signal(syscall.Signal(0)) != nil {
		log.Printf("🧹 Removing stale postmaster.pid (PID %d not running)", pid)
		os.Remove(pidFile)
		return
	}

	log.Printf("⚠️  Found orphaned PostgreSQL process (PID %d), stopping...", pid)
	if err := process.Signal(syscall.SIGTERM); err != nil {
		log.Printf("⚠️  Could not send SIGTERM to PID %d: %v", pid, err)
	}
	for i := 0; i < 10; i++ {
		time.Sleep(500 * time.Millisecond)
		if process.Signal(syscall.Signal(0)) != nil {
			os.Remove(pidFile)
			return
		}
	}
	log.Printf("⚠️  PID %d did not stop, sending SIGKILL", pid)
	process.Kill()
	time.Sleep(500 * time.Millisecond)
	os.Remove(pidFile)
}

func isPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Close shuts the connection and the embedded server, if any
func (db *DB) Close() error {
	if db.embedded != nil {
		log.Println("🛑 Stopping Embedded PostgreSQL process...")
		_ = db.embedded.Stop()
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate synchronizes the catalog schema
func (db *DB) Migrate() error {
	return db.DB.AutoMigrate(models.All()...)
}
