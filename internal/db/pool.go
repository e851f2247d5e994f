package db

import (
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/PauloHFS/faceauth/internal/config"
)

const dsnPragmas = "_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=on"

// DSN anexa os pragmas de resiliência ao caminho do banco.
func DSN(url string) string {
	if strings.Contains(url, "?") {
		return url + "&" + dsnPragmas
	}
	return url + "?" + dsnPragmas
}

// Open abre uma conexão única, usada pelos comandos de console.
func Open(url string, sqlite config.SQLiteConfig) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", DSN(url))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := applyPragmas(conn, sqlite); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	return conn, nil
}

// DualPool separa leituras concorrentes do único escritor do SQLite.
type DualPool struct {
	Read  *sql.DB
	Write *sql.DB
}

type PoolConfig struct {
	ReadMaxOpen  int
	ReadMaxIdle  int
	WriteMaxOpen int
	WriteMaxIdle int
}

var defaultPoolConfig = PoolConfig{
	ReadMaxOpen:  runtime.NumCPU() * 2,
	ReadMaxIdle:  runtime.NumCPU(),
	WriteMaxOpen: 1,
	WriteMaxIdle: 1,
}

func NewDualPool(url string, sqlite config.SQLiteConfig, opts ...func(*PoolConfig)) (*DualPool, error) {
	cfg := defaultPoolConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := DSN(url)

	readDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open read pool: %w", err)
	}
	readDB.SetMaxOpenConns(cfg.ReadMaxOpen)
	readDB.SetMaxIdleConns(cfg.ReadMaxIdle)
	readDB.SetConnMaxIdleTime(5 * time.Minute)
	readDB.SetConnMaxLifetime(time.Hour)

	writeDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		readDB.Close()
		return nil, fmt.Errorf("failed to open write pool: %w", err)
	}
	writeDB.SetMaxOpenConns(cfg.WriteMaxOpen)
	writeDB.SetMaxIdleConns(cfg.WriteMaxIdle)
	writeDB.SetConnMaxIdleTime(5 * time.Minute)
	writeDB.SetConnMaxLifetime(time.Hour)

	pool := &DualPool{
		Read:  readDB,
		Write: writeDB,
	}

	if err := applyPragmas(readDB, sqlite); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply read pragmas: %w", err)
	}
	if err := applyPragmas(writeDB, sqlite); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply write pragmas: %w", err)
	}

	return pool, nil
}

func applyPragmas(conn *sql.DB, sqlite config.SQLiteConfig) error {
	for _, pragma := range sqlite.Pragmas() {
		if _, err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func WithReadPoolSize(maxOpen, maxIdle int) func(*PoolConfig) {
	return func(cfg *PoolConfig) {
		cfg.ReadMaxOpen = maxOpen
		cfg.ReadMaxIdle = maxIdle
	}
}

func (p *DualPool) Close() error {
	var errs []error
	if p.Read != nil {
		if err := p.Read.Close(); err != nil {
			errs = append(errs, fmt.Errorf("read pool close: %w", err))
		}
	}
	if p.Write != nil {
		if err := p.Write.Close(); err != nil {
			errs = append(errs, fmt.Errorf("write pool close: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing pools: %v", errs)
	}
	return nil
}

func (p *DualPool) Queries() *Queries {
	return New(p.Read)
}

func (p *DualPool) QueriesWrite() *Queries {
	return New(p.Write)
}
