package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// SQLiteConfig carries the pragmas applied to every connection the database
// pools open. It is filled by Load from the SQLITE_* keys.
type SQLiteConfig struct {
	CacheSizeKB int    // negativo = KiB, positivo = páginas
	TempStore   string // MEMORY ou FILE
	WALMode     bool
	SyncLevel   string // OFF, NORMAL, FULL, EXTRA
	MmapBytes   int
}

var (
	tempStores = []string{"MEMORY", "FILE"}
	syncLevels = []string{"OFF", "NORMAL", "FULL", "EXTRA"}
)

// DefaultSQLiteConfig is the configuration used when no SQLITE_* key is set
// and the host RAM is unknown.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		CacheSizeKB: -16000,
		TempStore:   "MEMORY",
		WALMode:     true,
		SyncLevel:   "NORMAL",
		MmapBytes:   256 << 20,
	}
}

func loadSQLite() (SQLiteConfig, error) {
	cfg := DefaultSQLiteConfig()

	ramMB, err := getEnvInt("SYSTEM_RAM_MB", 0)
	if err != nil {
		return cfg, err
	}
	if ramMB <= 0 {
		ramMB = memTotalMB()
	}
	if ramMB > 0 {
		cfg.CacheSizeKB = cacheSizeForRAM(ramMB)
	}

	if cfg.CacheSizeKB, err = getEnvInt("SQLITE_CACHE_SIZE", cfg.CacheSizeKB); err != nil {
		return cfg, err
	}
	if cfg.MmapBytes, err = getEnvInt("SQLITE_MMAP_SIZE", cfg.MmapBytes); err != nil {
		return cfg, err
	}
	if cfg.MmapBytes < 0 {
		return cfg, fmt.Errorf("SQLITE_MMAP_SIZE: must not be negative, got %d", cfg.MmapBytes)
	}
	if cfg.WALMode, err = getEnvBool("SQLITE_WAL_MODE", cfg.WALMode); err != nil {
		return cfg, err
	}
	if cfg.TempStore, err = getEnvChoice("SQLITE_TEMP_STORE", cfg.TempStore, tempStores); err != nil {
		return cfg, err
	}
	if cfg.SyncLevel, err = getEnvChoice("SQLITE_SYNC_LEVEL", cfg.SyncLevel, syncLevels); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Pragmas lists the statements to run on a fresh connection, in order.
func (c SQLiteConfig) Pragmas() []string {
	journal := "DELETE"
	if c.WALMode {
		journal = "WAL"
	}
	return []string{
		"PRAGMA temp_store = " + c.TempStore,
		"PRAGMA cache_size = " + strconv.Itoa(c.CacheSizeKB),
		"PRAGMA journal_mode = " + journal,
		"PRAGMA wal_autocheckpoint = 1000",
		"PRAGMA synchronous = " + c.SyncLevel,
		"PRAGMA mmap_size = " + strconv.Itoa(c.MmapBytes),
		"PRAGMA page_size = 4096",
	}
}

// 2% da RAM, entre 8 e 256 MiB.
func cacheSizeForRAM(ramMB int) int {
	cacheMB := min(max(ramMB/50, 8), 256)
	return -cacheMB * 1024
}

func memTotalMB() int {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0
	}
	for line := range strings.SplitSeq(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			if kb, err := strconv.Atoi(fields[1]); err == nil {
				return kb / 1024
			}
		}
	}
	return 0
}

func getEnvChoice(key, fallback string, allowed []string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	v = strings.ToUpper(strings.TrimSpace(v))
	if !slices.Contains(allowed, v) {
		return "", fmt.Errorf("%s: %q is not one of %s", key, v, strings.Join(allowed, ", "))
	}
	return v, nil
}
