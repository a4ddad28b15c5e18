// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// State backends selectable via UPKEEP_STATE_BACKEND.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Version ordering modes selectable via UPKEEP_VERSION_ORDERING.
const (
	OrderingNumeric = "numeric"
	OrderingSemver  = "semver"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Repo            string
	ToolkitDir      string
	StateDir        string
	StateBackend    string
	DBPath          string
	GitHubToken     string
	CacheTTL        time.Duration
	VersionOrdering string
	AllowPrerelease bool
	CurrentVersion  string
	MarkerFiles     []string
	ListenAddr      string
}

// Load reads configuration from environment variables and returns a validated Config.
// UPKEEP_REPO (owner/name) is required. UPKEEP_GITHUB_TOKEN is optional; without it
// requests run unauthenticated against GitHub's lower rate limit.
// Optional variables with defaults: UPKEEP_TOOLKIT_DIR (.), UPKEEP_STATE_DIR
// (user config dir + /upkeep), UPKEEP_STATE_BACKEND (file), UPKEEP_DB_PATH
// (upkeep.db inside the state dir), UPKEEP_CACHE_TTL (1h),
// UPKEEP_VERSION_ORDERING (numeric), UPKEEP_ALLOW_PRERELEASE (false),
// UPKEEP_MARKER_FILES (VERSION), UPKEEP_LISTEN_ADDR (127.0.0.1:8080).
func Load() (*Config, error) {
	// Values already set in the environment take precedence over .env.
	_ = godotenv.Load()

	repo := os.Getenv("UPKEEP_REPO")
	if repo == "" {
		return nil, fmt.Errorf("UPKEEP_REPO is required (owner/name of the toolkit repository)")
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("UPKEEP_REPO has invalid value %q, expected owner/name", repo)
	}

	toolkitDir := "."
	if v, ok := os.LookupEnv("UPKEEP_TOOLKIT_DIR"); ok && v != "" {
		toolkitDir = v
	}

	stateDir := ""
	if v, ok := os.LookupEnv("UPKEEP_STATE_DIR"); ok && v != "" {
		stateDir = v
	} else {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve default state dir: %w (set UPKEEP_STATE_DIR)", err)
		}
		stateDir = filepath.Join(configDir, "upkeep")
	}

	backend := BackendFile
	if v, ok := os.LookupEnv("UPKEEP_STATE_BACKEND"); ok && v != "" {
		switch v {
		case BackendFile, BackendSQLite, BackendMemory:
			backend = v
		default:
			return nil, fmt.Errorf("UPKEEP_STATE_BACKEND has invalid value %q, expected file, sqlite, or memory", v)
		}
	}

	dbPath := filepath.Join(stateDir, "upkeep.db")
	if v, ok := os.LookupEnv("UPKEEP_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	cacheTTL := time.Hour
	if v, ok := os.LookupEnv("UPKEEP_CACHE_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("UPKEEP_CACHE_TTL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("UPKEEP_CACHE_TTL must be positive, got %q", v)
		}
		cacheTTL = parsed
	}

	ordering := OrderingNumeric
	if v, ok := os.LookupEnv("UPKEEP_VERSION_ORDERING"); ok && v != "" {
		switch v {
		case OrderingNumeric, OrderingSemver:
			ordering = v
		default:
			return nil, fmt.Errorf("UPKEEP_VERSION_ORDERING has invalid value %q, expected numeric or semver", v)
		}
	}

	allowPrerelease := false
	if v, ok := os.LookupEnv("UPKEEP_ALLOW_PRERELEASE"); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("UPKEEP_ALLOW_PRERELEASE has invalid value %q: %w", v, err)
		}
		allowPrerelease = parsed
	}

	markerFiles := []string{"VERSION"}
	if v, ok := os.LookupEnv("UPKEEP_MARKER_FILES"); ok && v != "" {
		markerFiles = nil
		for _, marker := range strings.Split(v, ",") {
			marker = strings.TrimSpace(marker)
			if marker != "" {
				markerFiles = append(markerFiles, marker)
			}
		}
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("UPKEEP_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	return &Config{
		Repo:            repo,
		ToolkitDir:      toolkitDir,
		StateDir:        stateDir,
		StateBackend:    backend,
		DBPath:          dbPath,
		GitHubToken:     os.Getenv("UPKEEP_GITHUB_TOKEN"),
		CacheTTL:        cacheTTL,
		VersionOrdering: ordering,
		AllowPrerelease: allowPrerelease,
		CurrentVersion:  os.Getenv("UPKEEP_CURRENT_VERSION"),
		MarkerFiles:     markerFiles,
		ListenAddr:      listenAddr,
	}, nil
}
