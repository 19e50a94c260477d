package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gonkalabs/identity-mask/internal/mask"
)

// DefaultAPIURL is the public extraction service endpoint.
const DefaultAPIURL = "https://api.rosette.com/rest/v1/"

// Cfg holds all runtime configuration loaded from environment variables.
// Command-line flags override individual fields after Load.
type Cfg struct {
	// APIKeys holds one or more extraction service keys.
	// Populated from ROSETTE_USER_KEYS (multi) or ROSETTE_USER_KEY (single).
	APIKeys []string

	APIURL   string // ROSETTE_API_URL
	Language string // MASK_LANGUAGE, ISO 639-2/T code; empty = auto-detect

	// Masking
	EntityTypes []string          // MASK_ENTITY_TYPES=PERSON,IDENTIFIER:EMAIL
	MasksFile   string            // MASK_TEMPLATES_FILE=/etc/identity-mask/masks.toml
	Masks       map[string]string // template overrides read from MasksFile

	// Optional layers
	CachePath  string // MASK_CACHE_PATH=~/.cache/identity-mask/adm.db (empty = off)
	SigningKey string // MASK_SIGNING_KEY hex secp256k1 key (empty = no receipts)

	// Logging
	LogLevel  string // LOG_LEVEL=debug|info|warn|error
	LogFormat string // LOG_FORMAT=text|json

	// Server
	ListenAddr string // e.g. :8080
}

// Load reads .env (if present) then environment variables and returns Cfg.
// A masks file named by MASK_TEMPLATES_FILE is read and merged.
func Load() (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	apiURL := strings.TrimSpace(os.Getenv("ROSETTE_API_URL"))
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	logFormat := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if logFormat == "" {
		logFormat = "text"
	}
	logLevel := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if logLevel == "" {
		logLevel = "info"
	}

	cfg := &Cfg{
		APIKeys:     loadKeys(),
		APIURL:      apiURL,
		Language:    strings.TrimSpace(os.Getenv("MASK_LANGUAGE")),
		EntityTypes: splitList(os.Getenv("MASK_ENTITY_TYPES")),
		MasksFile:   strings.TrimSpace(os.Getenv("MASK_TEMPLATES_FILE")),
		CachePath:   strings.TrimSpace(os.Getenv("MASK_CACHE_PATH")),
		SigningKey:  strings.TrimSpace(os.Getenv("MASK_SIGNING_KEY")),
		LogLevel:    logLevel,
		LogFormat:   logFormat,
		ListenAddr:  ":" + port,
	}

	if cfg.MasksFile != "" {
		if err := cfg.ApplyMasksFile(cfg.MasksFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ApplyMasksFile reads path and merges its templates into c. Entity types
// listed in the file apply only when none were configured yet.
func (c *Cfg) ApplyMasksFile(path string) error {
	mf, err := LoadMasksFile(path)
	if err != nil {
		return err
	}
	c.MasksFile = path
	if c.Masks == nil {
		c.Masks = make(map[string]string, len(mf.Masks))
	}
	for k, v := range mf.Masks {
		c.Masks[k] = v
	}
	if len(c.EntityTypes) == 0 {
		c.EntityTypes = mf.EntityTypes
	}
	return nil
}

// MaskConfig returns the validated mask configuration for the selected types.
func (c *Cfg) MaskConfig() (mask.Config, error) {
	return Select(c.EntityTypes, c.Masks)
}

// loadKeys builds the key list from environment variables.
//
// Multi-key format (ROSETTE_USER_KEYS):
//
//	ROSETTE_USER_KEYS=key1,key2,key3
//
// Single-key fallback:
//
//	ROSETTE_USER_KEY=...
func loadKeys() []string {
	if keys := splitList(os.Getenv("ROSETTE_USER_KEYS")); len(keys) > 0 {
		return keys
	}
	if k := strings.TrimSpace(os.Getenv("ROSETTE_USER_KEY")); k != "" {
		return []string{k}
	}
	return nil
}

// splitList parses "a, b,,c" into [a b c].
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SplitList exposes the comma list parsing used for environment variables.
func SplitList(raw string) []string {
	return splitList(raw)
}

func (c *Cfg) String() string {
	return fmt.Sprintf("api=%s keys=%d types=%d language=%q cache=%t signing=%t",
		c.APIURL, len(c.APIKeys), len(c.EntityTypes), c.Language, c.CachePath != "", c.SigningKey != "")
}
