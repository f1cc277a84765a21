package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-bracket/internal/ports"
)

// ConfigLoader parses and validates tournament configurations. Validated
// configurations are cached by the SHA-256 of their normalized form, and
// concurrent loads of the same configuration are collapsed into one.
type ConfigLoader struct {
	validator *validator.Validate

	cacheMu sync.RWMutex
	cache   map[string]*TournamentConfig

	sf singleflight.Group
}

// NewConfigLoader creates a loader with the custom validators registered.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := RegisterTournamentValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{
		validator: v,
		cache:     make(map[string]*TournamentConfig),
	}, nil
}

// LoadFromFile loads a configuration from a YAML file.
func (cl *ConfigLoader) LoadFromFile(ctx context.Context, path string) (*TournamentConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, ports.NewConfigError(path, fmt.Errorf("failed to read file: %w", err))
	}
	return cl.LoadFromBytes(ctx, data)
}

// LoadFromReader loads a configuration from r.
func (cl *ConfigLoader) LoadFromReader(ctx context.Context, r io.Reader) (*TournamentConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return cl.LoadFromBytes(ctx, data)
}

// LoadFromBytes parses, validates and caches data. Each call returns its
// own copy, so callers may adjust the result freely.
func (cl *ConfigLoader) LoadFromBytes(ctx context.Context, data []byte) (*TournamentConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config, err := parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hash, err := configHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if cached, ok := cl.cached(hash); ok {
			return cached, nil
		}
		if err := cl.Validate(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
		cl.store(hash, config)
		return config, nil
	})
	if err != nil {
		return nil, err
	}

	cp := *v.(*TournamentConfig)
	return &cp, nil
}

// Validate runs struct tag validation followed by judge parameter checks.
func (cl *ConfigLoader) Validate(config *TournamentConfig) error {
	if err := cl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}
	if err := ValidateJudgeParameters(config.Judge); err != nil {
		return ports.NewConfigError("judge.parameters", err)
	}
	if _, err := config.DomainConfig(); err != nil {
		return ports.NewConfigError("tournament", err)
	}
	return nil
}

// parseYAML decodes strictly so misspelled keys are reported rather than
// silently ignored.
func parseYAML(data []byte) (*TournamentConfig, error) {
	var config TournamentConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// configHash hashes the re-encoded configuration so formatting and
// comment differences do not defeat the cache.
func configHash(config *TournamentConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func (cl *ConfigLoader) cached(hash string) (*TournamentConfig, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()
	c, ok := cl.cache[hash]
	return c, ok
}

func (cl *ConfigLoader) store(hash string, config *TournamentConfig) {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()
	cl.cache[hash] = config
}

// CacheSize returns the number of cached configurations.
func (cl *ConfigLoader) CacheSize() int {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()
	return len(cl.cache)
}

// ClearCache drops every cached configuration.
func (cl *ConfigLoader) ClearCache() {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()
	cl.cache = make(map[string]*TournamentConfig)
}
