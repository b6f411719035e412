package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
)

// ErrUnknownSetting is returned by Set for keys Config does not have.
var ErrUnknownSetting = errors.New("unknown setting")

const (
	defaultAssistantURL = "http://localhost:8000/chat"
	defaultTimeout      = 30
	defaultNetwork      = "fuji"
	defaultOutputDir    = "."
	defaultDecimals     = 0

	configFile   = "config.json"
	draftFile    = "draft.json"
	progressFile = "progress.json"
	chatFile     = "chat.json"
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.avagen.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".avagen")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	return saveJSON(filepath.Join(c.configDir, configFile), c)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// Keys lists the settings accepted by Set, in display order.
func Keys() []string {
	return []string{
		"assistant_url", "request_timeout", "owner_address", "subnet_owner",
		"network", "output_dir", "token_decimals",
	}
}

// Set updates one setting from its string form. request_timeout accepts
// seconds or a Go duration such as "45s".
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "assistant_url":
		c.AssistantURL = value
	case "request_timeout":
		secs, err := parseSeconds(value)
		if err != nil {
			return err
		}
		c.RequestTimeout = secs
	case "owner_address":
		c.OwnerAddress = value
	case "subnet_owner":
		c.SubnetOwner = value
	case "network":
		c.Network = strings.ToLower(value)
	case "output_dir":
		c.OutputDir = value
	case "token_decimals":
		d, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return fmt.Errorf("token_decimals: %w", err)
		}
		c.TokenDecimals = uint(d)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return nil
}

func parseSeconds(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("request_timeout must be positive")
		}
		return n, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("request_timeout: %w", err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("request_timeout must be at least 1s")
	}
	return int(d / time.Second), nil
}

// --- draft ---

// LoadDraft reads the saved configuration tree. It returns nil when no
// draft has been saved yet.
func (c *Config) LoadDraft() (*confstore.Node, error) {
	data, err := os.ReadFile(c.path(draftFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading draft: %w", err)
	}
	n, err := confstore.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing draft: %w", err)
	}
	return n, nil
}

// SaveDraft writes the configuration tree, keeping key order and number
// literals.
func (c *Config) SaveDraft(n *confstore.Node) error {
	raw, err := n.MarshalJSON()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	return os.WriteFile(c.path(draftFile), buf.Bytes(), 0o600)
}

// RemoveDraft deletes draft.json if present.
func (c *Config) RemoveDraft() error {
	if err := os.Remove(c.path(draftFile)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// --- chat ---

// LoadChat reads chat.json.
func (c *Config) LoadChat() (*ChatFile, error) {
	return loadJSON[ChatFile](c.path(chatFile))
}

// SaveChat writes chat.json.
func (c *Config) SaveChat(cf *ChatFile) error {
	return saveJSON(c.path(chatFile), cf)
}

// --- progress ---

// FileKV is a string key-value store persisted as progress.json.
type FileKV struct {
	mu   sync.Mutex
	path string
}

// ProgressKV returns the key-value file backing the progress tracker.
func (c *Config) ProgressKV() *FileKV {
	return &FileKV{path: c.path(progressFile)}
}

func (kv *FileKV) Get(key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	m, err := loadJSON[map[string]string](kv.path)
	if err != nil {
		return "", false, err
	}
	v, ok := (*m)[key]
	return v, ok, nil
}

func (kv *FileKV) Set(key, value string) error {
	return kv.update(func(m map[string]string) { m[key] = value })
}

func (kv *FileKV) Delete(key string) error {
	return kv.update(func(m map[string]string) { delete(m, key) })
}

func (kv *FileKV) update(fn func(map[string]string)) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	m, err := loadJSON[map[string]string](kv.path)
	if err != nil {
		return err
	}
	if *m == nil {
		*m = make(map[string]string)
	}
	fn(*m)
	return saveJSON(kv.path, *m)
}

// --- helpers ---

func (c *Config) path(name string) string {
	return filepath.Join(c.configDir, name)
}

func defaults(dir string) *Config {
	return &Config{
		AssistantURL:   defaultAssistantURL,
		RequestTimeout: defaultTimeout,
		Network:        defaultNetwork,
		OutputDir:      defaultOutputDir,
		TokenDecimals:  defaultDecimals,
		configDir:      dir,
	}
}

func loadJSON[T any](path string) (*T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &zero, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
