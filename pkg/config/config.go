package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Config holds the full application configuration. It is loaded once at
// startup and passed explicitly to the components that need it; nothing in
// the process mutates it afterwards.
type Config struct {
	Host          string   `toml:"host"`
	Port          int      `toml:"port"`
	StorageDir    string   `toml:"storage_dir"`
	LogsDir       string   `toml:"logs_dir"`
	AdminPassword string   `toml:"admin_password"`
	CorpusDirs    []string `toml:"corpus_dirs"`
	AI            AIConfig `toml:"ai"`
}

// AIConfig configures the Gemini overview client. An empty APIKey is not an
// error; it routes every request to the heuristic generator.
type AIConfig struct {
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	Timeout Duration `toml:"timeout"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

const (
	defaultPort          = 8000
	defaultModel         = "gemini-1.5-flash"
	defaultAdminPassword = "gour"
	defaultAITimeout     = 15 * time.Second
)

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	return &Config{
		Host:          "0.0.0.0",
		Port:          defaultPort,
		StorageDir:    storageDir,
		LogsDir:       "logs",
		AdminPassword: defaultAdminPassword,
		CorpusDirs:    []string{"webpages", "webpages2"},
		AI: AIConfig{
			Model:   defaultModel,
			Timeout: Duration{defaultAITimeout},
		},
	}, nil
}

// LoadConfig reads the TOML config file (falling back to defaults when it
// does not exist) and then applies environment overrides. Environment always
// wins so deployments can keep credentials out of the file.
func LoadConfig(configPath string) (*Config, error) {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadConfigFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.Port == 0 {
		config.Port = defaultPort
	}
	if config.LogsDir == "" {
		config.LogsDir = "logs"
	}
	if config.AdminPassword == "" {
		config.AdminPassword = defaultAdminPassword
	}
	if len(config.CorpusDirs) == 0 {
		config.CorpusDirs = []string{"webpages", "webpages2"}
	}
	if config.AI.Model == "" {
		config.AI.Model = defaultModel
	}
	if config.AI.Timeout.Duration == 0 {
		config.AI.Timeout = Duration{defaultAITimeout}
	}

	return &config, nil
}

// applyEnvOverrides reads the well-known environment variables. GEMINI_API_KEY
// takes precedence over GOOGLE_API_KEY; both are optional.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}
	if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
		cfg.AdminPassword = pw
	}
	if dir := os.Getenv("LOGS_DIR"); dir != "" {
		cfg.LogsDir = dir
	}
	if port := os.Getenv("PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil && parsed > 0 {
			cfg.Port = parsed
		}
	}
}

// HasAPIKey reports whether an AI credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.AI.APIKey != ""
}

// Addr returns the host:port address the web server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return "", fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	// Replace the placeholder storage_dir with the actual path
	template := strings.Replace(configTemplate, "/home/user/.local/share/skim", storageDir, 1)
	return template, nil
}

// GetDefaultStorageDir returns the default storage directory for the page index
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	skimDir := filepath.Join(dataDir, "skim")

	if err := os.MkdirAll(skimDir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", skimDir, err)
	}

	return skimDir, nil
}

// GetConfigDir returns the configuration directory for skim
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	skimConfigDir := filepath.Join(configDir, "skim")

	if err := os.MkdirAll(skimConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", skimConfigDir, err)
	}

	return skimConfigDir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
