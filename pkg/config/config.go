package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "tasker"
	configFile = "config.yaml"
	envPrefix  = "TASKER"

	DefaultCalendar = "Tasks"
	DefaultListen   = "127.0.0.1:8080"
)

type Config struct {
	// DBPath is the sqlite file holding the task table.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
	// BackupPath is the single backup slot the store file is copied to.
	BackupPath string `yaml:"backup_path" mapstructure:"backup_path"`
	// Calendar is the Google Calendar name the projection is pushed to.
	Calendar string `yaml:"calendar" mapstructure:"calendar"`
	// Listen is the address of the JSON API.
	Listen  string `yaml:"listen" mapstructure:"listen"`
	DBDebug bool   `yaml:"db_debug" mapstructure:"db_debug"`
	// Categories extends the built-in Work/Study/Fitness set.
	Categories []string `yaml:"categories,omitempty" mapstructure:"categories"`
}

// Dir returns ~/.config/tasker, or $TASKER_CONFIG_DIR when set.
func Dir() (string, error) {
	if dir := os.Getenv(envPrefix + "_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Default returns the configuration used when no file exists.
func Default(dir string) *Config {
	return &Config{
		DBPath:     filepath.Join(dir, "tasks.db"),
		BackupPath: filepath.Join(dir, "tasks_backup.db"),
		Calendar:   DefaultCalendar,
		Listen:     DefaultListen,
	}
}

// Load reads the config file and applies TASKER_* environment overrides on top of the defaults.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit file. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	return loadFile(path, true)
}

func loadFile(path string, withEnv bool) (*Config, error) {
	defaults := Default(filepath.Dir(path))

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if withEnv {
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("backup_path", defaults.BackupPath)
	v.SetDefault("calendar", defaults.Calendar)
	v.SetDefault("listen", defaults.Listen)
	v.SetDefault("db_debug", false)
	v.SetDefault("categories", []string{})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Calendar == "" {
		cfg.Calendar = DefaultCalendar
	}
	return &cfg, nil
}

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// Update applies fn to the stored settings and writes them back. TASKER_* overrides are
// ignored so they never end up in the file.
func Update(fn func(*Config)) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return UpdateFile(path, fn)
}

func UpdateFile(path string, fn func(*Config)) error {
	cfg, err := loadFile(path, false)
	if err != nil {
		return err
	}
	fn(cfg)
	return SaveFile(path, cfg)
}

func SaveFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return err
	}
	return encoder.Close()
}
