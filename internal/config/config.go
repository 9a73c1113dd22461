package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const EnvPrefix = "CRUDBIND_"

type Config struct {
	Port        string `koanf:"port"`
	DSLDir      string `koanf:"dsl_dir"`
	EnumsDir    string `koanf:"enums_dir"`
	DBURL       string `koanf:"db_url"` // пусто: SQLite в памяти
	AutoMigrate bool   `koanf:"auto_migrate"`

	// Файлы загрузок
	BlobDriver string `koanf:"blob_driver"` // пока только "local"
	FilesRoot  string `koanf:"files_root"`

	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"` // пусто: stderr
	Debug    bool   `koanf:"debug"`    // SQL запросов в ответе
}

func defaults() map[string]any {
	return map[string]any{
		"port":         "8080",
		"dsl_dir":      "dsl",
		"enums_dir":    "reference/enums",
		"db_url":       "",
		"auto_migrate": false,
		"blob_driver":  "local",
		"files_root":   "uploads",
		"log_level":    "info",
		"log_file":     "",
		"debug":        false,
	}
}

// RegisterFlags описывает флаги, которыми можно перекрыть конфиг.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "crudbind.yaml", "Path to config YAML")
	fs.String("port", "8080", "HTTP port")
	fs.String("dsl-dir", "dsl", "Path to DSL directory")
	fs.String("enums-dir", "reference/enums", "Path to enums directory")
	fs.String("db-url", "", "Postgres URL or SQLite path (empty = in-memory SQLite)")
	fs.Bool("auto-migrate", false, "Create missing tables and columns on start")
	fs.String("blob-driver", "local", "Blob driver")
	fs.String("files-root", "uploads", "Local files root")
	fs.String("log-level", "info", "Log level (debug|info|warn|error)")
	fs.String("log-file", "", "Log file (rotated); empty = stderr")
	fs.Bool("debug", false, "Return executed SQL in responses")
}

// Load: дефолты < YAML-файл < переменные CRUDBIND_* < явно заданные флаги.
// Отсутствующий файл не ошибка.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if flags != nil && flags.Changed("config") {
		path, _ = flags.GetString("config")
	}
	if path != "" {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	// CRUDBIND_DB_URL -> db_url
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.DBURL = strings.TrimSpace(cfg.DBURL)
	return cfg, nil
}
