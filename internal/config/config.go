package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"crmgate/internal/postgrest"
)

const EnvPrefix = "CRMGATE"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	PostgREST PostgRESTConfig `mapstructure:"postgrest"`
	Query     QueryConfig     `mapstructure:"query"`
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`

	// Папка YAML-справочников первичных ключей (пусто — не читаем)
	KeysDir string `mapstructure:"keys_dir"`
	// Ключи прямо в конфиге; перекрывают справочники и интроспекцию
	PrimaryKeys map[string][]string `mapstructure:"primary_keys" validate:"dive,keys,required,endkeys,min=1,dive,required"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required,numeric"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

type PostgRESTConfig struct {
	URL    string `mapstructure:"url" validate:"required,url"`
	Schema string `mapstructure:"schema"`
}

type QueryConfig struct {
	DefaultListOp string `mapstructure:"default_list_op" validate:"list_op"`
	NullsPolicy   string `mapstructure:"nulls_policy" validate:"nulls_policy"`
}

// DBConfig: откуда читать первичные ключи (интроспекция). URL пустой — не ходим в БД.
type DBConfig struct {
	URL    string `mapstructure:"url" validate:"omitempty,url"`
	Schema string `mapstructure:"schema"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=console json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("postgrest.url", "http://localhost:3000")
	v.SetDefault("postgrest.schema", "")
	v.SetDefault("query.default_list_op", string(postgrest.OpEq))
	v.SetDefault("query.nulls_policy", string(postgrest.DefaultNullsPolicy))
	v.SetDefault("db.url", "")
	v.SetDefault("db.schema", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("keys_dir", "")
}

// флаг cobra → ключ viper
var flagKeys = map[string]string{
	"port":          "server.port",
	"postgrest-url": "postgrest.url",
	"schema":        "postgrest.schema",
	"keys-dir":      "keys_dir",
	"db-url":        "db.url",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-file":      "log.file",
	"nulls":         "query.nulls_policy",
	"default-op":    "query.default_list_op",
}

// Load собирает конфиг: дефолты < файл < CRMGATE_* < флаги.
// path пустой — ищем crmgate.{yaml,json} в . и ./config, отсутствие файла не ошибка.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("crmgate")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// IntrospectSchema: схема для чтения ключей из БД.
func (c *Config) IntrospectSchema() string {
	if c.DB.Schema != "" {
		return c.DB.Schema
	}
	if c.PostgREST.Schema != "" {
		return c.PostgREST.Schema
	}
	return "public"
}

// InlineKeys: ключи из секции primary_keys.
func (c *Config) InlineKeys() postgrest.PrimaryKeyMap {
	out := make(postgrest.PrimaryKeyMap, len(c.PrimaryKeys))
	for name, cols := range c.PrimaryKeys {
		out[name] = append(postgrest.PrimaryKey(nil), cols...)
	}
	return out
}

func (c *Config) DefaultListOp() postgrest.Operator {
	return postgrest.Operator(c.Query.DefaultListOp)
}

func (c *Config) NullsPolicy() postgrest.NullsPolicy {
	p, _ := postgrest.ParseNullsPolicy(c.Query.NullsPolicy)
	return p
}
