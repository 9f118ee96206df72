package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/subcourse"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

type Config struct {
	Server struct {
		Port       string `toml:"port" validate:"required"`
		EnableAuth bool   `toml:"enable_auth"`
	} `toml:"server"`

	Auth struct {
		RedisURL         string  `toml:"redis_url" validate:"required"`
		TokenHeader      string  `toml:"token_header"`
		TokenKeyTemplate string  `toml:"token_key_template"`
		SessionTTL       string  `toml:"session_ttl"`
		SiteAdmins       []int64 `toml:"site_admins"`
	} `toml:"auth"`

	API struct {
		UserIDHeader    string         `toml:"user_id_header" validate:"required"`
		LangHeader      string         `toml:"lang_header"`
		RequiredHeaders []HeaderConfig `toml:"required_headers"`
	} `toml:"api"`

	Database struct {
		DSN           string `toml:"dsn" validate:"required"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Moodle struct {
		WWWRoot   string `toml:"wwwroot" validate:"omitempty,url"`
		WSURL     string `toml:"ws_url" validate:"omitempty,url"`
		WSToken   string `toml:"ws_token" validate:"required_with=WSURL"`
		WSTimeout string `toml:"ws_timeout"`
	} `toml:"moodle"`

	Enrol struct {
		AutoEnrol      bool  `toml:"auto_enrol"`
		HideEnrolled   bool  `toml:"hide_enrolled"`
		AutoUnhide     bool  `toml:"auto_unhide"`
		FallbackRoleID int64 `toml:"fallback_role_id" validate:"gte=0"`
	} `toml:"enrol"`

	Tasks struct {
		Enabled []string `toml:"enabled"`
		Timeout string   `toml:"timeout"`
		Seed    int64    `toml:"seed"`
	} `toml:"tasks"`

	Capabilities struct {
		Grants map[string][]string `toml:"grants"`
	} `toml:"capabilities"`

	Display struct {
		TimestampFormat string `toml:"timestamp_format"`
		DefaultLang     string `toml:"default_lang"`
	} `toml:"display"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return ParseConfig(path, data)
}

func ParseConfig(path string, data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	config.applyDefaults()

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	for _, field := range []struct{ name, value string }{
		{"auth.session_ttl", config.Auth.SessionTTL},
		{"moodle.ws_timeout", config.Moodle.WSTimeout},
		{"tasks.timeout", config.Tasks.Timeout},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", field.name, field.value, err)
		}
	}
	if _, err := config.RoleGrants(); err != nil {
		return nil, err
	}

	logger.Debug.Printf("Loaded enrol config: %+v", config.Enrol)

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.API.LangHeader == "" {
		c.API.LangHeader = "X-Moodle-Lang"
	}
	if c.Auth.TokenHeader == "" {
		c.Auth.TokenHeader = "Authorization"
	}
	if c.Auth.TokenKeyTemplate == "" {
		c.Auth.TokenKeyTemplate = "auth:{user}"
	}
	if c.Auth.SessionTTL == "" {
		c.Auth.SessionTTL = "24h"
	}
	if c.Moodle.WSTimeout == "" {
		c.Moodle.WSTimeout = "30s"
	}
	if c.Tasks.Timeout == "" {
		c.Tasks.Timeout = "30m"
	}
	if c.Display.DefaultLang == "" {
		c.Display.DefaultLang = "en"
	}
	if c.Display.TimestampFormat == "" {
		c.Display.TimestampFormat = "2006-01-02 15:04"
	}
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = "./migrations"
	}
}

func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Auth.SessionTTL)
	return d
}

func (c *Config) WSTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Moodle.WSTimeout)
	return d
}

func (c *Config) TaskTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Tasks.Timeout)
	return d
}

// RoleGrants converts the role id keyed table, nil when none is configured.
func (c *Config) RoleGrants() (map[int64][]string, error) {
	if len(c.Capabilities.Grants) == 0 {
		return nil, nil
	}
	grants := make(map[int64][]string, len(c.Capabilities.Grants))
	for key, caps := range c.Capabilities.Grants {
		roleID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid role id %q in capabilities.grants: %w", key, err)
		}
		grants[roleID] = caps
	}
	return grants, nil
}

func (c *Config) ModuleConfig() subcourse.Config {
	return subcourse.Config{
		WWWRoot:         c.Moodle.WWWRoot,
		AutoEnrol:       c.Enrol.AutoEnrol,
		HideEnrolled:    c.Enrol.HideEnrolled,
		AutoUnhide:      c.Enrol.AutoUnhide,
		FallbackRoleID:  c.Enrol.FallbackRoleID,
		TimestampFormat: c.Display.TimestampFormat,
	}
}

func (c *Config) IsSiteAdmin(userID int64) bool {
	for _, id := range c.Auth.SiteAdmins {
		if id == userID {
			return true
		}
	}
	return false
}
