// Package config loads the server settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file and the process environment. Command line flags are applied by
// the caller on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mutualangaco/sitio/internal/validation"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr               string   `yaml:"addr"`
	SiteDir            string   `yaml:"site_dir"`
	NewsFile           string   `yaml:"news_file"`
	ImageDir           string   `yaml:"image_dir"`
	ContactLogDir      string   `yaml:"contact_log_dir"`
	MaxRequestBodySize int64    `yaml:"max_request_body_size"`
	CORSOrigins        []string `yaml:"cors_origins"`
	Subjects           []string `yaml:"subjects"`
	Log                Log      `yaml:"log"`
	Org                Org      `yaml:"org"`
	SMTP               SMTP     `yaml:"smtp"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Org is the organization shown in emails and the addresses that receive
// contact submissions.
type Org struct {
	Name        string   `yaml:"name"`
	Destination string   `yaml:"destination"`
	CC          []string `yaml:"cc"`
	Phone       string   `yaml:"phone"`
	WhatsApp    string   `yaml:"whatsapp"`
	Email       string   `yaml:"email"`
	Address     string   `yaml:"address"`
}

type SMTP struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	TLS      string        `yaml:"tls"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Addr:               ":8080",
		SiteDir:            "public",
		NewsFile:           "data/noticias.json",
		ImageDir:           "assets/imagenes/noticias",
		ContactLogDir:      "logs",
		MaxRequestBodySize: 8 << 20,
		CORSOrigins:        []string{"*"},
		Subjects:           append([]string(nil), validation.DefaultSubjects...),
		Log:                Log{Level: "INFO", Format: "json"},
		Org: Org{
			Name:        "Mutual Angaco",
			Destination: "info@mutualangaco.com.ar",
			CC:          []string{"contacto@mutualangaco.com.ar"},
			Phone:       "+54 264 412-3456",
			WhatsApp:    "+54 9 264 412-3456",
			Email:       "info@mutualangaco.com.ar",
			Address:     "Av. Libertador 1234, Angaco, San Juan",
		},
		SMTP: SMTP{
			Host:     "localhost",
			Port:     587,
			Username: "contacto@mutualangaco.com.ar",
			TLS:      "mandatory",
			Timeout:  15 * time.Second,
		},
	}
}

// Load reads yamlPath (skipped if empty or missing) and envFile (skipped if
// missing) over the defaults, then applies the environment.
func Load(yamlPath, envFile string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", yamlPath, err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Addr = getEnv("SITIO_ADDR", c.Addr)
	c.SiteDir = getEnv("SITIO_SITE_DIR", c.SiteDir)
	c.NewsFile = getEnv("SITIO_NEWS_FILE", c.NewsFile)
	c.ImageDir = getEnv("SITIO_IMAGE_DIR", c.ImageDir)
	c.ContactLogDir = getEnv("SITIO_CONTACT_LOG_DIR", c.ContactLogDir)
	c.CORSOrigins = getEnvList("SITIO_CORS_ORIGINS", c.CORSOrigins)
	c.Subjects = getEnvList("SITIO_SUBJECTS", c.Subjects)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Org.Name = getEnv("ORG_NAME", c.Org.Name)
	c.Org.Destination = getEnv("EMAIL_DESTINO", c.Org.Destination)
	c.Org.CC = getEnvList("EMAIL_COPIA", c.Org.CC)

	c.SMTP.Host = getEnv("SMTP_HOST", c.SMTP.Host)
	c.SMTP.Username = getEnv("SMTP_USERNAME", c.SMTP.Username)
	c.SMTP.Password = getEnv("SMTP_PASSWORD", c.SMTP.Password)
	c.SMTP.TLS = getEnv("SMTP_SECURE", c.SMTP.TLS)

	var err error
	if c.MaxRequestBodySize, err = getEnvInt("SITIO_MAX_REQUEST_BODY_SIZE", c.MaxRequestBodySize); err != nil {
		return err
	}
	port, err := getEnvInt("SMTP_PORT", int64(c.SMTP.Port))
	if err != nil {
		return err
	}
	c.SMTP.Port = int(port)
	if v := os.Getenv("SMTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SMTP_TIMEOUT: %w", err)
		}
		c.SMTP.Timeout = d
	}
	return nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	if c.NewsFile == "" {
		errs = append(errs, errors.New("news_file is empty"))
	}
	if c.MaxRequestBodySize < 0 {
		errs = append(errs, errors.New("max_request_body_size is negative"))
	}
	if c.Org.Name == "" {
		errs = append(errs, errors.New("org.name is empty"))
	}
	if _, err := mail.ParseAddress(c.Org.Destination); err != nil {
		errs = append(errs, fmt.Errorf("org.destination: %w", err))
	}
	for _, cc := range c.Org.CC {
		if _, err := mail.ParseAddress(cc); err != nil {
			errs = append(errs, fmt.Errorf("org.cc %q: %w", cc, err))
		}
	}
	if c.SMTP.Host == "" {
		errs = append(errs, errors.New("smtp.host is empty"))
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp.port %d out of range", c.SMTP.Port))
	}
	switch strings.ToLower(c.SMTP.TLS) {
	case "mandatory", "opportunistic", "ssl", "none":
	default:
		errs = append(errs, fmt.Errorf("smtp.tls %q: want mandatory, opportunistic, ssl or none", c.SMTP.TLS))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
