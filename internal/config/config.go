// Package config loads server and client settings from an optional .env file,
// an optional YAML file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the variable pointing at an optional YAML config file.
const FileEnv = "SKYCAST_CONFIG"

// Server configures cmd/server.
type Server struct {
	Port              string        `yaml:"port" validate:"required,numeric"`
	DatabaseURL       string        `yaml:"database_url" validate:"required"`
	BearerToken       string        `yaml:"bearer_token" validate:"required"`
	OpenWeatherAPIKey string        `yaml:"openweather_api_key"`
	OpenWeatherURL    string        `yaml:"openweather_url" validate:"required,url"`
	UpstreamTimeout   time.Duration `yaml:"upstream_timeout" validate:"gt=0"`
	UpstreamMaxTries  uint          `yaml:"upstream_max_tries" validate:"gte=1,lte=10"`
	UpstreamRPS       float64       `yaml:"upstream_rps" validate:"gte=0"`
}

// Client configures cmd/weather.
type Client struct {
	APIURL           string `yaml:"api_url" validate:"required,url"`
	BearerToken      string `yaml:"bearer_token" validate:"required"`
	RedisURL         string `yaml:"redis_url" validate:"required"`
	SessionNamespace string `yaml:"session_namespace" validate:"required"`
	UserID           string `yaml:"user_id"`
	LocationEnabled  bool   `yaml:"location_enabled"`
	GeolocationURL   string `yaml:"geolocation_url" validate:"omitempty,url"`
}

func defaultServer() *Server {
	return &Server{
		Port:             "8080",
		OpenWeatherURL:   "https://api.openweathermap.org/data/2.5/weather",
		UpstreamTimeout:  10 * time.Second,
		UpstreamMaxTries: 3,
		UpstreamRPS:      1,
	}
}

func defaultClient() *Client {
	return &Client{
		SessionNamespace: "weatherApp",
		LocationEnabled:  true,
		GeolocationURL:   "http://ip-api.com/json/",
	}
}

// LoadServer builds the server configuration.
func LoadServer() (*Server, error) {
	cfg := defaultServer()
	if err := load("server", cfg); err != nil {
		return nil, err
	}

	envString(&cfg.Port, "PORT")
	envString(&cfg.DatabaseURL, "DATABASE_URL")
	envString(&cfg.BearerToken, "BEARER_TOKEN")
	envString(&cfg.OpenWeatherAPIKey, "OPENWEATHER_API_KEY")
	envString(&cfg.OpenWeatherURL, "OPENWEATHER_URL")
	if err := errors.Join(
		envDuration(&cfg.UpstreamTimeout, "UPSTREAM_TIMEOUT"),
		envUint(&cfg.UpstreamMaxTries, "UPSTREAM_MAX_TRIES"),
		envFloat(&cfg.UpstreamRPS, "UPSTREAM_RPS"),
	); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient builds the CLI configuration.
func LoadClient() (*Client, error) {
	cfg := defaultClient()
	if err := load("client", cfg); err != nil {
		return nil, err
	}

	envString(&cfg.APIURL, "SKYCAST_API_URL")
	envString(&cfg.BearerToken, "BEARER_TOKEN")
	envString(&cfg.RedisURL, "REDIS_URL")
	envString(&cfg.SessionNamespace, "SESSION_NAMESPACE")
	envString(&cfg.UserID, "SKYCAST_USER_ID")
	envString(&cfg.GeolocationURL, "GEOLOCATION_URL")
	if err := envBool(&cfg.LocationEnabled, "LOCATION_ENABLED"); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// load reads .env into the environment (without overriding existing
// variables) and decodes the named section of the YAML file, if any, over cfg.
func load(section string, cfg any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	path := os.Getenv(FileEnv)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	node, ok := doc[section]
	if !ok {
		return nil
	}
	if err := node.Decode(cfg); err != nil {
		return fmt.Errorf("decoding %s section of %s: %w", section, path, err)
	}
	return nil
}

var validate = func() func(any) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	return func(cfg any) error {
		err := v.Struct(cfg)
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
	}
}()

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = d
	return nil
}

func envUint(dst *uint, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = uint(n)
	return nil
}

func envFloat(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = f
	return nil
}

func envBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = b
	return nil
}
