// Package config parses the command line and environment of the lolstats CLI.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sternrassler/lolstats/pkg/cache"
	"github.com/Sternrassler/lolstats/pkg/logging"
	"github.com/Sternrassler/lolstats/pkg/riot"
)

// Environment variables read as fallbacks for unset flags.
const (
	EnvAPIKey   = "RIOT_API_KEY"
	EnvBaseURL  = "RIOT_BASE_URL"
	EnvRedisURL = "REDIS_URL"
	EnvLogLevel = "LOG_LEVEL"
)

// Supported transports.
const (
	TransportHTTP     = "http"
	TransportFastHTTP = "fasthttp"
)

// ErrUsage marks errors caused by invalid arguments.
var ErrUsage = errors.New("usage error")

// Config holds the settings of one CLI invocation.
type Config struct {
	Name   string
	Tag    string
	APIKey string

	// Output is the data directory.
	Output string

	// Max is the number of most recent matches to look at.
	Max int

	// Queue optionally restricts matches to one queue id.
	Queue *int

	Route       riot.Route
	Concurrency int

	// JournalPath enables the SQLite run journal when set.
	JournalPath string

	// RedisAddr enables the identity cache and rate limit mirror when set.
	RedisAddr string
	CacheTTL  time.Duration

	Transport   string
	Timeout     time.Duration
	MetricsAddr string

	// BaseURL overrides the regional API hosts (tests, proxies).
	BaseURL string

	LogLevel  logging.LogLevel
	LogPretty bool
}

// optionalInt is a flag.Value for an int that may be absent.
type optionalInt struct {
	p **int
}

func (o optionalInt) String() string {
	if o.p == nil || *o.p == nil {
		return ""
	}
	return strconv.Itoa(**o.p)
}

func (o optionalInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	*o.p = &v
	return nil
}

// Load parses args. Unset values fall back to getenv, then to the dotenv
// file named by -env-file (".env" by default) when it exists. Flag errors
// and help output go to output. Invalid arguments yield an error wrapping
// ErrUsage; -h yields flag.ErrHelp.
func Load(args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	var route, logLevel, envFile string

	flags := flag.NewFlagSet("lolstats", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), "Usage: lolstats -n <name> -t <tag> [options]")
		fmt.Fprintln(flags.Output(), "\nDownloads the match history of a League of Legends player.")
		fmt.Fprintln(flags.Output(), "\nOptions:")
		flags.PrintDefaults()
	}

	for _, name := range []string{"n", "name"} {
		flags.StringVar(&cfg.Name, name, "", "player name (REQUIRED)")
	}
	for _, name := range []string{"t", "tag"} {
		flags.StringVar(&cfg.Tag, name, "", "player tag (REQUIRED)")
	}
	for _, name := range []string{"k", "key"} {
		flags.StringVar(&cfg.APIKey, name, "", "Riot API key (env "+EnvAPIKey+")")
	}
	for _, name := range []string{"o", "output"} {
		flags.StringVar(&cfg.Output, name, "data", "data directory")
	}
	for _, name := range []string{"m", "max"} {
		flags.IntVar(&cfg.Max, name, 40, "number of most recent matches to load")
	}
	for _, name := range []string{"q", "queue"} {
		flags.Var(optionalInt{&cfg.Queue}, name, "only load matches of this queue id (420 is ranked solo)")
	}
	for _, name := range []string{"r", "region"} {
		flags.StringVar(&route, name, string(riot.RouteAmericas), "regional routing value: americas, asia, europe or sea")
	}
	flags.IntVar(&cfg.Concurrency, "concurrency", 1, "match records fetched in parallel")
	flags.StringVar(&cfg.JournalPath, "journal", "", "SQLite file recording every run")
	flags.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for the identity cache (env "+EnvRedisURL+")")
	flags.DurationVar(&cfg.CacheTTL, "cache-ttl", cache.DefaultTTL, "identity cache TTL")
	flags.StringVar(&cfg.Transport, "transport", TransportHTTP, "HTTP transport: http or fasthttp")
	flags.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "per request timeout")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (env "+EnvLogLevel+")")
	flags.BoolVar(&cfg.LogPretty, "log-pretty", false, "human readable logs")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file read for unset environment variables")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, flags.Args())
	}

	env, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return env[key]
	}

	if cfg.APIKey == "" {
		cfg.APIKey = lookup(EnvAPIKey)
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = lookup(EnvRedisURL)
	}
	if logLevel == "" {
		logLevel = lookup(EnvLogLevel)
	}
	cfg.BaseURL = lookup(EnvBaseURL)

	if cfg.Route, err = riot.ParseRoute(route); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if cfg.LogLevel, err = logging.ParseLevel(logLevel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: -name is required", ErrUsage)
	case c.Tag == "":
		return fmt.Errorf("%w: -tag is required", ErrUsage)
	case c.APIKey == "":
		return fmt.Errorf("%w: -key or %s is required", ErrUsage, EnvAPIKey)
	case c.Output == "":
		return fmt.Errorf("%w: -output must not be empty", ErrUsage)
	case c.Max < 0:
		return fmt.Errorf("%w: -max must be >= 0 (got %d)", ErrUsage, c.Max)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: -concurrency must be >= 1 (got %d)", ErrUsage, c.Concurrency)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: -timeout must be positive", ErrUsage)
	case c.Transport != TransportHTTP && c.Transport != TransportFastHTTP:
		return fmt.Errorf("%w: unknown transport %q (want %s or %s)", ErrUsage, c.Transport, TransportHTTP, TransportFastHTTP)
	}
	return nil
}

// readEnvFile returns the variables of a dotenv file, or none if it does not exist.
func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}
