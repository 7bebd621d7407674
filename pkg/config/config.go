// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	keyListenHost         = "listen_host"
	keyPort               = "port"
	keyUpstreamURL        = "upstream_url"
	keyRequestTimeout     = "request_timeout"
	keyInsecureSkipVerify = "upstream_insecure"
	keyLogLevel           = "log_level"
	keyLogFormat          = "log_format"
	keyServerReadTimeout  = "server_read_timeout"
	keyServerWriteTimeout = "server_write_timeout"
	keyServerIdleTimeout  = "server_idle_timeout"
	keyGracefulShutdown   = "graceful_shutdown"
)

const (
	defaultListenHost         = "0.0.0.0"
	defaultPort               = "3000"
	defaultUpstreamURL        = "https://brave-search-mcp-server-production.up.railway.app"
	defaultLogLevel           = "info"
	defaultLogFormat          = "json"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerIdleTimeout  = 120 * time.Second
	defaultGracefulShutdown   = 10 * time.Second
	defaultRequestTimeout     = time.Duration(0)
	defaultServerWriteTimeout = time.Duration(0)
)

// envBindings maps configuration keys to the environment variables that feed
// them. PORT keeps its conventional unprefixed name.
var envBindings = map[string]string{
	keyListenHost:         "MCP_LISTEN_HOST",
	keyPort:               "PORT",
	keyUpstreamURL:        "MCP_UPSTREAM_URL",
	keyRequestTimeout:     "MCP_REQUEST_TIMEOUT",
	keyInsecureSkipVerify: "MCP_UPSTREAM_INSECURE",
	keyLogLevel:           "MCP_LOG_LEVEL",
	keyLogFormat:          "MCP_LOG_FORMAT",
	keyServerReadTimeout:  "MCP_SERVER_READ_TIMEOUT",
	keyServerWriteTimeout: "MCP_SERVER_WRITE_TIMEOUT",
	keyServerIdleTimeout:  "MCP_SERVER_IDLE_TIMEOUT",
	keyGracefulShutdown:   "MCP_GRACEFUL_SHUTDOWN",
}

// flagBindings maps command line flags onto configuration keys.
var flagBindings = map[string]string{
	"host":      keyListenHost,
	"port":      keyPort,
	"upstream":  keyUpstreamURL,
	"log-level": keyLogLevel,
}

// Config captures runtime settings for the translator.
type Config struct {
	ListenAddr string
	Upstream   *url.URL
	// RequestTimeout bounds a whole upstream exchange; zero waits for the
	// upstream stream to end on its own.
	RequestTimeout     time.Duration
	InsecureSkipVerify bool
	LogLevel           string
	// LogFormat is either "json" or "console".
	LogFormat               string
	ServerReadTimeout       time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	GracefulShutdownTimeout time.Duration
}

// RegisterFlags declares the command line overrides understood by Load.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("host", "", "interface to listen on (env MCP_LISTEN_HOST)")
	flags.String("port", "", "port to listen on (env PORT)")
	flags.String("upstream", "", "upstream MCP server URL (env MCP_UPSTREAM_URL)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env MCP_LOG_LEVEL)")
}

// BindFlags attaches flags registered by RegisterFlags to v so explicitly set
// flags take precedence over the environment.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagBindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load resolves configuration from v (flags, environment, defaults) and
// validates it.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	v.SetDefault(keyListenHost, defaultListenHost)
	v.SetDefault(keyPort, defaultPort)
	v.SetDefault(keyUpstreamURL, defaultUpstreamURL)
	v.SetDefault(keyLogLevel, defaultLogLevel)
	v.SetDefault(keyLogFormat, defaultLogFormat)

	upstreamRaw := strings.TrimSpace(v.GetString(keyUpstreamURL))
	if upstreamRaw == "" {
		return Config{}, errors.New("MCP_UPSTREAM_URL must not be empty")
	}
	upstream, err := url.Parse(upstreamRaw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MCP_UPSTREAM_URL: %w", err)
	}
	if !upstream.IsAbs() || upstream.Host == "" {
		return Config{}, errors.New("MCP_UPSTREAM_URL must be absolute (scheme://host)")
	}

	port := strings.TrimSpace(v.GetString(keyPort))
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %q: must be between 1 and 65535", port)
	}

	logFormat := strings.ToLower(strings.TrimSpace(v.GetString(keyLogFormat)))
	if logFormat != "json" && logFormat != "console" {
		return Config{}, fmt.Errorf("invalid MCP_LOG_FORMAT %q: want json or console", logFormat)
	}

	cfg := Config{
		ListenAddr:              net.JoinHostPort(getString(v, keyListenHost, defaultListenHost), port),
		Upstream:                upstream,
		RequestTimeout:          getDuration(v, keyRequestTimeout, defaultRequestTimeout),
		InsecureSkipVerify:      getBool(v, keyInsecureSkipVerify, false),
		LogLevel:                strings.ToLower(getString(v, keyLogLevel, defaultLogLevel)),
		LogFormat:               logFormat,
		ServerReadTimeout:       getDuration(v, keyServerReadTimeout, defaultServerReadTimeout),
		ServerWriteTimeout:      getDuration(v, keyServerWriteTimeout, defaultServerWriteTimeout),
		ServerIdleTimeout:       getDuration(v, keyServerIdleTimeout, defaultServerIdleTimeout),
		GracefulShutdownTimeout: getDuration(v, keyGracefulShutdown, defaultGracefulShutdown),
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, fallback string) string {
	if val := strings.TrimSpace(v.GetString(key)); val != "" {
		return val
	}
	return fallback
}

func getBool(v *viper.Viper, key string, fallback bool) bool {
	val := strings.TrimSpace(v.GetString(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(v.GetString(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
