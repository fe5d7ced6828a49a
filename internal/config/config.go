package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Default configuration values (production)
const (
	DefaultDomain = "spatialmeet.app"
	DefaultSTUN   = "stun:stun.l.google.com:19302"

	DefaultCoalesceWindow    = 50 * time.Millisecond
	DefaultReconnectAttempts = 5
)

// Config holds application configuration
type Config struct {
	// Domain is the SpatialMeet server domain
	Domain string

	// APIBaseURL and WebSocketURL are constructed from domain
	APIBaseURL   string
	WebSocketURL string

	// Insecure switches to http/ws for local development
	Insecure bool

	// CoalesceWindow bounds outbound state sends to one per window
	CoalesceWindow time.Duration

	// ReconnectAttempts caps transport redials after an unexpected disconnect
	ReconnectAttempts int

	// ICE servers for peer voice links
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// envConfig is the environment layer, parsed by caarlos0/env
type envConfig struct {
	Domain            string        `env:"SPATIALMEET_DOMAIN"`
	Insecure          bool          `env:"SPATIALMEET_INSECURE"`
	CoalesceWindow    time.Duration `env:"SPATIALMEET_COALESCE_WINDOW"`
	ReconnectAttempts int           `env:"SPATIALMEET_RECONNECT_ATTEMPTS" envDefault:"-1"`
	STUNServer        string        `env:"STUN_SERVER"`
	TURNServer        string        `env:"TURN_SERVER"`
	TURNUser          string        `env:"TURN_USERNAME"`
	TURNPass          string        `env:"TURN_PASSWORD"`
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain   string
	Insecure bool
	STUN     string
	TURN     string
	TURNUser string
	TURNPass string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	domain := opts.Domain
	if domain == "" {
		domain = e.Domain
	}
	if domain == "" {
		domain = DefaultDomain
	}

	stunServer := opts.STUN
	if stunServer == "" {
		stunServer = e.STUNServer
	}
	if stunServer == "" {
		stunServer = DefaultSTUN
	}

	turnServer := opts.TURN
	if turnServer == "" {
		turnServer = e.TURNServer
	}

	turnUser := opts.TURNUser
	if turnUser == "" {
		turnUser = e.TURNUser
	}

	turnPass := opts.TURNPass
	if turnPass == "" {
		turnPass = e.TURNPass
	}

	coalesce := e.CoalesceWindow
	if coalesce <= 0 {
		coalesce = DefaultCoalesceWindow
	}

	reconnects := e.ReconnectAttempts
	if reconnects < 0 {
		reconnects = DefaultReconnectAttempts
	}

	insecure := opts.Insecure || e.Insecure

	httpScheme, wsScheme := "https", "wss"
	if insecure {
		httpScheme, wsScheme = "http", "ws"
	}

	return &Config{
		Domain:            domain,
		APIBaseURL:        fmt.Sprintf("%s://%s/api", httpScheme, domain),
		WebSocketURL:      fmt.Sprintf("%s://%s/api/ws", wsScheme, domain),
		Insecure:          insecure,
		CoalesceWindow:    coalesce,
		ReconnectAttempts: reconnects,
		STUNServer:        stunServer,
		TURNServer:        turnServer,
		TURNUser:          turnUser,
		TURNPass:          turnPass,
	}, nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
