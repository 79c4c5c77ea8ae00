package config

import (
	"fmt"
	"time"
)

// BaseConfig is the console's whole configuration tree. Loaded by go-config
// from config/app.json with environment overrides.
type BaseConfig struct {
	Server   Server   `json:"server" koanf:"server"`
	Platform Platform `json:"platform" koanf:"platform"`
	Store    Store    `json:"store" koanf:"store"`
	Auth     Auth     `json:"auth" koanf:"auth"`
	Mock     Mock     `json:"mock" koanf:"mock"`
}

type Server struct {
	Addr string `json:"addr" koanf:"addr"`
}

type Platform struct {
	// URL is the marketplace REST API base, e.g. https://api.example.com
	URL               string `json:"url" koanf:"url"`
	TimeoutExpression string `json:"timeout" koanf:"timeout"`
}

type Store struct {
	Driver                string `json:"driver" koanf:"driver"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	Debug                 bool   `json:"debug" koanf:"debug"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
	// Ephemeral keeps the credential in memory only: no database, a restart
	// signs the operator out.
	Ephemeral bool `json:"ephemeral" koanf:"ephemeral"`
}

type Auth struct {
	LoginPath        string `json:"login_path" koanf:"login_path"`
	RejectedRouteKey string `json:"rejected_route_key" koanf:"rejected_route_key"`
}

// Mock enables the embedded stand-in for the marketplace platform: handy in
// development and demos, required by nothing in production.
type Mock struct {
	Enabled    bool   `json:"enabled" koanf:"enabled"`
	Addr       string `json:"addr" koanf:"addr"`
	DSN        string `json:"dsn" koanf:"dsn"`
	SigningKey string `json:"signing_key" koanf:"signing_key"`
	TokenTTL   int    `json:"token_ttl_hours" koanf:"token_ttl_hours"`
}

func (a BaseConfig) Validate() error {
	if a.Platform.URL == "" && !a.Mock.Enabled {
		return fmt.Errorf("platform.url is required unless mock.enabled is set")
	}
	return nil
}

func (a BaseConfig) GetListenAddr() string {
	if a.Server.Addr == "" {
		return ":8572"
	}
	return a.Server.Addr
}

func (a BaseConfig) GetPlatformURL() string {
	return a.Platform.URL
}

func (a BaseConfig) GetStoreDSN() string {
	return a.Store.GetDSN()
}

func (a BaseConfig) GetLoginPath() string {
	if a.Auth.LoginPath == "" {
		return "/login"
	}
	return a.Auth.LoginPath
}

func (a BaseConfig) GetRejectedRouteKey() string {
	if a.Auth.RejectedRouteKey == "" {
		return "carbonview_rejected_route"
	}
	return a.Auth.RejectedRouteKey
}

func (a BaseConfig) GetServer() Server {
	return a.Server
}

func (a BaseConfig) GetPlatform() Platform {
	return a.Platform
}

func (a BaseConfig) GetStore() Store {
	return a.Store
}

func (a BaseConfig) GetMock() Mock {
	return a.Mock
}

func (p Platform) GetTimeout() time.Duration {
	if p.TimeoutExpression == "" {
		return 15 * time.Second
	}
	dur, err := time.ParseDuration(p.TimeoutExpression)
	if err != nil {
		panic(fmt.Sprintf("unable to parse time: expr %s", p.TimeoutExpression))
	}
	return dur
}

func (s Store) GetDriver() string {
	if s.Driver == "" {
		return "sqlite"
	}
	return s.Driver
}

func (s Store) GetDSN() string {
	if s.DSN == "" {
		return "file:carbonview.db?cache=shared"
	}
	return s.DSN
}

func (s Store) GetEphemeral() bool {
	return s.Ephemeral
}

func (s Store) GetDebug() bool {
	return s.Debug
}

func (s Store) GetPingTimeout() time.Duration {
	if s.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(s.PingTimeoutExpression)
	if err != nil {
		panic(fmt.Sprintf("unable to parse time: expr %s", s.PingTimeoutExpression))
	}
	return dur
}

func (m Mock) GetAddr() string {
	if m.Addr == "" {
		return "127.0.0.1:8573"
	}
	return m.Addr
}

func (m Mock) GetDSN() string {
	if m.DSN == "" {
		return "file:carbonview_mock.db?cache=shared"
	}
	return m.DSN
}

func (m Mock) GetSigningKey() string {
	if m.SigningKey == "" {
		return "carbonview-dev-signing-key"
	}
	return m.SigningKey
}

func (m Mock) GetTokenTTL() int {
	if m.TokenTTL <= 0 {
		return 24
	}
	return m.TokenTTL
}
