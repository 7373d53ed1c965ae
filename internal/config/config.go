// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the YAML configuration of the optic bridge server.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/optic/pkg/hal"
)

// Device protocols
const (
	ProtocolVISCA = "visca"
	ProtocolITL   = "itl"
	ProtocolSim   = "sim"
)

// Transport types
const (
	TransportSerial    = "serial"
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Log     LogConfig      `yaml:"log"`
	Server  ServerConfig   `yaml:"server"`
	Redis   RedisConfig    `yaml:"redis"`
	Devices []DeviceConfig `yaml:"devices"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Listen      string        `yaml:"listen"`
	Metrics     bool          `yaml:"metrics"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
	History  int64  `yaml:"history"`
}

type DeviceConfig struct {
	ID         string          `yaml:"id"`
	Protocol   string          `yaml:"protocol"`
	Transport  TransportConfig `yaml:"transport"`
	ZoomRange  hal.Range       `yaml:"zoom_range"`
	FocusRange hal.Range       `yaml:"focus_range"`
	ITL        ITLConfig       `yaml:"itl"`
	VISCA      ViscaConfig     `yaml:"visca"`
}

type TransportConfig struct {
	Type        string        `yaml:"type"`
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	Host        string        `yaml:"host"`
	URL         string        `yaml:"url"`
	Username    string        `yaml:"username"`
	NoSSLVerify bool          `yaml:"no_ssl_verify"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type ITLConfig struct {
	Source      uint8 `yaml:"source"`
	Destination uint8 `yaml:"destination"`
}

type ViscaConfig struct {
	Broadcast bool  `yaml:"broadcast"`
	Address   uint8 `yaml:"address"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Listen:      ":8080",
			Metrics:     true,
			CallTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "optic_events",
			History: 1000,
		},
	}
}

// Load reads path, overlays it on Default and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Devices {
		t := &c.Devices[i].Transport
		if t.Type == TransportSerial && t.Baud == 0 {
			t.Baud = 9600
		}
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate rejects unknown protocols and transports, duplicate ids and
// unusable ranges
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format %q (want text or json)", c.Log.Format)
	}
	if c.Server.Listen == "" {
		return invalid("server.listen is empty")
	}
	if c.Server.CallTimeout <= 0 {
		return invalid("server.call_timeout must be positive")
	}
	if c.Redis.Enabled && (c.Redis.Addr == "" || c.Redis.Channel == "") {
		return invalid("redis.addr and redis.channel are required when redis is enabled")
	}

	seen := make(map[string]bool, len(c.Devices))
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.ID == "" {
			return invalid("devices[%d]: id is empty", i)
		}
		if seen[d.ID] {
			return invalid("devices[%d]: duplicate id %q", i, d.ID)
		}
		seen[d.ID] = true

		if err := d.Validate(); err != nil {
			return fmt.Errorf("device %q: %w", d.ID, err)
		}
	}
	return nil
}

// Validate checks one device entry
func (d *DeviceConfig) Validate() error {
	switch d.Protocol {
	case ProtocolVISCA, ProtocolITL:
		if err := d.Transport.Validate(); err != nil {
			return err
		}
	case ProtocolSim:
	default:
		return invalid("unknown protocol %q", d.Protocol)
	}

	for name, r := range map[string]hal.Range{"zoom_range": d.ZoomRange, "focus_range": d.FocusRange} {
		if r == (hal.Range{}) {
			continue
		}
		if !r.Valid() {
			return invalid("%s %s is inverted or empty", name, r)
		}
		if d.Protocol == ProtocolVISCA && r.Max > math.MaxUint16 {
			return invalid("%s %s exceeds the 16-bit VISCA position", name, r)
		}
	}

	if d.VISCA.Address > 7 {
		return invalid("visca.address %d (want 1-7, or 0 to assign)", d.VISCA.Address)
	}
	return nil
}

// Validate checks the transport fields the selected type needs
func (t *TransportConfig) Validate() error {
	switch t.Type {
	case TransportSerial:
		if t.Port == "" {
			return invalid("serial transport needs a port")
		}
		if t.Baud <= 0 {
			return invalid("baud %d", t.Baud)
		}
	case TransportTCP:
		if t.Host == "" {
			return invalid("tcp transport needs a host")
		}
	case TransportWebSocket:
		if t.URL == "" {
			return invalid("websocket transport needs a url")
		}
	default:
		return invalid("unknown transport %q", t.Type)
	}
	if t.ReadTimeout < 0 {
		return invalid("negative read_timeout")
	}
	return nil
}
