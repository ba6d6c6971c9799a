package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment
// variables with the SIPLOC_ prefix.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// DNSServers is an optional list of nameservers in ip:port format.
	// When empty, /etc/resolv.conf is used.
	DNSServers []string `koanf:"dns_servers" validate:"omitempty,dive,ip_port"`

	// QueryTimeout is the per-exchange DNS timeout in seconds.
	QueryTimeout uint `koanf:"query_timeout" validate:"required,gte=1,lte=60"`

	// Transports are the transport protocols this endpoint supports,
	// in probe order.
	Transports []string `koanf:"transports" validate:"required,dive,oneof=udp tcp tls sctp ws wss"`

	// LocalHostnames are hostnames that belong to this endpoint and
	// bypass the DNS SRV machinery.
	LocalHostnames []string `koanf:"local_hostnames" validate:"omitempty,dive,hostname_rfc1123"`
}

// DEFAULT_APP_CONFIG defines the defaults layered under the
// environment: production logging, system nameservers, and the two
// transports every SIP endpoint speaks.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:          "prod",
	LogLevel:     "info",
	QueryTimeout: 5,
	Transports:   []string{"udp", "tcp"},
}

// validIPPort reports whether the field value is a valid "IP:port"
// pair.
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip, port, err := net.SplitHostPort(addr)
	if err != nil || ip == "" || port == "" {
		return false
	}
	if net.ParseIP(ip) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0 && portNum < 65536
}

// envLoader loads SIPLOC_-prefixed environment variables, lowercasing
// keys and splitting space- or comma-separated values into lists. A
// package variable so tests can substitute it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "SIPLOC_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "SIPLOC_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader layers DEFAULT_APP_CONFIG into the koanf instance.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation installs the custom ip_port rule. A package
// variable so tests can substitute it.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("ip_port", validIPPort)
}

// Load parses environment variables into an AppConfig, applying
// defaults and running validation.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
