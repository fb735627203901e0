package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

// Config points the suite at a running server. Tests skip when addresses are unset.
type Config struct {
	HTTPAddr string `envconfig:"MESSENGER_HTTP_ADDR"`
	GRPCAddr string `envconfig:"MESSENGER_GRPC_ADDR"`
	// Must match the server's JWT_SECRET so the suite can mint tokens
	JWTSecret string `envconfig:"JWT_SECRET"`
	// E2E_DEBUG_JSON dumps gRPC request/response bodies
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized step headers
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

func (c Config) Live() bool {
	return c.HTTPAddr != "" && c.GRPCAddr != "" && c.JWTSecret != ""
}
