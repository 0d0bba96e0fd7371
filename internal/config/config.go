// Package config loads the environment-driven settings of a votela node.
//
// Command-line flags configure the node topology (addresses, intervals,
// database paths). Everything that is either a secret or a deployment
// endpoint is read from the process environment instead, optionally seeded
// from a .env file in the working directory.
package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"golang.org/x/xerrors"
)

// Config carries the environment-driven settings of a votela node.
type Config struct {
	// VoterSalt is mixed into every voter hash derivation. Changing it
	// changes every hash, so it must stay stable for the lifetime of a
	// deployment.
	VoterSalt string `env:"VOTELA_VOTER_SALT" env-default:"votela-dev-salt"`

	// TokenSecret signs the cast grants and the admin bearer tokens. When
	// empty, the web tier generates an ephemeral secret at startup.
	TokenSecret string `env:"VOTELA_TOKEN_SECRET"`

	// Mailer selects the one-time-password delivery implementation, either
	// "log" or "webhook".
	Mailer string `env:"VOTELA_MAILER" env-default:"log"`

	// MailerURL is the endpoint that receives the JSON mail payloads when
	// Mailer is "webhook".
	MailerURL string `env:"VOTELA_MAILER_URL"`

	// ChainRPC is the JSON-RPC endpoint of the mirror chain. Empty disables
	// the mirror.
	ChainRPC string `env:"VOTELA_CHAIN_RPC"`

	// ChainContract is the hex address of the mirror contract.
	ChainContract string `env:"VOTELA_CHAIN_CONTRACT"`

	// ChainKey is the hex-encoded private key of the mirror operator
	// account.
	ChainKey string `env:"VOTELA_CHAIN_KEY"`

	// ChainID is the id used for replay-protected mirror signatures.
	ChainID int64 `env:"VOTELA_CHAIN_ID" env-default:"1337"`

	// CORSOrigins lists the origins allowed to call the public API.
	CORSOrigins []string `env:"VOTELA_CORS_ORIGINS" env-default:"*"`
}

// DotEnv is the name of the optional environment file.
const DotEnv = ".env"

// Load returns the configuration read from the environment. A .env file in
// the working directory is loaded first when it exists, without overriding
// variables that are already set.
func Load() (Config, error) {
	_, err := os.Stat(DotEnv)
	if err == nil {
		err = godotenv.Load(DotEnv)
		if err != nil {
			return Config{}, xerrors.Errorf("couldn't load %s: %v", DotEnv, err)
		}
	}

	cfg := Config{}

	err = cleanenv.ReadEnv(&cfg)
	if err != nil {
		return Config{}, xerrors.Errorf("couldn't read environment: %v", err)
	}

	return cfg, nil
}
