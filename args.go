package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"artmego/api"
)

func ParseArgs() Args {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")

	// auth config
	pflag.String("auth-public-key", "", "base64 encoded ed25519 public key of the auth service")
	pflag.String("auth-issuer", "", "")
	pflag.String("auth-audience", "", "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")
	pflag.String("redis-key-prefix", "artmego:", "")

	// redis stream keys
	pflag.String("redis-stream-key-for-bids", "artmego-shared-bid-stream", "")

	// ledger config
	pflag.Int("ledger-retries", 3, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ARTMEGO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	publicKey, _ := base64.StdEncoding.DecodeString(viper.GetString("auth-public-key"))
	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			Auth: api.AuthConfig{
				PublicKey: ed25519.PublicKey(publicKey),
				Issuer:    viper.GetString("auth-issuer"),
				Audience:  viper.GetString("auth-audience"),
			},
			DB: api.DBConfig{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
			Redis: api.RedisConfig{
				Addr:      viper.GetString("redis-addr"),
				Password:  viper.GetString("redis-password"),
				DB:        viper.GetInt("redis-db"),
				KeyPrefix: viper.GetString("redis-key-prefix"),
				StreamKeys: api.RedisStreamKeys{
					Bids: viper.GetString("redis-stream-key-for-bids"),
				},
			},
			Ledger: api.LedgerConfig{
				Retries: viper.GetInt("ledger-retries"),
			},
		},
	}
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	return args.ServerURL != "" && len(args.ServerConfig.Auth.PublicKey) == ed25519.PublicKeySize && args.ServerConfig.DB.Host != ""
}
