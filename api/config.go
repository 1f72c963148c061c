package api

import (
	"crypto/ed25519"
)

type ServerConfig struct {
	Auth   AuthConfig
	DB     DBConfig
	Redis  RedisConfig
	Ledger LedgerConfig
}

type AuthConfig struct {
	// PublicKey 是 Auth Service 簽發 access token 所用金鑰的公鑰
	PublicKey ed25519.PublicKey
	Issuer    string
	Audience  string
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	Bids string
}

type LedgerConfig struct {
	// Retries 是每個工作單元在回報 Transient 前的衝突重試次數
	Retries int
}
