package config

import (
	"time"

	"github.com/Mohsinsiddi/avagen/internal/assistant"
)

// Config holds all avagen settings.
type Config struct {
	AssistantURL   string `json:"assistant_url"`
	RequestTimeout int    `json:"request_timeout"` // seconds
	OwnerAddress   string `json:"owner_address"`   // EVM address seeded into tokenAllocations
	SubnetOwner    string `json:"subnet_owner"`    // P-Chain address
	Network        string `json:"network"`         // "fuji" | "mainnet"
	OutputDir      string `json:"output_dir"`
	TokenDecimals  uint   `json:"token_decimals"`

	// internal: config dir path used for Save()
	configDir string
}

// Timeout is the chat request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// ChatFile is the structure of chat.json.
type ChatFile struct {
	Messages []assistant.Message `json:"messages"`
}
