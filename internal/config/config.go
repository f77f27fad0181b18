package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Chain    ChainConfig    `json:"chain"`
	IPFS     IPFSConfig     `json:"ipfs"`
	Storage  StorageConfig  `json:"storage"`
	Search   SearchConfig   `json:"search"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"db_name"`
	SSLMode        string `json:"ssl_mode"`
	MaxConnections int    `json:"max_connections"`
	MaxIdleConns   int    `json:"max_idle_conns"`
}

// ChainConfig holds the JSON-RPC endpoint and token contract the marketplace
// settles against. PrivateKey is optional; without it the gateway is read-only.
type ChainConfig struct {
	RPCURL        string `json:"rpc_url"`
	TokenContract string `json:"token_contract"`
	PrivateKey    string `json:"private_key"`
}

// IPFSConfig holds the IPFS HTTP API endpoint
type IPFSConfig struct {
	NodeURL string `json:"node_url"`
}

// StorageConfig holds the S3 bucket used for claim evidence
type StorageConfig struct {
	Region string `json:"region"`
	Bucket string `json:"bucket"`
}

// SearchConfig holds the Elasticsearch endpoints for listing search
type SearchConfig struct {
	Addresses []string `json:"addresses"`
	Index     string   `json:"index"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "carbon_marketplace",
			SSLMode: "disable",
		},
		IPFS: IPFSConfig{
			NodeURL: "localhost:5001",
		},
		Search: SearchConfig{
			Index: "marketplace-listings",
		},
		Security: SecurityConfig{
			TokenTTL: 24 * time.Hour,
		},
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if rpc := os.Getenv("CHAIN_RPC_URL"); rpc != "" {
		config.Chain.RPCURL = rpc
	}
	if token := os.Getenv("CHAIN_TOKEN_CONTRACT"); token != "" {
		config.Chain.TokenContract = token
	}
	if key := os.Getenv("CHAIN_PRIVATE_KEY"); key != "" {
		config.Chain.PrivateKey = key
	}
	if node := os.Getenv("IPFS_NODE_URL"); node != "" {
		config.IPFS.NodeURL = node
	}
	if bucket := os.Getenv("STORAGE_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if region := os.Getenv("STORAGE_REGION"); region != "" {
		config.Storage.Region = region
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
}

// GetDatabaseDSN returns the database connection string
func (c *DatabaseConfig) GetDatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
