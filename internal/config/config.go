package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	Registry   RegistryConfig   `yaml:"registry"`
	CORS       CORSConfig       `yaml:"cors"`
	Admin      AdminConfig      `yaml:"admin"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
	StreamName    string `yaml:"stream_name"`
}

// BlockchainConfig blockchain network configuration
type BlockchainConfig struct {
	Networks map[string]NetworkConfig `yaml:"networks"`
}

// NetworkConfig configuration of one network
type NetworkConfig struct {
	ChainID      int      `yaml:"chainId"`
	Name         string   `yaml:"name"`
	RPCEndpoints []string `yaml:"rpcEndpoints"`
	Enabled      bool     `yaml:"enabled"`
}

// RegistryConfig registry bootstrap configuration. Owner and operator are
// identities, not secrets: the owner gates handler registration, the
// operator (the Discord bot's wallet) gates result submission and fee
// withdrawal.
type RegistryConfig struct {
	Network         string `yaml:"network"`         // key into blockchain.networks (default base-sepolia)
	OwnerAddress    string `yaml:"ownerAddress"`    // initial registry owner
	OperatorAddress string `yaml:"operatorAddress"` // authorized bot operator
	HandlerAddress  string `yaml:"handlerAddress"`  // QuizHandler ledger account address
	FactoryAddress  string `yaml:"factoryAddress"`  // MotherFactory ledger account address
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

// AdminConfig admin API access control configuration
type AdminConfig struct {
	AllowedIPs []string `yaml:"allowedIPs"` // allowed IP addresses or CIDR ranges
}

var AppConfig *Config

// LoadConfig loads the configuration file, preferring config.local.yaml when
// present, then applies environment variable overrides.
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)

	if config.Registry.Network == "" {
		config.Registry.Network = "base-sepolia"
	}

	if config.Registry.OperatorAddress == "" {
		log.Printf("⚠️ registry.operatorAddress not configured - result submission will be rejected")
	}

	log.Printf("✅ Configuration loaded from %s (network=%s)", configPath, config.Registry.Network)

	AppConfig = &config
	return nil
}

// overrideFromEnv applies environment variable overrides
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}
	if stream := os.Getenv("NATS_STREAM_NAME"); stream != "" {
		config.NATS.StreamName = stream
	}

	if owner := os.Getenv("REGISTRY_OWNER_ADDRESS"); owner != "" {
		config.Registry.OwnerAddress = owner
	}
	if operator := os.Getenv("BOT_OPERATOR_ADDRESS"); operator != "" {
		config.Registry.OperatorAddress = operator
	}
	if network := os.Getenv("REGISTRY_NETWORK"); network != "" {
		config.Registry.Network = network
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

// GetNetworkConfig returns the configuration of a named network
func GetNetworkConfig(networkName string) (*NetworkConfig, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	network, exists := AppConfig.Blockchain.Networks[networkName]
	if !exists {
		return nil, fmt.Errorf("network %s not found in config", networkName)
	}

	if !network.Enabled {
		return nil, fmt.Errorf("network %s is disabled", networkName)
	}

	return &network, nil
}
