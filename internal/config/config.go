package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the Payments Service
type Config struct {
	Port        string
	DatabaseURL string // empty means the in-memory ledger is used
	Payments    PaymentsConfig
	RabbitMQ    RabbitMQConfig
}

// PaymentsConfig holds the validation limits and credential registry
type PaymentsConfig struct {
	MaxAmount             float64
	AllowedCurrencies     []string
	AllowedPaymentMethods []string
	// APITokens maps bearer tokens to the customer ids they may act on.
	// "*" entitles a token to every customer.
	APITokens map[string][]string
}

// RabbitMQConfig holds RabbitMQ publishing configuration.
// An empty URL disables event publishing.
type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// Load loads configuration from environment variables with default values
func Load() (*Config, error) {
	maxAmount := 1_000_000.0
	if raw := os.Getenv("MAX_AMOUNT"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_AMOUNT %q: %w", raw, err)
		}
		maxAmount = parsed
	}

	tokens, err := parseTokens(os.Getenv("API_TOKENS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:        getEnv("PORT", "3002"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Payments: PaymentsConfig{
			MaxAmount:             maxAmount,
			AllowedCurrencies:     getEnvList("ALLOWED_CURRENCIES", []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD"}),
			AllowedPaymentMethods: getEnvList("ALLOWED_PAYMENT_METHODS", []string{"card", "bank_transfer", "paypal", "apple_pay", "google_pay"}),
			APITokens:             tokens,
		},
		RabbitMQ: RabbitMQConfig{
			URL:        os.Getenv("RABBITMQ_URL"),
			Exchange:   getEnv("RABBITMQ_EXCHANGE", "payments.operations"),
			RoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "payments.operations.ledger"),
		},
	}, nil
}

// parseTokens parses the API_TOKENS format:
// "token1:cust-1|cust-2,token2:*". An empty value yields an empty registry
// (every request will be denied, which is the safe default).
func parseTokens(raw string) (map[string][]string, error) {
	tokens := make(map[string][]string)
	if raw == "" {
		return tokens, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, scope, ok := strings.Cut(entry, ":")
		if !ok || token == "" || scope == "" {
			return nil, fmt.Errorf("invalid API_TOKENS entry %q: want token:scope", entry)
		}
		tokens[token] = strings.Split(scope, "|")
	}
	return tokens, nil
}

// getEnv retrieves an environment variable or returns a default value if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated environment variable as a slice
func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}
