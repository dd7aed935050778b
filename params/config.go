package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type HTTP struct {
	Addr string
}

type Chain struct {
	RPCURL     string
	PrivateKey string
	GasLimit   uint64
	// SettleTimeout bounds each settlement call; the chain RPC itself has
	// no timeout of its own.
	SettleTimeout time.Duration
}

type Journal struct {
	// Dir is the pebble data directory. Empty disables the journal.
	Dir string
}

type Feed struct {
	// Brokers is the Kafka broker list. Empty disables the publisher.
	Brokers []string
	Topic   string
}

type Config struct {
	HTTP    HTTP
	Chain   Chain
	Journal Journal
	Feed    Feed
	LogFile string
}

func Default() Config {
	return Config{
		HTTP: HTTP{Addr: ":4000"},
		Chain: Chain{
			GasLimit:      120_000,
			SettleTimeout: 30 * time.Second,
		},
		Feed: Feed{Topic: "clob.trades"},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	if url := os.Getenv("RPC_URL"); url != "" {
		cfg.Chain.RPCURL = url
	}
	if key := os.Getenv("PRIVATE_KEY"); key != "" {
		cfg.Chain.PrivateKey = key
	}
	if gas := os.Getenv("SETTLE_GAS_LIMIT"); gas != "" {
		if v, err := strconv.ParseUint(gas, 10, 64); err == nil {
			cfg.Chain.GasLimit = v
		}
	}
	if ms := os.Getenv("SETTLE_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			cfg.Chain.SettleTimeout = time.Duration(v) * time.Millisecond
		}
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.Journal.Dir = dir
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Feed.Brokers = strings.Split(brokers, ",")
	}
	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		cfg.Feed.Topic = topic
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.LogFile = logFile
	}

	return cfg
}
