package config

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/log"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Name       string
	Env        string
	Network    string
	Index      string
	Debug      bool
	HealthPort int
	SentryDsn  string
	LogPath    string

	Owner       entity.Account
	Marketplace entity.Account
	Registry    entity.Account

	Billing       BillingConfig
	Zilliqa       ZilliqaConfig
	ElasticSearch ElasticSearchConfig
	Aws           AwsConfig
}

type BillingConfig struct {
	Period      time.Duration
	Interval    time.Duration
	RetryDelay  time.Duration
	Concurrency int
	RunLogDir   string
	Store       string
	Publish     bool
}

type AwsConfig struct {
	AccessKey string
	SecretKey string
	Token     string
	Region    string
	QueueUrl  string
}

type ZilliqaConfig struct {
	Url     string
	Debug   bool
	Timeout int
}

type ElasticSearchConfig struct {
	Hosts            []string
	Sniff            bool
	HealthCheck      bool
	Debug            bool
	Username         string
	Password         string
	Aws              bool
	MappingDir       string
	BulkPersistCount int
	Refresh          string
}

const (
	FileStore    = "file"
	ElasticStore = "elastic"
)

var name = "billing"

// Init loads .env, when there is one, and installs the logger for the named
// binary.
func Init(binary string) {
	name = binary

	err := godotenv.Load(".env")
	initLogger()

	if err != nil {
		zap.L().With(zap.Error(err)).Debug("Config: No .env file loaded")
	}
}

func initLogger() {
	cfg := Get()
	log.NewLogger(cfg.LogPath, cfg.Debug, cfg.SentryDsn)
}

func Get() *Config {
	return &Config{
		Name:        name,
		Env:         getString("ENV", ""),
		Network:     getString("NETWORK", "zilliqa"),
		Index:       getString("INDEX_NAME", "membership"),
		Debug:       getBool("DEBUG", false),
		HealthPort:  getInt("HEALTH_PORT", 8080),
		SentryDsn:   getString("SENTRY_DSN", ""),
		LogPath:     getString("LOG_PATH", fmt.Sprintf("./var/logs/%s.log", name)),
		Owner:       getAccount("OWNER_ADDRESS"),
		Marketplace: getAccount("MARKETPLACE_ADDRESS"),
		Registry:    getAccount("REGISTRY_ADDRESS"),
		Billing: BillingConfig{
			Period:      getDuration("BILLING_PERIOD", 30*24*time.Hour),
			Interval:    getDuration("BILLING_INTERVAL", time.Hour),
			RetryDelay:  getDuration("BILLING_RETRY_DELAY", 3*time.Second),
			Concurrency: getInt("BILLING_CONCURRENCY", 4),
			RunLogDir:   getString("BILLING_RUN_LOG_DIR", "./logs"),
			Store:       getString("BILLING_STORE", FileStore),
			Publish:     getBool("BILLING_PUBLISH", false),
		},
		Aws: AwsConfig{
			AccessKey: getString("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getString("AWS_SECRET_KEY_ID", ""),
			Token:     getString("AWS_SESSION_TOKEN", ""),
			Region:    getString("AWS_REGION", ""),
			QueueUrl:  getString("AWS_QUEUE_URL", ""),
		},
		Zilliqa: ZilliqaConfig{
			Url:     getString("ZILLIQA_URL", ""),
			Timeout: getInt("ZILLIQA_TIMEOUT", 30),
			Debug:   getBool("ZILLIQA_DEBUG", false),
		},
		ElasticSearch: ElasticSearchConfig{
			Hosts:            getSlice("ELASTIC_SEARCH_HOSTS", make([]string, 0), ","),
			Sniff:            getBool("ELASTIC_SEARCH_SNIFF", true),
			HealthCheck:      getBool("ELASTIC_SEARCH_HEALTH_CHECK", true),
			Debug:            getBool("ELASTIC_SEARCH_DEBUG", false),
			Username:         getString("ELASTIC_SEARCH_USERNAME", ""),
			Password:         getString("ELASTIC_SEARCH_PASSWORD", ""),
			Aws:              getBool("ELASTIC_SEARCH_AWS", false),
			MappingDir:       getString("ELASTIC_SEARCH_MAPPING_DIR", "./mappings"),
			BulkPersistCount: getInt("ELASTIC_SEARCH_BULK_PERSIST_COUNT", 300),
			Refresh:          getString("ELASTIC_SEARCH_REFRESH", "wait_for"),
		},
	}
}

// Exempt are the accounts billing never charges.
func (c *Config) Exempt() entity.Accounts {
	exempt := entity.Accounts{}
	for _, a := range []entity.Account{c.Owner, c.Marketplace, c.Registry} {
		if !a.IsZero() {
			exempt = append(exempt, a)
		}
	}
	return exempt
}

func getString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	valStr := getString(key, "")
	val, _, err := big.ParseFloat(valStr, 10, 0, big.ToNearestEven)
	if err != nil {
		return defaultValue
	}

	intVal, _ := val.Int64()
	return int(intVal)
}

func getBool(key string, defaultValue bool) bool {
	valStr := getString(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	valStr := getString(key, "")
	if val, err := time.ParseDuration(valStr); err == nil && val > 0 {
		return val
	}

	return defaultValue
}

func getSlice(key string, defaultVal []string, sep string) []string {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultVal
	}

	return strings.Split(valStr, sep)
}

func getAccount(key string) entity.Account {
	valStr := getString(key, "")
	if valStr == "" {
		return entity.NoAccount
	}

	account, err := entity.ParseAccount(valStr)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("key", key)).Warn("Config: Invalid account")
		return entity.NoAccount
	}

	return account
}
