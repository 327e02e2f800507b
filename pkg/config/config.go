package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"

	AppendModeAtomic          = "atomic"
	AppendModeReadModifyWrite = "read-modify-write"

	LocalStoreFile   = "file"
	LocalStoreRedis  = "redis"
	LocalStoreMemory = "memory"
)

type Config struct {
	ServerPort         string
	FirebaseProject    string
	FirebaseApiKey     string
	ServiceAccountPath string
	ServiceAccountJSON string
	StorageBucket      string
	Environment        string

	Backend    string
	AppendMode string

	LocalStore     string
	LocalStorePath string
	RedisURL       string

	Locale         string
	SendRatePerSec float64
	SendBurst      int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8787"),
		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseApiKey:     getEnv("FIREBASE_API_KEY", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", ""),
		Environment:        getEnv("ENVIRONMENT", "development"),
		Backend:            getEnv("BACKEND", BackendFirestore),
		AppendMode:         getEnv("APPEND_MODE", AppendModeAtomic),
		LocalStore:         getEnv("LOCAL_STORE", LocalStoreFile),
		LocalStorePath:     getEnv("LOCAL_STORE_PATH", defaultStorePath()),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		Locale:             getEnv("LOCALE", "en-US"),
		SendRatePerSec:     getEnvAsFloat64("SEND_RATE_PER_SEC", 5),
		SendBurst:          int(getEnvAsInt64("SEND_BURST", 10)),
	}

	return config, nil
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./firechat-state.json"
	}
	return dir + "/firechat/state.json"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
