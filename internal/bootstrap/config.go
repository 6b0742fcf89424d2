package bootstrap

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

type Config struct {
	ServerPort     string        `mapstructure:"SERVER_PORT"`
	GrpcPort       string        `mapstructure:"GRPC_PORT"`
	RedisUrl       string        `mapstructure:"REDIS_URL"`
	MongoUri       string        `mapstructure:"MONGO_URI"`
	MongoDatabase  string        `mapstructure:"MONGO_DATABASE"`
	IsLocalCors    bool          `mapstructure:"LOCAL_CORS"`
	StoreDriver    string        `mapstructure:"STORE_DRIVER"`
	RoomKeyPrefix  string        `mapstructure:"ROOM_KEY_PREFIX"`
	PublishTimeout time.Duration `mapstructure:"PUBLISH_TIMEOUT"`
	ArchiveEnabled bool          `mapstructure:"ARCHIVE_ENABLED"`
}

var defaults = map[string]any{
	"SERVER_PORT":     "8080",
	"GRPC_PORT":       "8082",
	"REDIS_URL":       "localhost:6379",
	"MONGO_URI":       "mongodb://localhost:27017",
	"MONGO_DATABASE":  "weiqi_room",
	"LOCAL_CORS":      false,
	"STORE_DRIVER":    StoreDriverRedis,
	"ROOM_KEY_PREFIX": "go-game-",
	"PUBLISH_TIMEOUT": "5s",
	"ARCHIVE_ENABLED": true,
}

// Setup reads cfgPath (a .env file). A missing file is fine: defaults and
// environment variables are used instead.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	v.SetConfigFile(cfgPath)
	v.SetConfigType("env")
	err := v.ReadInConfig()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config

	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
