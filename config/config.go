package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway"`
	Game    GameConfig    `mapstructure:"game"`
	Storage StorageConfig `mapstructure:"storage"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	RPC     RPCConfig     `mapstructure:"rpc"`
}

type GatewayConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

type GameConfig struct {
	ChannelID     string `mapstructure:"channel_id"`
	IntervalHours int    `mapstructure:"interval_hours"`
	CorpusPath    string `mapstructure:"corpus_path"`
}

type StorageConfig struct {
	// Backend selects the persistence implementation: "json" (default),
	// "postgres" (database/sql + lib/pq) or "gorm".
	Backend    string         `mapstructure:"backend"`
	RoundsPath string         `mapstructure:"rounds_path"`
	ScoresPath string         `mapstructure:"scores_path"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type MonitorConfig struct {
	Address string `mapstructure:"address"`
}

type RPCConfig struct {
	Address string `mapstructure:"address"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("game.interval_hours", 24)
	viper.SetDefault("game.corpus_path", "./dataset/friends.csv")
	viper.SetDefault("storage.backend", "json")
	viper.SetDefault("storage.rounds_path", "./logs/history.json")
	viper.SetDefault("storage.scores_path", "./logs/scores.json")

	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		// No config.yaml is fine: every key has a default or an env
		// override. Anything else (unreadable file, bad yaml) is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
