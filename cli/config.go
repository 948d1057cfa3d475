package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"jetdb"
)

const envPrefix = "JETDB"

// Config is the merged result of flags, JETDB_* environment variables and
// the optional config file, in that order of precedence.
type Config struct {
	DateFormat       string `mapstructure:"date-format"`
	Charset          string `mapstructure:"charset"`
	CachePages       int    `mapstructure:"cache-pages"`
	CacheCompression string `mapstructure:"cache-compression"`
	Mmap             bool   `mapstructure:"mmap"`
	MaxChainHops     int    `mapstructure:"max-chain-hops"`
	LogLevel         string `mapstructure:"log-level"`
	LogFormat        string `mapstructure:"log-format"`
	Stats            bool   `mapstructure:"stats"`
}

func loadConfig(flags *pflag.FlagSet, file string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config file %s", file)
		}
	} else {
		v.SetConfigName(".jetdb")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			// the default config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(err, "config file")
			}
		}
	}

	if err := v.BindPFlags(flags); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

func (c *Config) setupLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	}
	return nil
}

func (c *Config) options() *jetdb.Options {
	return &jetdb.Options{
		DateFormat:       c.DateFormat,
		Charset:          c.Charset,
		CachePages:       c.CachePages,
		CacheCompression: jetdb.ParseCompressAlgorithm(c.CacheCompression),
		Mmap:             c.Mmap,
		MaxChainHops:     c.MaxChainHops,
		Logger:           log.StandardLogger(),
	}
}
