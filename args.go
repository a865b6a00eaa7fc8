package main

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gavel/api"
)

func ParseArgs() Args {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")

	// catalog service config
	pflag.String("catalog-api-url", "", "")
	pflag.String("catalog-cdn-url", "", "")
	pflag.Duration("catalog-timeout", 10*time.Second, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("GAVEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			Catalog: api.CatalogConfig{
				BaseURL:    viper.GetString("catalog-api-url"),
				CDNBaseURL: viper.GetString("catalog-cdn-url"),
				Timeout:    viper.GetDuration("catalog-timeout"),
			},
		},
	}
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	return args.ServerURL != "" && args.ServerConfig.Catalog.BaseURL != ""
}
