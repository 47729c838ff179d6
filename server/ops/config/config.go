package config

import (
	"bytes"
	"flag"
	"os"

	"gopkg.in/yaml.v3"
)

var configFile = flag.String("config", "", "path to a config yaml")

// Config carries the deployment-specific settings of a production line
// dashboard. Zero values fall back to the defaults below.
type Config struct {
	Upstream Upstream `yaml:"upstream"`
	Defaults Defaults `yaml:"defaults"`
	Layout   Layout   `yaml:"layout"`
}

// Upstream points at the data service that owns predictions, change logs,
// time series and the line topology.
type Upstream struct {
	BaseURL string `yaml:"base_url"`
	// RefreshSchedule is a 5-field cron expression for background re-fetch.
	RefreshSchedule string `yaml:"refresh_schedule"`
}

type Defaults struct {
	Machine string `yaml:"machine"`
	Tool    string `yaml:"tool"`
	// Signal is the trace compared against the learned ideal curve.
	Signal string `yaml:"signal"`
}

type Layout struct {
	Direction string `yaml:"direction"`
	EdgeType  string `yaml:"edge_type"`
}

func defaultConfig() Config {
	return Config{
		Upstream: Upstream{
			BaseURL:         "http://127.0.0.1:8093",
			RefreshSchedule: "*/15 * * * *",
		},
		Defaults: Defaults{
			Signal: "spindle_1_load",
		},
		Layout: Layout{
			Direction: "vertical",
			EdgeType:  "step",
		},
	}
}

var config = defaultConfig()

func MustLoadConfig() {
	if *configFile == "" {
		return
	}
	c, err := os.ReadFile(*configFile)
	if err != nil {
		panic(err)
	}
	config, err = decodeConfig(c)
	if err != nil {
		panic(err)
	}
}

func GetConfig() Config {
	return config
}

func decodeConfig(content []byte) (Config, error) {
	c := defaultConfig()
	d := yaml.NewDecoder(bytes.NewReader(content))
	d.KnownFields(true)
	err := d.Decode(&c)
	return c, err
}
