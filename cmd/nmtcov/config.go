package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flags, environment (NMTCOV_NLB, ...) and the config file, in that order
// of precedence.
var v = viper.New()

type config struct {
	NLB   int
	Flat  bool
	LX    float64
	LY    float64
	Edges string
}

func bindFlags(fs *pflag.FlagSet) {
	for _, name := range []string{"nlb", "flat", "lx", "ly", "edges"} {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			panic(err)
		}
	}
	v.SetEnvPrefix("NMTCOV")
	v.AutomaticEnv()
}

// loadConfig reads the config file, if any, and returns the settings.
func loadConfig() (config, error) {
	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var c config
	if err := v.Unmarshal(&c); err != nil {
		return config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	log.V(2).Info("config", "nlb", c.NLB, "flat", c.Flat, "lx", c.LX, "ly", c.LY, "edges", c.Edges)
	return c, nil
}

func parseEdges(s string) ([]float64, error) {
	var edges []float64
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("band edges: %w", err)
		}
		edges = append(edges, x)
	}
	return edges, nil
}
