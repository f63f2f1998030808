/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/Seednode/silhouette/internal/prefetch"
	"github.com/Seednode/silhouette/internal/silhouette"
)

func validConfig() *Config {
	return &Config{
		assets:             "/srv/renders",
		categories:         4,
		fadeIn:             75 * time.Millisecond,
		fetchTimeout:       10 * time.Second,
		ordering:           "priority",
		port:               8080,
		prefetch:           10,
		prefetchMobile:     4,
		silhouetteStrategy: "composite",
		variants:           4,
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.order != prefetch.Priority || cfg.strategy != silhouette.Composite {
		t.Fatalf("options not parsed: %v %v", cfg.order, cfg.strategy)
	}
}

func TestValidateRejects(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"zero fade-in":    func(c *Config) { c.fadeIn = 0 },
		"no assets":       func(c *Config) { c.assets = "" },
		"both assets":     func(c *Config) { c.assetsURL = "https://example.com/" },
		"bad assets url":  func(c *Config) { c.assets, c.assetsURL = "", "ftp://example.com/" },
		"lonely tls cert": func(c *Config) { c.tlsCert = "cert.pem" },
		"port":            func(c *Config) { c.port = 70000 },
		"no categories":   func(c *Config) { c.categories = 0 },
		"no variants":     func(c *Config) { c.variants = 0 },
		"no prefetch":     func(c *Config) { c.prefetchMobile = 0 },
		"strategy":        func(c *Config) { c.silhouetteStrategy = "blur" },
		"ordering":        func(c *Config) { c.ordering = "lifo" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)

			if err := cfg.validate(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestEnabledCategories(t *testing.T) {
	cfg := validConfig()
	cfg.categories = 3

	got := cfg.enabledCategories()
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("enabledCategories = %v", got)
	}
}
