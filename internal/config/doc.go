// Package config provides configuration structures and utilities for markcrawl.
// It defines the options shared by the server and the CLI (timeouts, crawl
// bounds, proxy settings, persistence) and the YAML configuration file that
// carries converter defaults and per-host site settings.
package config
