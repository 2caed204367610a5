// Package config loads bookfeed client configuration.
//
// Configuration is read from YAML (default) or TOML (.toml extension).
// ${VAR} references are expanded from the environment before parsing, and
// duration fields are given as strings ("30s", "2m").
//
// Example:
//
//	api:
//	  base_url: "https://example.com/api"
//	  request_timeout: "30s"
//	database:
//	  driver: "sqlite"
//	  path: "~/.local/share/bookfeed/credentials.db"
//	feed:
//	  page_size: 2
//	mutation:
//	  pending_ttl: "2m"
//	logging:
//	  level: "info"
//	  format: "text"
package config
