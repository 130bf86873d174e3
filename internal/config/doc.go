// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for lumen.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ProviderConfig: Model backend selection and credentials
//   - ClientConfig: How the chat front end reaches the model
//   - StorageConfig: Where conversations are persisted
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (LUMEN_*, GEMINI_API_KEY)
//   - ~/.lumen/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	kind := cfg.Provider.Kind
package config
