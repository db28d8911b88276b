package config

// Package config holds the engine configuration, loaded with viper from a
// YAML file and SPRED_* environment variables, and the per-device user
// settings persisted through fyne preferences.
