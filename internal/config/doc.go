// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Every field is optional: a zero Config with defaults applied runs the
// client against DefaultEndpoint and the server on DefaultServerAddr.
package config
