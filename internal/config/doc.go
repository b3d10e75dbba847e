// Package config loads defiagentd settings from a YAML file, optional .env
// files and process environment variables, in that order of precedence.
package config
