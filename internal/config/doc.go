// Package config loads service settings from defaults, an optional config
// file and NAMEGEN_-prefixed environment variables, then validates them with
// struct tags plus cross-field checks for the selected store driver.
package config
