// Package config loads kcvlog configuration from a JSON file with built-in
// defaults. Durations are expressed in milliseconds, matching the option
// names the log recognizes (send-delay, read-interval, ...).
package config
