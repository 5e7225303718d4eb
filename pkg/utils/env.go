package utils

import (
	"os"
	"strconv"
)

// Env returns the value of the environment variable key, or def when unset.
func Env(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// EnvInt returns the integer value of the environment variable key when it
// parses to a positive number, or def otherwise.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// EnvBool returns true when the environment variable key is set to a truthy
// value ("1", "true", "yes"), def otherwise.
func EnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	}
	return false
}
