package osx

import "os"

// GetEnv returns the environment value of key, or fallback when unset or
// empty.
func GetEnv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}
