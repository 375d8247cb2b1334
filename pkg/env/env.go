package env

import "os"

// Get reads an environment variable, falling back when unset or empty.
// Typed configuration belongs in pkg/config; this covers the few knobs
// (LOG_FORMAT, PORT) read before config is loaded.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
