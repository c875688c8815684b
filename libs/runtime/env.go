package runtime

import "os"

// Getenv is kept for tools that do not pull in libs/config.
func Getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
