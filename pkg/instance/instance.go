package instance

import "os"

// GetID returns the process instance identifier used in log fields.
// Heroku-style platforms set DYNO; container schedulers set WORKER_ID.
func GetID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "local"
}
