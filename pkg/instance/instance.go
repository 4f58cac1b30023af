package instance

import (
	"os"
	"strings"
)

// ID names this process in lock values and logs. REPAIRSHOP_INSTANCE_ID wins,
// then the hostname.
func ID() string {
	if id := strings.TrimSpace(os.Getenv("REPAIRSHOP_INSTANCE_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "repairshop-0"
}
