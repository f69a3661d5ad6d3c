package secrets

import (
	"fmt"
	"os"
	"strings"
)

// ValidateStartup checks that required secrets are present and plausibly
// formed before the server starts serving traffic. It returns a list of
// human-readable problems; an empty list means all checks passed.
func ValidateStartup() []string {
	var problems []string

	if key := strings.TrimSpace(os.Getenv("MARKET_API_KEY")); key == "" {
		problems = append(problems, "MARKET_API_KEY is not set; upstream quote requests will be rejected")
	} else if len(key) < 16 {
		problems = append(problems, fmt.Sprintf("MARKET_API_KEY looks truncated (%d chars)", len(key)))
	}

	if dsn := strings.TrimSpace(os.Getenv("SENTRY_DSN")); dsn != "" {
		if !strings.HasPrefix(dsn, "https://") && !strings.HasPrefix(dsn, "http://") {
			problems = append(problems, "SENTRY_DSN is not a valid URL")
		}
	}

	if dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); dbURL == "" {
		problems = append(problems, "DATABASE_URL is not set")
	}

	return problems
}
