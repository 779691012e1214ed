// FILE: substitution.go
package relay

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// substitutionSequence backs the {sequence} token; one value per resolution.
var substitutionSequence atomic.Uint64

// ResolveSubstitutions replaces deferred tokens in a destination name.
// Resolution happens exactly once, when the writer initializes, so every
// batch of a writer's lifetime targets the same destination.
//
// Supported tokens: {hostname}, {pid}, {date} (UTC yyyymmdd), {timestamp}
// (UTC yyyymmddHHMMSS), {sequence}, {env:NAME}.
func ResolveSubstitutions(name string) string {
	if !strings.Contains(name, "{") {
		return name
	}

	now := time.Now().UTC()

	replace := func(token, value string) {
		name = strings.ReplaceAll(name, token, value)
	}

	if strings.Contains(name, "{hostname}") {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown"
		}
		replace("{hostname}", sanitizeToken(host))
	}
	replace("{pid}", strconv.Itoa(os.Getpid()))
	replace("{date}", now.Format("20060102"))
	replace("{timestamp}", now.Format("20060102150405"))
	if strings.Contains(name, "{sequence}") {
		replace("{sequence}", strconv.FormatUint(substitutionSequence.Add(1), 10))
	}

	// {env:NAME} resolves against the process environment; unset variables
	// collapse to an empty string
	for {
		start := strings.Index(name, "{env:")
		if start < 0 {
			break
		}
		end := strings.Index(name[start:], "}")
		if end < 0 {
			break
		}
		end += start
		envName := name[start+len("{env:") : end]
		name = name[:start] + sanitizeToken(os.Getenv(envName)) + name[end+1:]
	}

	return name
}

// sanitizeToken keeps substituted values safe for use inside destination
// identifiers.
func sanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
