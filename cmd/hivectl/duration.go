package main

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// naturalClock parses reservation/lock lease lengths. A plain Go duration
// ("90s", "5m") is tried first; failing that, the string is treated as a
// natural-language expiry ("in 30 minutes", "tomorrow at 9am") via
// olebedev/when, and the TTL is the gap between now and the parsed time.
var naturalClock = buildNaturalClock()

func buildNaturalClock() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseTTLSeconds converts a user-supplied --ttl/--expires string into
// whole seconds. An empty string yields 0, signaling "use the component's
// configured default".
func parseTTLSeconds(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return int(d.Seconds()), nil
	}
	now := time.Now()
	result, err := naturalClock.Parse(raw, now)
	if err != nil || result == nil {
		return 0, errBadTTL(raw)
	}
	ttl := result.Time.Sub(now)
	if ttl <= 0 {
		return 0, errBadTTL(raw)
	}
	return int(ttl.Seconds()), nil
}
