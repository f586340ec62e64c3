package cache

import "time"

// DefaultTTL applies when a policy has no default of its own. A cache
// missing from the policy must still get a bounded lifetime; TTL
// resolution never blocks a write.
const DefaultTTL = 10 * time.Minute

// SeasonalRule maps every calendar month to one of three TTL bands:
// high-volatility months take the short TTL, low-volatility months the
// long one, and all remaining months the medium TTL. Band boundaries are
// whole months.
type SeasonalRule struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration

	ShortMonths []time.Month
	LongMonths  []time.Month
}

// TTL classifies now's month and returns the band's duration. The rule is
// total: a month listed in both bands resolves to the short one, and any
// unlisted month takes the medium TTL.
func (r SeasonalRule) TTL(now time.Time) time.Duration {
	month := now.Month()
	for _, m := range r.ShortMonths {
		if m == month {
			return r.Short
		}
	}
	for _, m := range r.LongMonths {
		if m == month {
			return r.Long
		}
	}
	return r.Medium
}

// TTLPolicy resolves the time-to-live attached to new entries of a named
// cache. It is pure: callers pass the current time, and nothing is
// memoized, so a long-running process crossing a season boundary picks up
// the new band on its next write.
type TTLPolicy struct {
	Default  time.Duration
	Seasonal map[string]SeasonalRule
}

// Resolve returns the TTL for new entries in the named cache at the given
// time. Unrecognized cache names fall back to the policy default.
func (p TTLPolicy) Resolve(name string, now time.Time) time.Duration {
	if rule, ok := p.Seasonal[name]; ok {
		return rule.TTL(now)
	}
	if p.Default > 0 {
		return p.Default
	}
	return DefaultTTL
}

// DefaultPolicy mirrors the production deployment: the weather cache
// expires fast in summer when readings move quickly, slowly in winter,
// and at a middle rate the rest of the year; everything else uses the
// global default.
func DefaultPolicy() TTLPolicy {
	return TTLPolicy{
		Default: DefaultTTL,
		Seasonal: map[string]SeasonalRule{
			"weather": {
				Short:       5 * time.Minute,
				Medium:      15 * time.Minute,
				Long:        30 * time.Minute,
				ShortMonths: []time.Month{time.June, time.July, time.August},
				LongMonths:  []time.Month{time.December, time.January, time.February},
			},
		},
	}
}
