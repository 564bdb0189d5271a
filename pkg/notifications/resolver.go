package notifications

import (
	"context"
	"errors"
	"time"
)

// Resolver combines the event's channel policy, the user's preferences and
// the time of day into the set of channels allowed to carry one notification.
//
// The evaluation order is fixed: policy first, then preference, then quiet
// hours. A channel the policy forbids is never returned regardless of the
// user's preference; a channel the policy allows is still subject to the
// user's own settings.
type Resolver struct {
	policies PolicyStore
	prefs    PreferenceStore
}

// NewResolver creates a resolver over the given stores.
func NewResolver(policies PolicyStore, prefs PreferenceStore) *Resolver {
	return &Resolver{
		policies: policies,
		prefs:    prefs,
	}
}

// Resolve returns the channels allowed for one (user, event, type) tuple at
// the given time. An empty result is a valid outcome meaning "suppress
// entirely". Timezone is the fallback for quiet-hour evaluation when the
// preference entry carries none.
//
// Absent configuration is permissive on both axes: a missing policy falls
// back to DefaultAllowedChannels, a missing preference entry leaves the
// channel allowed.
func (r *Resolver) Resolve(ctx context.Context, userID, eventKey string, t Type, now time.Time, timezone string) ([]Channel, error) {
	allowed, err := GetAllowedChannels(ctx, r.policies, eventKey)
	if err != nil {
		return nil, err
	}

	channels := make([]Channel, 0, len(allowed))
	for _, ch := range allowed {
		pref, err := r.prefs.Get(ctx, userID, t, ch)
		if err != nil {
			if errors.Is(err, ErrPreferenceNotFound) {
				channels = append(channels, ch)
				continue
			}
			return nil, err
		}

		if !pref.Enabled {
			continue
		}
		if pref.Frequency == FrequencyNever {
			continue
		}
		if pref.InQuietHours(now, timezone) {
			continue
		}

		channels = append(channels, ch)
	}

	return channels, nil
}

// ResolveChannel reports whether a single channel is allowed for the tuple.
// It skips preference lookups for other channels, which keeps bulk sends that
// only care about in-app eligibility cheap against backed stores.
func (r *Resolver) ResolveChannel(ctx context.Context, userID, eventKey string, t Type, ch Channel, now time.Time, timezone string) (bool, error) {
	allowed, err := GetAllowedChannels(ctx, r.policies, eventKey)
	if err != nil {
		return false, err
	}

	permitted := false
	for _, c := range allowed {
		if c == ch {
			permitted = true
			break
		}
	}
	if !permitted {
		return false, nil
	}

	pref, err := r.prefs.Get(ctx, userID, t, ch)
	if err != nil {
		if errors.Is(err, ErrPreferenceNotFound) {
			return true, nil
		}
		return false, err
	}

	return pref.Enabled && pref.Frequency != FrequencyNever && !pref.InQuietHours(now, timezone), nil
}
