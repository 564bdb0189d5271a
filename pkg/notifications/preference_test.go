package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPreferenceValidate(t *testing.T) {
	valid := Preference{
		UserID:    "user1",
		Type:      TypeOrder,
		Channel:   ChannelPush,
		Enabled:   true,
		Frequency: FrequencyImmediate,
	}

	tests := []struct {
		name    string
		mutate  func(p *Preference)
		wantErr bool
	}{
		{name: "valid", mutate: func(p *Preference) {}},
		{name: "missing user ID", mutate: func(p *Preference) { p.UserID = "" }, wantErr: true},
		{name: "unknown type", mutate: func(p *Preference) { p.Type = "bogus" }, wantErr: true},
		{name: "unknown channel", mutate: func(p *Preference) { p.Channel = "fax" }, wantErr: true},
		{name: "unknown frequency", mutate: func(p *Preference) { p.Frequency = "sometimes" }, wantErr: true},
		{name: "valid quiet hours", mutate: func(p *Preference) {
			p.QuietHoursStart = "22:00"
			p.QuietHoursEnd = "06:00"
		}},
		{name: "malformed quiet hours start", mutate: func(p *Preference) { p.QuietHoursStart = "10pm" }, wantErr: true},
		{name: "single digit hour rejected", mutate: func(p *Preference) { p.QuietHoursStart = "9:00" }, wantErr: true},
		{name: "hour out of range", mutate: func(p *Preference) { p.QuietHoursEnd = "24:00" }, wantErr: true},
		{name: "minute out of range", mutate: func(p *Preference) { p.QuietHoursEnd = "10:60" }, wantErr: true},
		{name: "valid timezone", mutate: func(p *Preference) { p.QuietHoursTimezone = "America/New_York" }},
		{name: "unknown timezone", mutate: func(p *Preference) { p.QuietHoursTimezone = "Mars/Olympus" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPreference)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPreferenceInQuietHours(t *testing.T) {
	at := func(hour, minute int) time.Time {
		return time.Date(2025, 6, 15, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		pref  Preference
		now   time.Time
		tz    string
		quiet bool
	}{
		{
			name:  "daytime window inside",
			pref:  Preference{QuietHoursStart: "09:00", QuietHoursEnd: "17:00"},
			now:   at(12, 0),
			quiet: true,
		},
		{
			name:  "daytime window outside",
			pref:  Preference{QuietHoursStart: "09:00", QuietHoursEnd: "17:00"},
			now:   at(20, 0),
			quiet: false,
		},
		{
			name:  "overnight window inside before midnight",
			pref:  Preference{QuietHoursStart: "22:00", QuietHoursEnd: "06:00"},
			now:   at(23, 30),
			quiet: true,
		},
		{
			name:  "overnight window inside after midnight",
			pref:  Preference{QuietHoursStart: "22:00", QuietHoursEnd: "06:00"},
			now:   at(3, 0),
			quiet: true,
		},
		{
			name:  "overnight window outside",
			pref:  Preference{QuietHoursStart: "22:00", QuietHoursEnd: "06:00"},
			now:   at(12, 0),
			quiet: false,
		},
		{
			name:  "start bound inclusive",
			pref:  Preference{QuietHoursStart: "22:00", QuietHoursEnd: "06:00"},
			now:   at(22, 0),
			quiet: true,
		},
		{
			name:  "end bound inclusive",
			pref:  Preference{QuietHoursStart: "22:00", QuietHoursEnd: "06:00"},
			now:   at(6, 0),
			quiet: true,
		},
		{
			name:  "missing start never quiet",
			pref:  Preference{QuietHoursEnd: "06:00"},
			now:   at(3, 0),
			quiet: false,
		},
		{
			name:  "missing end never quiet",
			pref:  Preference{QuietHoursStart: "22:00"},
			now:   at(23, 0),
			quiet: false,
		},
		{
			name: "preference timezone wins over fallback",
			// 12:00 UTC is 07:00 in New York, inside a 22:00-08:00 window.
			pref:  Preference{QuietHoursStart: "22:00", QuietHoursEnd: "08:00", QuietHoursTimezone: "America/New_York"},
			now:   at(12, 0),
			tz:    "UTC",
			quiet: true,
		},
		{
			name: "fallback timezone used when preference has none",
			// 23:30 UTC is 01:30 in Berlin (summer), inside the window.
			pref:  Preference{QuietHoursStart: "22:00", QuietHoursEnd: "06:00"},
			now:   at(23, 30),
			tz:    "Europe/Berlin",
			quiet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.quiet, tt.pref.InQuietHours(tt.now, tt.tz))
		})
	}
}
