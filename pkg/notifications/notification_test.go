package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationValidate(t *testing.T) {
	t.Run("valid notification", func(t *testing.T) {
		n := Notification{UserID: "user1", Type: TypeInfo, Title: "Hello"}
		assert.NoError(t, n.Validate())
	})

	t.Run("missing user ID", func(t *testing.T) {
		n := Notification{Title: "Hello"}
		assert.ErrorIs(t, n.Validate(), ErrInvalidNotification)
	})

	t.Run("missing title", func(t *testing.T) {
		n := Notification{UserID: "user1"}
		assert.ErrorIs(t, n.Validate(), ErrInvalidNotification)
	})

	t.Run("unknown type", func(t *testing.T) {
		n := Notification{UserID: "user1", Type: Type("bogus"), Title: "Hello"}
		assert.ErrorIs(t, n.Validate(), ErrInvalidNotification)
	})

	t.Run("empty type is allowed", func(t *testing.T) {
		n := Notification{UserID: "user1", Title: "Hello"}
		assert.NoError(t, n.Validate())
	})
}

func TestNotificationMarkAsRead(t *testing.T) {
	t.Run("stamps read time once", func(t *testing.T) {
		n := Notification{UserID: "user1", Title: "Hello"}
		require.False(t, n.Read)
		require.Nil(t, n.ReadAt)

		n.MarkAsRead()
		require.True(t, n.Read)
		require.NotNil(t, n.ReadAt)

		first := *n.ReadAt
		time.Sleep(time.Millisecond)
		n.MarkAsRead()
		assert.Equal(t, first, *n.ReadAt, "second call must keep the original read time")
	})
}

func TestNotificationIsExpired(t *testing.T) {
	t.Run("no expiry never expires", func(t *testing.T) {
		n := Notification{}
		assert.False(t, n.IsExpired())
	})

	t.Run("past expiry", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		n := Notification{ExpiresAt: &past}
		assert.True(t, n.IsExpired())
	})

	t.Run("future expiry", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		n := Notification{ExpiresAt: &future}
		assert.False(t, n.IsExpired())
	})
}

func TestEnumValidity(t *testing.T) {
	for _, typ := range AllTypes() {
		assert.True(t, typ.Valid(), "type %q", typ)
	}
	assert.False(t, Type("bogus").Valid())

	for _, ch := range AllChannels() {
		assert.True(t, ch.Valid(), "channel %q", ch)
	}
	assert.False(t, Channel("fax").Valid())

	for _, f := range []Frequency{FrequencyImmediate, FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyNever} {
		assert.True(t, f.Valid(), "frequency %q", f)
	}
	assert.False(t, Frequency("sometimes").Valid())
}
