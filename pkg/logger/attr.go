package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// NotificationID records the notification identifier under the key "notification_id".
// If id is nil, it returns an empty Attr.
func NotificationID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("notification_id", id)
}

// EventKey records the triggering event key under the key "event_key".
func EventKey(key string) slog.Attr {
	return slog.String("event_key", key)
}

// Channel records a delivery channel under the key "channel".
func Channel(ch any) slog.Attr {
	return slog.Any("channel", ch)
}

// Topic records a broadcast topic under the key "topic".
func Topic(topic string) slog.Attr {
	return slog.String("topic", topic)
}

// TokenCount records the number of device tokens under the key "token_count".
func TokenCount(count int) slog.Attr {
	return slog.Int("token_count", count)
}

// SuccessCount records successful delivery attempts under the key "success_count".
func SuccessCount(count int) slog.Attr {
	return slog.Int("success_count", count)
}

// FailureCount records failed delivery attempts under the key "failure_count".
func FailureCount(count int) slog.Attr {
	return slog.Int("failure_count", count)
}

// PruneCount records the number of tokens scheduled for pruning under the key "prune_count".
func PruneCount(count int) slog.Attr {
	return slog.Int("prune_count", count)
}

// MessageID records the gateway message identifier under the key "message_id".
// If id is nil, it returns an empty Attr.
func MessageID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("message_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
