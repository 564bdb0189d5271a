// Package notifications implements the notification delivery and preference
// resolution engine: given a business event and a recipient, it decides which
// channels may carry the message, persists the in-app record, fans push
// delivery out to the recipient's device tokens, and prunes tokens the push
// gateway reports as permanently invalid.
//
// # Architecture
//
// The package is built from small, separately replaceable parts:
//
//   - Storage: persistence for in-app notification records.
//   - PolicyStore: per-event channel allow-lists managed by administrators.
//   - PreferenceStore: per (user, type, channel) preferences with quiet hours.
//   - Resolver: pure decision logic combining policy, preference and time of
//     day into the allowed channel set.
//   - TokenRegistry: device token lifecycle (register, list, remove, prune).
//   - Dispatcher: bounded-concurrency push fanout against the Gateway.
//   - Engine: the orchestrator tying the above together; the only type
//     transport layers need to talk to.
//
// Memory implementations of every store ship with the package for development
// and testing; Postgres (pgx), Redis and MongoDB backed implementations cover
// production deployments.
//
// # Resolution order
//
// Channel resolution is an intersection evaluated in a fixed order: event
// policy first, then the user's preference, then quiet hours. Administrators
// can disable a channel platform-wide for an event regardless of user
// preferences, and users are never forced to receive what policy forbids. A
// missing policy falls back to the default allow-list; a missing preference
// counts as enabled.
//
// # Basic usage
//
//	store := notifications.NewMemoryStorage()
//	policies := notifications.NewMemoryPolicyStore()
//	prefs := notifications.NewMemoryPreferenceStore()
//	tokens := notifications.NewMemoryTokenRegistry()
//	dispatcher := notifications.NewDispatcher(gateway)
//
//	engine := notifications.NewEngine(store, policies, prefs, tokens, dispatcher)
//
//	record, err := engine.SendToUser(ctx, notifications.SendRequest{
//	    UserID:   "user-123",
//	    EventKey: "order.shipped",
//	    Type:     notifications.TypeOrder,
//	    Title:    "Your order is on the way",
//	    Body:     "Order #1042 left the warehouse.",
//	    SendPush: true,
//	})
//
// Push delivery outcomes are observed through logs; the returned record is nil
// when the in-app channel is suppressed for this user and event.
package notifications
