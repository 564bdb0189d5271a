// Package mongo bootstraps the MongoDB client used by the document-store
// variant of the notification record storage.
//
// Connect retries until the server answers a ping or attempts are exhausted;
// ConnectDatabase is a convenience wrapper for callers that only ever touch a
// single database.
package mongo
