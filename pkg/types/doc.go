// Package types provides the core data types for the analytics SDK.
//
// This package contains the structures that flow through the SDK: the
// TrackOptions an application passes to Track, the decorated PendingEvent
// held by the batching queue, and the page/UTM context used to enrich
// events. Users can import this package directly if they need to work with
// the types without importing the full SDK.
package types
