// Package id provides unique ID generation for the analytics SDK.
//
// The package supports two generation strategies:
//   - Random UUID v4 (default, backed by crypto/rand through google/uuid)
//   - Fallback IDs (timestamp + counter + weak random suffix) when no secure
//     random source is available
//
// ID Generation Modes:
//   - ModeFallback: Uses the fallback when the secure source fails (default)
//   - ModeStrict: Returns an error when the secure source fails
//
// Example usage:
//
//	// Use the package-level generator (fallback mode)
//	eventID := id.New()
//
//	// Create a strict mode generator
//	gen := id.NewGenerator(&id.Config{Mode: id.ModeStrict})
//	eventID, err := gen.Generate()
//
//	// Check whether an ID was generated using the fallback
//	if id.IsFallback(eventID) {
//	    log.Println("weak id in use")
//	}
package id
