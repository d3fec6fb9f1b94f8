// Package identity derives the identifiers stamped on every analytics event:
// a persisted anonymous id, a rolling session id with sliding idle expiry
// and the optional user id set by Identify.
//
// Persistence goes through the Storage capability. Storage failures never
// surface to callers: the Manager keeps working with in-memory identifiers
// and reports the problem only through its debug logger.
//
// Example:
//
//	store, _ := identity.NewFileStorage("/var/lib/myapp/analytics")
//	m := identity.New(identity.Config{
//	    Storage:        store,
//	    SessionTimeout: 30 * time.Minute,
//	})
//
//	anon := m.AnonymousID()
//	session := m.CheckAndUpdateSession(time.Now())
package identity
