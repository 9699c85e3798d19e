// internal/domain/identity/actor.go
package identity

// Actor is the authenticated caller of a domain operation
type Actor struct {
	UserID  string
	IsAdmin bool
}

// Admin builds an administrative actor
func Admin(userID string) Actor {
	return Actor{UserID: userID, IsAdmin: true}
}

// User builds a regular customer actor
func User(userID string) Actor {
	return Actor{UserID: userID}
}

// Owns reports whether the actor may act on a record owned by ownerID
func (a Actor) Owns(ownerID string) bool {
	return a.IsAdmin || (a.UserID != "" && a.UserID == ownerID)
}
