package models

// ViewerContext is built per request by the HTTP layer and drives which
// projection of a wallet a caller gets back. It is never persisted. Access
// decisions are made before projection; the projector only shapes output.
type ViewerContext struct {
	UserID  uint // zero for anonymous
	IsOwner bool
	IsAdmin bool
}

// AnonymousViewer is the context for unauthenticated requests.
func AnonymousViewer() ViewerContext {
	return ViewerContext{}
}

// ViewerFor derives the context for an authenticated user looking at a wallet
// owned by ownerID.
func ViewerFor(u *User, ownerID uint) ViewerContext {
	if u == nil {
		return AnonymousViewer()
	}
	return ViewerContext{
		UserID:  u.ID,
		IsOwner: u.ID == ownerID,
		IsAdmin: u.IsAdmin(),
	}
}
