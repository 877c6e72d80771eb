package entity

// Principal is the authenticated actor attached to a request. It is
// request-scoped and never persisted; session storage is the concern of
// the authentication layer.
type Principal struct {
	ID       string
	Username string
	IsAdmin  bool
}
