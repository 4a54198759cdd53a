package domain

type SessionState string

const (
	SessionStateUninitialized   SessionState = "uninitialized"
	SessionStateInitializing    SessionState = "initializing"
	SessionStateUnauthenticated SessionState = "unauthenticated"
	SessionStateAuthenticated   SessionState = "authenticated"
)

// ActiveSession is the identity the rest of the application currently acts as.
type ActiveSession struct {
	User    User
	Profile *Profile
	Tokens  Tokens
}

func (s ActiveSession) Label() string {
	return displayLabel(s.User, s.Profile)
}

// AsAccount converts the active identity into a cacheable account.
func (s ActiveSession) AsAccount() Account {
	return Account{
		User:    s.User,
		Profile: cloneProfile(s.Profile),
		Tokens:  s.Tokens,
	}
}

func cloneProfile(p *Profile) *Profile {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
