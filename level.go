package authinfo

// AuthLevel is the ordered trust tier of an [AuthenticationInfo].
// Levels only ever demote as time passes (Critical to Normal to Unsafe);
// they never promote without a new authentication event.
type AuthLevel uint8

const (
	// LevelNone means no identity at all: the user is the anonymous.
	LevelNone AuthLevel = iota
	// LevelUnsafe means the identity is known but expired or unverified.
	// Accessing the user at this level requires the explicit Unsafe
	// accessors.
	LevelUnsafe
	// LevelNormal means the identity is verified and not expired.
	LevelNormal
	// LevelCritical means the identity was freshly re-verified and the
	// critical window has not lapsed.
	LevelCritical
)

// String returns the level name used by the claims codec ("acr" claim).
func (l AuthLevel) String() string {
	switch l {
	case LevelNone:
		return "None"
	case LevelUnsafe:
		return "Unsafe"
	case LevelNormal:
		return "Normal"
	case LevelCritical:
		return "Critical"
	}
	return "Unknown"
}
