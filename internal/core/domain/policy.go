package domain

import "time"

// RateLimitWindow is the rolling period over which request ceilings are counted.
const RateLimitWindow = time.Hour

// RequestCeiling returns the default number of start-requests permitted per
// identifier inside one rolling window. SMS-backed kinds carry tighter
// ceilings because SMS delivery costs money and is more abuse-prone.
func (k Kind) RequestCeiling() int {
	switch k {
	case KindEmailRegistration:
		return 5
	case KindPhoneRegistration:
		return 3
	case KindPasswordReset:
		return 3
	case KindPhoneChange:
		return 2
	case KindEmailChange:
		return 3
	case KindLogin2FA:
		return 5
	default:
		return 3
	}
}

// MaxAttempts returns the default confirmation attempts before a token fails.
// 4-digit SMS codes are more guessable than alphanumeric email codes, so
// phone-backed kinds allow fewer attempts.
func (k Kind) MaxAttempts() int {
	if k.Channel() == ChannelSMS {
		return 3
	}
	return 5
}

// TTL returns the default validity period for a token of this kind.
func (k Kind) TTL() time.Duration {
	switch k {
	case KindEmailRegistration:
		return 24 * time.Hour
	case KindPasswordReset, KindEmailChange:
		return time.Hour
	case KindPhoneRegistration, KindPhoneChange, KindLogin2FA:
		return 10 * time.Minute
	default:
		return time.Hour
	}
}

// Retention horizons applied by the sweeper.
const (
	// TerminalRetention is how long failed and expired tokens are kept after
	// their deadline before physical deletion.
	TerminalRetention = 7 * 24 * time.Hour
	// VerifiedRetention is how long verified tokens are kept for audit.
	VerifiedRetention = 30 * 24 * time.Hour
)
