package domain

import (
	"errors"
	"strings"
	"time"
)

// Kind enumerates the supported verification purposes.
type Kind string

const (
	KindEmailRegistration Kind = "email_registration"
	KindPhoneRegistration Kind = "phone_registration"
	KindPasswordReset     Kind = "password_reset"
	KindPhoneChange       Kind = "phone_change"
	KindEmailChange       Kind = "email_change"
	KindLogin2FA          Kind = "login_2fa"
)

// Channel identifies the delivery medium for a verification code.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Kinds lists every supported verification kind.
func Kinds() []Kind {
	return []Kind{
		KindEmailRegistration,
		KindPhoneRegistration,
		KindPasswordReset,
		KindPhoneChange,
		KindEmailChange,
		KindLogin2FA,
	}
}

// Valid reports whether the kind is a known verification purpose.
func (k Kind) Valid() bool {
	switch k {
	case KindEmailRegistration, KindPhoneRegistration, KindPasswordReset,
		KindPhoneChange, KindEmailChange, KindLogin2FA:
		return true
	}
	return false
}

// Channel returns the delivery medium used for the kind.
func (k Kind) Channel() Channel {
	switch k {
	case KindPhoneRegistration, KindPhoneChange, KindLogin2FA:
		return ChannelSMS
	default:
		return ChannelEmail
	}
}

// Status enumerates verification token states. pending is the only
// non-terminal state; every transition out of it is final.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusExpired  Status = "expired"
	StatusFailed   Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusExpired || s == StatusFailed
}

var (
	// ErrDestinationRequired indicates the factory was given an empty destination.
	ErrDestinationRequired = errors.New("verification destination is required")
	// ErrKindChannelMismatch indicates the destination type does not match the kind's channel.
	ErrKindChannelMismatch = errors.New("verification kind does not match destination channel")
	// ErrUnknownKind indicates an unrecognized verification kind.
	ErrUnknownKind = errors.New("unknown verification kind")
)

// VerificationToken is a single issued verification attempt. Exactly one of
// DestinationEmail/DestinationPhone is populated, matching the kind's channel;
// the factories below are the only way to construct a valid token.
type VerificationToken struct {
	ID               string
	UserID           *string
	Kind             Kind
	DestinationEmail *string
	DestinationPhone *string
	TokenHash        string
	Code             string
	Status           Status
	AttemptCount     int
	MaxAttempts      int
	IP               *string
	UserAgent        *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ExpiresAt        time.Time
	VerifiedAt       *time.Time
}

// NewEmailVerification constructs a pending token bound to an email destination.
func NewEmailVerification(id string, kind Kind, email, tokenHash, code string, maxAttempts int, createdAt, expiresAt time.Time) (VerificationToken, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return VerificationToken{}, ErrDestinationRequired
	}
	if !kind.Valid() {
		return VerificationToken{}, ErrUnknownKind
	}
	if kind.Channel() != ChannelEmail {
		return VerificationToken{}, ErrKindChannelMismatch
	}

	return VerificationToken{
		ID:               id,
		Kind:             kind,
		DestinationEmail: &email,
		TokenHash:        tokenHash,
		Code:             code,
		Status:           StatusPending,
		MaxAttempts:      maxAttempts,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
		ExpiresAt:        expiresAt,
	}, nil
}

// NewPhoneVerification constructs a pending token bound to a phone destination.
func NewPhoneVerification(id string, kind Kind, phone, tokenHash, code string, maxAttempts int, createdAt, expiresAt time.Time) (VerificationToken, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return VerificationToken{}, ErrDestinationRequired
	}
	if !kind.Valid() {
		return VerificationToken{}, ErrUnknownKind
	}
	if kind.Channel() != ChannelSMS {
		return VerificationToken{}, ErrKindChannelMismatch
	}

	return VerificationToken{
		ID:               id,
		Kind:             kind,
		DestinationPhone: &phone,
		TokenHash:        tokenHash,
		Code:             code,
		Status:           StatusPending,
		MaxAttempts:      maxAttempts,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
		ExpiresAt:        expiresAt,
	}, nil
}

// Destination returns whichever destination is populated.
func (t VerificationToken) Destination() string {
	if t.DestinationEmail != nil {
		return *t.DestinationEmail
	}
	if t.DestinationPhone != nil {
		return *t.DestinationPhone
	}
	return ""
}

// IsExpired reports whether the token's deadline has passed. Expiry is
// checked lazily at confirmation time, independent of physical deletion.
func (t VerificationToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// AttemptsExhausted reports whether no further code comparisons are allowed.
func (t VerificationToken) AttemptsExhausted() bool {
	return t.AttemptCount >= t.MaxAttempts
}

// AttemptsRemaining returns how many failed comparisons are still permitted.
func (t VerificationToken) AttemptsRemaining() int {
	remaining := t.MaxAttempts - t.AttemptCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MarkVerified transitions a pending token to verified.
// Returns true when the token changed state.
func (t *VerificationToken) MarkVerified(at time.Time) bool {
	if t.Status != StatusPending {
		return false
	}
	t.Status = StatusVerified
	timeCopy := at
	t.VerifiedAt = &timeCopy
	t.UpdatedAt = at
	return true
}

// MarkExpired transitions a pending token to expired.
func (t *VerificationToken) MarkExpired(at time.Time) bool {
	if t.Status != StatusPending {
		return false
	}
	t.Status = StatusExpired
	t.UpdatedAt = at
	return true
}

// MarkFailed transitions a pending token to failed.
func (t *VerificationToken) MarkFailed(at time.Time) bool {
	if t.Status != StatusPending {
		return false
	}
	t.Status = StatusFailed
	t.UpdatedAt = at
	return true
}
