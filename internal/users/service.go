package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-identity/internal/credentials"
	"github.com/odyssey-erp/odyssey-identity/internal/identity"
)

var (
	// ErrDuplicateLoginKey indicates the email is already registered.
	ErrDuplicateLoginKey = errors.New("users: email already registered")
	// ErrRegistrationFailed is returned for every non-duplicate registration
	// failure. The cause is logged, never returned.
	ErrRegistrationFailed = errors.New("users: registration failed")
)

// RegisteredMessage is returned to callers on successful registration.
const RegisteredMessage = "User registered successfully"

// fallbackPlaceholderHash is a well-formed cost-12 bcrypt hash matching no
// password handed out by this service.
const fallbackPlaceholderHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Outcome labels reported to the Observer.
const (
	OutcomeSuccess    = "success"
	OutcomeDuplicate  = "duplicate"
	OutcomeFailed     = "failed"
	OutcomeUnknownKey = "unknown_key"
	OutcomeMismatch   = "password_mismatch"
	OutcomeInactive   = "inactive"
	OutcomeStoreError = "store_error"
)

// Observer receives registration and verification outcomes.
type Observer interface {
	RegistrationOutcome(outcome string)
	VerificationOutcome(outcome string)
}

// Service orchestrates registration and credential verification.
type Service struct {
	repo     Repository
	hasher   credentials.Hasher
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
	newID    func(time.Time) (string, error)

	// placeholderHash is compared against on lookup misses.
	placeholderHash string
}

// NewService builds Service instance. logger and observer may be nil.
func NewService(repo Repository, hasher credentials.Hasher, logger *slog.Logger, observer Observer) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		repo:     repo,
		hasher:   hasher,
		logger:   logger,
		observer: observer,
		now:      time.Now,
		newID:    identity.NewID,
	}
	s.placeholderHash = s.buildPlaceholderHash()
	return s
}

// Register creates a user for loginKey. It returns ErrDuplicateLoginKey when
// the key is taken (including when a concurrent registration wins the race)
// and ErrRegistrationFailed for everything else.
func (s *Service) Register(ctx context.Context, loginKey, password string) (Registration, error) {
	loginKey = identity.CanonicalLoginKey(loginKey)

	exists, err := s.repo.Exists(ctx, loginKey)
	if err != nil {
		return Registration{}, s.registrationFailed(ctx, "check login key", err)
	}
	if exists {
		s.registrationOutcome(OutcomeDuplicate)
		return Registration{}, ErrDuplicateLoginKey
	}

	now := s.now().UTC()
	id, err := s.newID(now)
	if err != nil {
		return Registration{}, s.registrationFailed(ctx, "generate id", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Registration{}, s.registrationFailed(ctx, "hash password", err)
	}

	rec := identity.UserRecord{
		ID:           id,
		LoginKey:     loginKey,
		PasswordHash: hash,
		CreatedAt:    now,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, identity.ErrConflict) {
			s.registrationOutcome(OutcomeDuplicate)
			return Registration{}, ErrDuplicateLoginKey
		}
		return Registration{}, s.registrationFailed(ctx, "persist user", err)
	}

	s.registrationOutcome(OutcomeSuccess)
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", id))
	return Registration{Message: RegisteredMessage, UserID: id}, nil
}

// Verify checks password against the record for loginKey. Unknown keys, store
// failures, inactive accounts and wrong passwords all yield Valid == false.
func (s *Service) Verify(ctx context.Context, loginKey, password string) VerifyResult {
	loginKey = identity.CanonicalLoginKey(loginKey)

	rec, err := s.repo.FindByLoginKey(ctx, loginKey)
	if err != nil {
		outcome := OutcomeUnknownKey
		if !errors.Is(err, identity.ErrNotFound) {
			outcome = OutcomeStoreError
			s.logger.ErrorContext(ctx, "verify lookup failed", slog.Any("error", err))
		}
		// Spend the same hashing time as a real comparison.
		s.hasher.Verify(password, s.placeholderHash)
		s.verificationOutcome(outcome)
		return VerifyResult{}
	}

	if !s.hasher.Verify(password, rec.PasswordHash) {
		s.verificationOutcome(OutcomeMismatch)
		return VerifyResult{}
	}
	if !rec.IsActive {
		s.verificationOutcome(OutcomeInactive)
		return VerifyResult{}
	}

	user := redact(rec)
	s.verificationOutcome(OutcomeSuccess)
	return VerifyResult{Valid: true, User: &user}
}

func (s *Service) registrationFailed(ctx context.Context, step string, err error) error {
	s.logger.ErrorContext(ctx, "registration failed", slog.String("step", step), slog.Any("error", err))
	s.registrationOutcome(OutcomeFailed)
	return ErrRegistrationFailed
}

// buildPlaceholderHash hashes a random secret with the configured hasher so a
// comparison against it costs the same as a real one.
func (s *Service) buildPlaceholderHash() string {
	secret, err := identity.NewID(s.now())
	if err != nil {
		secret = "placeholder"
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil || hash == "" {
		s.logger.Warn("placeholder hash unavailable, using fallback", slog.Any("error", err))
		return fallbackPlaceholderHash
	}
	return hash
}

func (s *Service) registrationOutcome(outcome string) {
	if s.observer != nil {
		s.observer.RegistrationOutcome(outcome)
	}
}

func (s *Service) verificationOutcome(outcome string) {
	if s.observer != nil {
		s.observer.VerificationOutcome(outcome)
	}
}
