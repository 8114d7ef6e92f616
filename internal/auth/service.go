// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keystead/keystead/internal/observability"
	"github.com/keystead/keystead/pkg/errutil"
)

var tracer = otel.Tracer("keystead/auth")

// Flow names used for spans and metrics.
const (
	FlowRegister = "register"
	FlowLogin    = "login"
	FlowLogout   = "logout"
)

// dummyPassword is hashed once at construction. Logins for unknown emails
// verify against the resulting secret so they cost the same as a real check.
//
//nolint:gosec // G101: not a credential.
const dummyPassword = "keystead-dummy-Passw0rd"

// RegistrationInput is the signup form.
type RegistrationInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string
	Password string
}

// Service runs the registration, login and logout flows.
type Service struct {
	accounts    AccountRepository
	sessions    SessionStore
	hasher      PasswordHasher
	dummySecret string
	logger      *slog.Logger
}

// NewService creates a new Service. All dependencies are required.
func NewService(accounts AccountRepository, sessions SessionStore, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(accounts, sessions, hasher, slog.Default())
}

// NewServiceWithLogger creates a new Service that logs unexpected failures
// to logger.
func NewServiceWithLogger(accounts AccountRepository, sessions SessionStore, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("account repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("logger is required")
	}

	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").
			With("operation", "hash dummy secret").
			Wrap(err)
	}

	return &Service{
		accounts:    accounts,
		sessions:    sessions,
		hasher:      hasher,
		dummySecret: dummy,
		logger:      logger,
	}, nil
}

// Register creates an account. It does not touch the session: a new user
// logs in separately.
//
// Validation runs in order and stops at the first failure: presence,
// minimum length, complexity, maximum length. No hashing or persistence
// happens for rejected input.
func (s *Service) Register(ctx context.Context, in RegistrationInput) (account *Account, err error) {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer s.finish(ctx, span, FlowRegister, time.Now(), &err)

	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, fail(KindMissingFields, MsgSignupMissingFields)
	}
	if f := CheckPassword(in.Password); f != nil {
		return nil, f
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	secret, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, unavailable(oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err))
	}

	account, err = NewAccount(in.Username, in.Email, secret)
	if err != nil {
		return nil, unavailable(err)
	}
	span.SetAttributes(attribute.String("account.id", account.ID.String()))

	if err := s.accounts.Create(ctx, account); err != nil {
		var verr *ValidationError
		switch {
		case errors.Is(err, ErrDuplicateAccount):
			return nil, fail(KindDuplicateAccount, MsgDuplicateAccount)
		case errors.As(err, &verr):
			return nil, &Failure{Kind: KindInvalidAccountData, Message: verr.Detail, Err: err}
		default:
			return nil, unavailable(oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "create account").
				Wrap(err))
		}
	}

	return account, nil
}

// Login authenticates the email and password and attaches the account's
// identity to sess. When Login returns nil the attachment is durable.
//
// Unknown emails and wrong passwords return the same failure. Unknown
// emails are still verified against a dummy secret.
func (s *Service) Login(ctx context.Context, sess *Session, in LoginInput) (account *Account, err error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer s.finish(ctx, span, FlowLogin, time.Now(), &err)

	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, fail(KindMissingFields, MsgLoginMissingFields)
	}

	account, err = s.accounts.GetByEmail(ctx, NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			//nolint:errcheck // result is discarded, only the cost matters
			s.hasher.Verify(in.Password, s.dummySecret)
			return nil, fail(KindInvalidCredentials, MsgInvalidCredentials)
		}
		return nil, unavailable(oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account by email").
			Wrap(err))
	}

	ok, err := s.hasher.Verify(in.Password, account.PasswordHash)
	if err != nil {
		return nil, unavailable(oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("account_id", account.ID.String()).
			Wrap(err))
	}
	if !ok {
		return nil, fail(KindInvalidCredentials, MsgInvalidCredentials)
	}

	if err := s.sessions.Attach(ctx, sess, account.Identity()); err != nil {
		return nil, unavailable(oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "attach session").
			With("account_id", account.ID.String()).
			Wrap(err))
	}
	span.SetAttributes(attribute.String("account.id", account.ID.String()))

	return account, nil
}

// Logout destroys sess. Calling it on an anonymous or already destroyed
// session is not an error.
func (s *Service) Logout(ctx context.Context, sess *Session) (err error) {
	ctx, span := tracer.Start(ctx, "auth.logout")
	defer s.finish(ctx, span, FlowLogout, time.Now(), &err)

	if err := s.sessions.Destroy(ctx, sess); err != nil {
		return unavailable(oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "destroy session").
			Wrap(err))
	}
	return nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, flow string, start time.Time, errp *error) {
	err := *errp
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(KindOf(err)))
		span.SetAttributes(attribute.String("auth.failure", outcome))
		if f, ok := AsFailure(err); !ok || !f.Expected() {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			errutil.LogError(ctx, s.logger, "auth flow failed", err, "flow", flow)
		}
	}
	observability.RecordFlow(flow, outcome, time.Since(start))
	span.End()
}
