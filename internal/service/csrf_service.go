package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rochafa10/DeedFlow-sub010/internal/config"
	"github.com/rochafa10/DeedFlow-sub010/internal/domain"
	"github.com/rochafa10/DeedFlow-sub010/internal/metrics"
	"github.com/rochafa10/DeedFlow-sub010/internal/origin"
	"github.com/rochafa10/DeedFlow-sub010/internal/repository"
	"github.com/rochafa10/DeedFlow-sub010/internal/token"
)

// Reason identifies why a request was rejected, or which degraded path let
// it through. Values surface verbatim in logs and metrics.
type Reason string

const (
	ReasonOriginMismatch         Reason = "OriginMismatch"
	ReasonRefererMismatch        Reason = "RefererMismatch"
	ReasonInvalidReferer         Reason = "InvalidReferer"
	ReasonMissingSecurityHeaders Reason = "MissingSecurityHeaders"
	ReasonMalformedToken         Reason = "MalformedToken"
	ReasonTokenNotFound          Reason = "TokenNotFound"
	ReasonTokenExpired           Reason = "TokenExpired"
)

// Mode distinguishes a strict validation from the weakened check used when
// the token store is unreachable.
type Mode string

const (
	ModeStrict   Mode = "strict"
	ModeDegraded Mode = "degraded"
)

// ErrStorageUnavailable surfaces an issuance failure caused by an unreachable
// store. No token was persisted, so the issuer gets a hard failure.
var ErrStorageUnavailable = errors.New("token storage unavailable")

// ValidationResult is the outcome of validating one plaintext token.
type ValidationResult struct {
	Valid  bool
	Reason Reason
	Mode   Mode
}

// GuardRequest carries the request fields the guard decides on. Absent
// headers are empty strings.
type GuardRequest struct {
	Method  string
	Origin  string
	Referer string
	Token   string
}

// GuardDecision is the allow/deny outcome for one state-changing request.
type GuardDecision struct {
	Allowed bool
	Reason  Reason
	Message string
}

// CSRFService issues, validates, and guards with single-use anti-forgery
// tokens.
type CSRFService struct {
	store     repository.TokenStore
	sweeper   *Sweeper
	snowflake *snowflake.Node
	cfg       config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// NewCSRFService wires dependencies.
func NewCSRFService(store repository.TokenStore, sweeper *Sweeper, node *snowflake.Node, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) *CSRFService {
	return &CSRFService{
		store:     store,
		sweeper:   sweeper,
		snowflake: node,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("github.com/rochafa10/DeedFlow-sub010/internal/service"),
	}
}

// Issue generates a fresh token, persists its digest, and returns the
// plaintext. An unreachable store is a hard failure here: without a record
// the token could never validate.
func (s *CSRFService) Issue(ctx context.Context, sessionRef string) (string, error) {
	ctx, span := s.startSpan(ctx, "CSRFService.Issue")
	defer span.End()

	plaintext, err := token.Generate(s.cfg.TokenBytes)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("generate token: %w", err)
	}

	now := time.Now()
	rec := domain.CSRFToken{
		ID:         s.snowflake.Generate().Int64(),
		TokenHash:  token.Hash(plaintext),
		SessionRef: sessionRef,
		ExpiresAt:  now.Add(s.cfg.TokenTTL),
		CreatedAt:  now,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.Insert(storeCtx, rec); err != nil {
		span.RecordError(err)
		if errors.Is(err, repository.ErrUnavailable) {
			return "", fmt.Errorf("persist token: %w", ErrStorageUnavailable)
		}
		return "", fmt.Errorf("persist token: %w", err)
	}

	s.metrics.RecordIssued()
	s.audit("csrf.token.issued", "token_id", rec.ID, "session_ref", sessionRef)
	return plaintext, nil
}

// Validate checks a plaintext token against the store and consumes it on
// success. Consumption is a single atomic delete-returning call, so two
// concurrent validations of the same token cannot both pass. When the store
// is unreachable the check degrades to length-only and says so in its Mode.
func (s *CSRFService) Validate(ctx context.Context, plaintext string) ValidationResult {
	ctx, span := s.startSpan(ctx, "CSRFService.Validate")
	defer span.End()

	if len(plaintext) < s.cfg.MinTokenLength {
		return ValidationResult{Reason: ReasonMalformedToken, Mode: ModeStrict}
	}

	hash := token.Hash(plaintext)
	now := time.Now()

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	rec, err := s.store.ConsumeByHash(storeCtx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ValidationResult{Reason: ReasonTokenNotFound, Mode: ModeStrict}
		}
		if errors.Is(err, repository.ErrUnavailable) {
			// The store is down, not the token missing. Fall back to the
			// length check already passed above so requests keep flowing.
			span.RecordError(err)
			s.metrics.RecordDegradedPass()
			s.log().Warn("token store unreachable, degraded validation pass", zap.Error(err))
			return ValidationResult{Valid: true, Mode: ModeDegraded}
		}
		span.RecordError(err)
		s.log().Error("token consume failed", zap.Error(err))
		return ValidationResult{Reason: ReasonTokenNotFound, Mode: ModeStrict}
	}

	if rec.Expired(now) {
		// The consume already reclaimed the record.
		return ValidationResult{Reason: ReasonTokenExpired, Mode: ModeStrict}
	}

	s.audit("csrf.token.consumed", "token_id", rec.ID, "session_ref", rec.SessionRef)
	return ValidationResult{Valid: true, Mode: ModeStrict}
}

// Authorize is the one decision callers need for a state-changing request:
// the same-site check first, then the token path when that check has no
// evidence either way. Cleanup rides along on the token path without ever
// blocking the caller.
func (s *CSRFService) Authorize(ctx context.Context, req GuardRequest) GuardDecision {
	ctx, span := s.startSpan(ctx, "CSRFService.Authorize")
	defer span.End()

	check := origin.Check(req.Method, req.Origin, req.Referer, s.cfg.ExpectedOrigin)
	switch check.Decision {
	case origin.Allow:
		s.metrics.RecordDecision("allow", "")
		return GuardDecision{Allowed: true}
	case origin.Deny:
		reason := Reason(check.Reason)
		s.metrics.RecordDecision("deny", string(reason))
		s.audit("csrf.request.denied", "reason", string(reason), "method", req.Method)
		return GuardDecision{Allowed: false, Reason: reason, Message: reasonMessage(reason)}
	}

	if req.Token == "" {
		s.metrics.RecordDecision("deny", string(ReasonMissingSecurityHeaders))
		s.audit("csrf.request.denied", "reason", string(ReasonMissingSecurityHeaders), "method", req.Method)
		return GuardDecision{Allowed: false, Reason: ReasonMissingSecurityHeaders, Message: reasonMessage(ReasonMissingSecurityHeaders)}
	}

	s.sweeper.MaybeSweep(time.Now())

	result := s.Validate(ctx, req.Token)
	if !result.Valid {
		s.metrics.RecordDecision("deny", string(result.Reason))
		s.audit("csrf.request.denied", "reason", string(result.Reason), "method", req.Method)
		return GuardDecision{Allowed: false, Reason: result.Reason, Message: reasonMessage(result.Reason)}
	}

	outcome := "allow"
	if result.Mode == ModeDegraded {
		outcome = "allow_degraded"
	}
	s.metrics.RecordDecision(outcome, "")
	return GuardDecision{Allowed: true}
}

func reasonMessage(reason Reason) string {
	switch reason {
	case ReasonOriginMismatch:
		return "Origin header does not match the serving origin."
	case ReasonRefererMismatch:
		return "Referer does not match the serving origin."
	case ReasonInvalidReferer:
		return "Referer header could not be parsed."
	case ReasonMissingSecurityHeaders:
		return "Request carries no same-site evidence and no anti-forgery token."
	case ReasonMalformedToken:
		return "Anti-forgery token is missing or too short."
	case ReasonTokenNotFound:
		return "Anti-forgery token is unknown or already used."
	case ReasonTokenExpired:
		return "Anti-forgery token has expired."
	}
	return "Request rejected."
}

func (s *CSRFService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *CSRFService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *CSRFService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
