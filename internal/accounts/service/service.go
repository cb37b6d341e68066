// Package service manages the salesperson account lifecycle across the
// identity service and the document store.
//
// The credential is created before the documents and deleted before them.
// The two systems are not jointly transactional: a failed document batch
// after a successful credential creation leaves an orphaned credential,
// which is logged with the user id so it can be removed with delete.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"

	"prospector/internal/accounts/authz"
	"prospector/internal/accounts/models"
	"prospector/internal/docstore"
	"prospector/internal/platform/metrics"
	id "prospector/pkg/domain"
	dErrors "prospector/pkg/domain-errors"
	"prospector/pkg/platform/audit"
	"prospector/pkg/platform/sentinel"
	"prospector/pkg/requestcontext"
)

var tracer = otel.Tracer("prospector/accounts")

// Authorizer gates every lifecycle operation.
type Authorizer interface {
	Authorize(ctx context.Context) (authz.Caller, error)
}

// Identity issues and removes credentials.
type Identity interface {
	CreateCredential(ctx context.Context, email, password, displayName string) (id.UserID, error)
	DeleteCredential(ctx context.Context, userID id.UserID) error
}

// Store reads and batch-writes account documents.
type Store interface {
	Get(ctx context.Context, ref docstore.Ref) (docstore.Document, error)
	RunBatch(ctx context.Context, fn func(docstore.Batch) error) error
}

// AuditPublisher records lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	authz          Authorizer
	identity       Identity
	store          Store
	validate       *validator.Validate
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

func New(authorizer Authorizer, identity Identity, store Store, opts ...Option) (*Service, error) {
	if authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	if identity == nil {
		return nil, errors.New("identity service is required")
	}
	if store == nil {
		return nil, errors.New("document store is required")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	s := &Service{
		authz:    authorizer,
		identity: identity,
		store:    store,
		validate: validate,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateSalesperson creates the credential, then the users and salespeople
// documents in one batch.
func (s *Service) CreateSalesperson(ctx context.Context, req models.CreateSalespersonRequest) (*models.CreateSalespersonResult, error) {
	ctx, span := tracer.Start(ctx, "Accounts.Service.CreateSalesperson")
	defer span.End()

	caller, err := s.authz.Authorize(ctx)
	if err != nil {
		s.reject(ctx, "create", err)
		return nil, err
	}

	req.Normalize()
	if err := s.validateRequest(req); err != nil {
		s.reject(ctx, "create", err)
		return nil, err
	}

	userID, err := s.identity.CreateCredential(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create credential",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		derr := dErrors.New(dErrors.CodeUnknown, err.Error())
		s.reject(ctx, "create", derr)
		return nil, derr
	}

	err = s.store.RunBatch(ctx, func(b docstore.Batch) error {
		b.Set(models.UserRef(userID), models.UserRecord{
			Name:  req.Name,
			Email: req.Email,
			Role:  models.RoleSalesperson,
		}.Document())
		b.Set(models.SalespersonRef(userID), models.NewSalespersonProfile(req.Name, req.Email).Document())
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "salesperson documents not written, credential is orphaned",
			"user_id", userID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		derr := dErrors.Wrap(err, dErrors.CodeInternal, "failed to store salesperson records")
		s.reject(ctx, "create", derr)
		return nil, derr
	}

	s.metrics.IncSalespeopleCreated()
	s.logAudit(ctx, audit.ActionSalespersonCreated,
		"user_id", userID.String(),
		"actor_id", caller.ID.String(),
	)
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionSalespersonCreated,
		UserID:  userID,
		ActorID: caller.ID,
		Email:   req.Email,
	})

	return &models.CreateSalespersonResult{
		Success: true,
		Message: fmt.Sprintf("Salesperson %s created with id %s", req.Name, userID),
		ID:      userID.String(),
		Name:    req.Name,
	}, nil
}

// DeleteSalesperson removes the credential, then both documents in one
// batch. Deleting an id that is already gone succeeds.
func (s *Service) DeleteSalesperson(ctx context.Context, targetID string) (*models.DeleteSalespersonResult, error) {
	ctx, span := tracer.Start(ctx, "Accounts.Service.DeleteSalesperson")
	defer span.End()

	caller, err := s.authz.Authorize(ctx)
	if err != nil {
		s.reject(ctx, "delete", err)
		return nil, err
	}

	if strings.TrimSpace(targetID) == "" {
		err := dErrors.New(dErrors.CodeInvalidArgument, "salesperson id is required")
		s.reject(ctx, "delete", err)
		return nil, err
	}
	userID, err := id.ParseUserID(strings.TrimSpace(targetID))
	if err != nil {
		s.reject(ctx, "delete", err)
		return nil, err
	}

	if err := s.ensureSalesperson(ctx, userID); err != nil {
		s.reject(ctx, "delete", err)
		return nil, err
	}

	if err := s.identity.DeleteCredential(ctx, userID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to delete credential",
			"user_id", userID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		derr := dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete salesperson credential")
		s.reject(ctx, "delete", derr)
		return nil, derr
	}

	err = s.store.RunBatch(ctx, func(b docstore.Batch) error {
		b.Delete(models.UserRef(userID))
		b.Delete(models.SalespersonRef(userID))
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "credential deleted but salesperson documents remain",
			"user_id", userID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		derr := dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete salesperson records")
		s.reject(ctx, "delete", derr)
		return nil, derr
	}

	s.metrics.IncSalespeopleDeleted()
	s.logAudit(ctx, audit.ActionSalespersonDeleted,
		"user_id", userID.String(),
		"actor_id", caller.ID.String(),
	)
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionSalespersonDeleted,
		UserID:  userID,
		ActorID: caller.ID,
	})

	return &models.DeleteSalespersonResult{Success: true}, nil
}

// BootstrapAdmin creates a super_admin account without an authorization
// check. It backs the operator command that seeds the first administrator
// and is not reachable over HTTP.
func (s *Service) BootstrapAdmin(ctx context.Context, name, email, password string) (id.UserID, error) {
	req := models.CreateSalespersonRequest{Name: name, Email: email, Password: password}
	req.Normalize()
	if err := s.validateRequest(req); err != nil {
		return id.UserID{}, err
	}

	userID, err := s.identity.CreateCredential(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeUnknown, err.Error())
	}
	err = s.store.RunBatch(ctx, func(b docstore.Batch) error {
		b.Set(models.UserRef(userID), models.UserRecord{
			Name:  req.Name,
			Email: req.Email,
			Role:  models.RoleSuperAdmin,
		}.Document())
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "admin document not written, credential is orphaned",
			"user_id", userID.String(),
			"error", err,
		)
		return id.UserID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store admin record")
	}

	s.logAudit(ctx, audit.ActionAdminBootstrapped, "user_id", userID.String())
	s.emitAudit(ctx, audit.Event{
		Action: audit.ActionAdminBootstrapped,
		UserID: userID,
		Email:  req.Email,
	})
	return userID, nil
}

// ensureSalesperson refuses to delete accounts of any other role. An absent
// users document is allowed so repeated deletes and orphan cleanup succeed.
func (s *Service) ensureSalesperson(ctx context.Context, userID id.UserID) error {
	doc, err := s.store.Get(ctx, models.UserRef(userID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load salesperson")
	}
	if models.RoleOf(doc) != models.RoleSalesperson {
		return dErrors.New(dErrors.CodePermissionDenied, "only salesperson accounts can be deleted")
	}
	return nil
}

func (s *Service) validateRequest(req models.CreateSalespersonRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return dErrors.Wrap(err, dErrors.CodeInvalidArgument, "invalid request")
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return dErrors.New(dErrors.CodeInvalidArgument,
		"incomplete data: name, email and password are required (missing "+strings.Join(missing, ", ")+")")
}

func (s *Service) reject(ctx context.Context, operation string, err error) {
	code := dErrors.CodeOf(err)
	s.metrics.IncAccountRejection(operation, string(code))
	s.logger.WarnContext(ctx, "account operation rejected",
		"operation", operation,
		"code", string(code),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) logAudit(ctx context.Context, event audit.Action, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	s.logger.InfoContext(ctx, string(event), args...)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event",
			"event", string(event.Action),
			"user_id", event.UserID.String(),
			"error", err,
		)
	}
}
