// Package pipeline runs the fetch, session check and parse steps of each skyward operation.
package pipeline

import (
	"context"
	"errors"
	"skyward-backend/lib/assert"
	"skyward-backend/lib/skyerr"
	"skyward-backend/lib/skyward/breakdown"
	"skyward-backend/lib/skyward/client"
	"skyward-backend/lib/skyward/gradebook"
	"skyward-backend/lib/skyward/history"
	"skyward-backend/lib/skyward/reconcile"
	"skyward-backend/lib/skyward/report"
	"skyward-backend/lib/skyward/session"
	"skyward-backend/lib/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("skyward/pipeline")

const (
	report_pipeline_reauth      = "pipeline.reauth"
	report_pipeline_reauth_fail = "pipeline.reauth-failed"
)

// Fetcher returns raw portal documents, *client.Client is the live implementation.
type Fetcher interface {
	FetchGradebook(ctx context.Context, codes session.Codes) (string, error)
	FetchHistory(ctx context.Context, codes session.Codes) (string, error)
	FetchGradeInfo(ctx context.Context, codes session.Codes, req client.GradeInfoRequest) (string, error)
}

type Authenticator interface {
	// Codes returns the current session codes.
	Codes(ctx context.Context) (session.Codes, error)
	// Refresh is called after the portal rejected the current codes.
	Refresh(ctx context.Context) (session.Codes, error)
}

// StaticAuthenticator serves a fixed set of codes, refreshing does nothing.
type StaticAuthenticator struct {
	codes session.Codes
}

func NewStaticAuthenticator(codes session.Codes) StaticAuthenticator {
	return StaticAuthenticator{codes: codes}
}

func (a StaticAuthenticator) Codes(ctx context.Context) (session.Codes, error) {
	return a.codes, a.codes.Validate()
}

func (a StaticAuthenticator) Refresh(ctx context.Context) (session.Codes, error) {
	return a.codes, a.codes.Validate()
}

type Service struct {
	fetcher    Fetcher
	auth       Authenticator
	gradebook  gradebook.Parser
	report     report.Parser
	reconciler reconcile.Reconciler
	tel        telemetry.API
}

func New(fetcher Fetcher, auth Authenticator, index *gradebook.CourseIndex, tel telemetry.API) Service {
	assert.NotNil(fetcher)
	assert.NotNil(auth)
	assert.NotNil(index)
	assert.NotNil(tel)

	return Service{
		fetcher:    fetcher,
		auth:       auth,
		gradebook:  gradebook.NewParser(index, tel),
		report:     report.NewParser(tel),
		reconciler: reconcile.NewReconciler(tel),
		tel:        telemetry.NewScopedAPI("pipeline", tel),
	}
}

// withSession runs fn with the current codes, when fn fails with SessionInvalid the codes are
// refreshed and fn is called exactly once more.
func withSession[T any](ctx context.Context, s Service, operation string, fn func(ctx context.Context, c session.Codes) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, operation)
	defer span.End()

	fail := func(err error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	var empty T
	current, err := s.auth.Codes(ctx)
	if err != nil {
		fail(err)
		return empty, err
	}

	out, err := fn(ctx, current)
	if !errors.Is(err, skyerr.ErrSessionInvalid) {
		if err != nil {
			fail(err)
		}
		return out, err
	}

	s.tel.ReportWarning(report_pipeline_reauth, operation, err)
	span.SetAttributes(attribute.Bool("reauthenticated", true))

	current, err = s.auth.Refresh(ctx)
	if err != nil {
		s.tel.ReportBroken(report_pipeline_reauth_fail, operation, err)
		fail(err)
		return empty, err
	}
	out, err = fn(ctx, current)
	if err != nil {
		fail(err)
	}
	return out, err
}

func (s Service) fetchGradebook(ctx context.Context, c session.Codes) (string, error) {
	document, err := s.fetcher.FetchGradebook(ctx, c)
	if err != nil {
		return "", err
	}
	return document, session.Detect(document)
}

func (s Service) fetchHistory(ctx context.Context, c session.Codes) (string, error) {
	document, err := s.fetcher.FetchHistory(ctx, c)
	if err != nil {
		return "", err
	}
	return document, session.Detect(document)
}

// Grades fetches and parses the gradebook.
func (s Service) Grades(ctx context.Context) (gradebook.CourseRecord, error) {
	return withSession(ctx, s, "grades", func(ctx context.Context, c session.Codes) (gradebook.CourseRecord, error) {
		document, err := s.fetchGradebook(ctx, c)
		if err != nil {
			return nil, err
		}
		return s.gradebook.ParseDocument(ctx, document)
	})
}

// History fetches and condenses the academic history.
func (s Service) History(ctx context.Context) (*history.AcademicHistory, error) {
	return withSession(ctx, s, "history", func(ctx context.Context, c session.Codes) (*history.AcademicHistory, error) {
		document, err := s.fetchHistory(ctx, c)
		if err != nil {
			return nil, err
		}
		return history.CondenseDocument(ctx, document)
	})
}

type documents struct {
	gradebook string
	history   string
}

func (s Service) fetchBoth(ctx context.Context, c session.Codes) (documents, error) {
	gradebookDoc, err := s.fetchGradebook(ctx, c)
	if err != nil {
		return documents{}, err
	}
	historyDoc, err := s.fetchHistory(ctx, c)
	if err != nil {
		return documents{}, err
	}
	return documents{gradebook: gradebookDoc, history: historyDoc}, nil
}

// Report fetches both pages and parses the per-course score report.
func (s Service) Report(ctx context.Context) (*report.Report, error) {
	return withSession(ctx, s, "report", func(ctx context.Context, c session.Codes) (*report.Report, error) {
		docs, err := s.fetchBoth(ctx, c)
		if err != nil {
			return nil, err
		}
		return s.report.ParseDocuments(ctx, docs.gradebook, docs.history)
	})
}

// Combined returns the academic history with the current year replaced by the report.
func (s Service) Combined(ctx context.Context) (*history.AcademicHistory, error) {
	return withSession(ctx, s, "combined", func(ctx context.Context, c session.Codes) (*history.AcademicHistory, error) {
		docs, err := s.fetchBoth(ctx, c)
		if err != nil {
			return nil, err
		}
		hist, err := history.CondenseDocument(ctx, docs.history)
		if err != nil {
			return nil, err
		}
		rep, err := s.report.ParseDocuments(ctx, docs.gradebook, docs.history)
		if err != nil {
			return nil, err
		}
		return s.reconciler.Combine(ctx, hist, rep)
	})
}

// Breakdown fetches and parses one grade info dialog.
func (s Service) Breakdown(ctx context.Context, req client.GradeInfoRequest) (breakdown.Breakdown, error) {
	return withSession(ctx, s, "breakdown", func(ctx context.Context, c session.Codes) (breakdown.Breakdown, error) {
		document, err := s.fetcher.FetchGradeInfo(ctx, c, req)
		if err != nil {
			return breakdown.Breakdown{}, err
		}
		err = session.Detect(document)
		if err != nil {
			return breakdown.Breakdown{}, err
		}
		return breakdown.Parse(ctx, document)
	})
}
