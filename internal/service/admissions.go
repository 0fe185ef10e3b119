package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/admissions-portal/portal/internal/apperrors"
	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/metrics"
	"github.com/admissions-portal/portal/internal/model"
	"github.com/admissions-portal/portal/internal/queue"
	"github.com/admissions-portal/portal/internal/repository"
)

// maxSubmitAttempts bounds retries after an identifier collision.
const maxSubmitAttempts = 3

// Defaults for optional applicant fields.
const (
	defaultDOB     = "2000-01-01"
	defaultGender  = "Other"
	defaultUnknown = "Unknown"
)

// Decision actions accepted by Decide.
var decisions = map[string]string{
	"accept": model.StatusAccepted,
	"reject": model.StatusRejected,
}

// SubmissionForm is the raw application form. Text fields are trimmed
// before validation; the two checkbox fields are true when present.
type SubmissionForm struct {
	FirstName   string `form:"first_name"`
	LastName    string `form:"last_name"`
	DOB         string `form:"dob"`
	Gender      string `form:"gender"`
	Country     string `form:"country"`
	City        string `form:"city"`
	GPA         string `form:"gpa"`
	SATScore    string `form:"sat_score"`
	IsFirstGen  bool   `form:"is_first_gen"`
	Scholarship bool   `form:"scholarship"`
	Achievement string `form:"achievement"`
	ProgramID   string `form:"program_id"`
	SOPText     string `form:"sop_text"`
}

// submissionInput is the parsed form that validation runs against.
type submissionInput struct {
	FirstName   string    `form:"first_name" validate:"required,max=100"`
	LastName    string    `form:"last_name" validate:"required,max=100"`
	ProgramID   string    `form:"program_id" validate:"required,max=20"`
	Gender      string    `form:"gender" validate:"max=20"`
	Country     string    `form:"country" validate:"max=100"`
	City        string    `form:"city" validate:"max=100"`
	Achievement string    `form:"achievement" validate:"max=255"`
	GPA         float64   `form:"gpa" validate:"gte=0,lte=5"`
	SATScore    int       `form:"sat_score" validate:"gte=0,lte=1600"`
	DOB         time.Time
}

// SubmissionResult lists the identifiers assigned to a new application.
type SubmissionResult struct {
	ApplicationID string
	ApplicantID   string
	ProfileID     string
	AchievementID string // empty when no achievement was recorded
	GPA           float64
}

// Admissions creates applications and records admin decisions.
type Admissions struct {
	store  repository.Store
	events queue.Publisher
	log    *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewAdmissions returns an Admissions service. A nil publisher disables
// events.
func NewAdmissions(store repository.Store, events queue.Publisher, log *zap.Logger) *Admissions {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &Admissions{
		store:  store,
		events: events,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Submit validates form and writes the applicant, application, academic
// profile and optional achievement as one unit owned by id.
func (a *Admissions) Submit(ctx context.Context, id auth.Identity, form SubmissionForm) (SubmissionResult, error) {
	if !id.IsApplicant() {
		return SubmissionResult{}, apperrors.Unauthorized("log in as an applicant to submit an application")
	}
	sub, err := a.buildSubmission(id, form)
	if err != nil {
		metrics.SubmissionsFailed.WithLabelValues(failureReason(err)).Inc()
		return SubmissionResult{}, err
	}

	var saved model.Submission
	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		saved, err = a.store.CreateSubmission(ctx, sub)
		if !errors.Is(err, apperrors.ErrConcurrency) {
			break
		}
		a.log.Warn("identifier collision on submit", zap.Int("attempt", attempt), zap.Error(err))
	}
	if err != nil {
		metrics.SubmissionsFailed.WithLabelValues(failureReason(err)).Inc()
		if apperrors.IsRetryable(err) {
			a.log.Error("submit application failed", zap.String("user_id", id.UserID), zap.Error(err))
		}
		return SubmissionResult{}, err
	}

	metrics.ApplicationsSubmitted.WithLabelValues(a.store.Backend()).Inc()
	a.log.Info("application submitted",
		zap.String("application_id", saved.Application.ApplicationID),
		zap.String("applicant_id", saved.Applicant.ApplicantID),
		zap.String("program_id", saved.Application.ProgramID))

	a.publish(ctx, queue.ApplicationEvent{
		Type:          queue.SubmittedQueue,
		ApplicationID: saved.Application.ApplicationID,
		ApplicantID:   saved.Applicant.ApplicantID,
		ProgramID:     saved.Application.ProgramID,
		Status:        saved.Application.Status,
		Actor:         id.UserID,
	})

	res := SubmissionResult{
		ApplicationID: saved.Application.ApplicationID,
		ApplicantID:   saved.Applicant.ApplicantID,
		ProfileID:     saved.Profile.ProfileID,
		GPA:           saved.Profile.GPA,
	}
	if saved.Achievement != nil {
		res.AchievementID = saved.Achievement.ID
	}
	return res, nil
}

func (a *Admissions) buildSubmission(id auth.Identity, form SubmissionForm) (model.Submission, error) {
	in, err := parseSubmission(form)
	if err != nil {
		return model.Submission{}, err
	}
	now := a.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	sub := model.Submission{
		Applicant: model.Applicant{
			UserID:            id.UserID,
			FirstName:         in.FirstName,
			LastName:          in.LastName,
			DOB:               in.DOB,
			AgeRangeID:        model.AgeRangeID(in.DOB, today.Year()),
			Gender:            orDefault(in.Gender, defaultGender),
			Country:           orDefault(in.Country, defaultUnknown),
			City:              orDefault(in.City, defaultUnknown),
			IsFirstGeneration: form.IsFirstGen,
		},
		Application: model.Application{
			ProgramID:      in.ProgramID,
			Status:         model.StatusWaitlisted,
			SubmissionDate: today,
			DaysToSubmit:   0,
			FeesPaid:       false,
			SOPText:        strings.TrimSpace(form.SOPText),
		},
		Profile: model.AcademicProfile{
			GPA:                  in.GPA,
			SATScore:             in.SATScore,
			ScholarshipRequested: form.Scholarship,
		},
	}
	if name := strings.TrimSpace(form.Achievement); name != "" {
		sub.Achievement = &model.Achievement{ID: a.newID(), Name: name, DateAwarded: today}
	}
	return sub, nil
}

func parseSubmission(form SubmissionForm) (submissionInput, error) {
	in := submissionInput{
		FirstName:   strings.TrimSpace(form.FirstName),
		LastName:    strings.TrimSpace(form.LastName),
		ProgramID:   strings.TrimSpace(form.ProgramID),
		Gender:      strings.TrimSpace(form.Gender),
		Country:     strings.TrimSpace(form.Country),
		City:        strings.TrimSpace(form.City),
		Achievement: strings.TrimSpace(form.Achievement),
	}
	if s := strings.TrimSpace(form.GPA); s != "" {
		gpa, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return in, apperrors.Validation("gpa", "gpa must be a number")
		}
		in.GPA = gpa
	}
	if s := strings.TrimSpace(form.SATScore); s != "" {
		sat, err := strconv.Atoi(s)
		if err != nil {
			return in, apperrors.Validation("sat_score", "sat score must be a whole number")
		}
		in.SATScore = sat
	}
	dob := orDefault(strings.TrimSpace(form.DOB), defaultDOB)
	t, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return in, apperrors.Validation("dob", "date of birth must be YYYY-MM-DD")
	}
	in.DOB = t
	return in, check(in)
}

// Decide applies an admin decision. The new status overwrites whatever
// status the application had.
func (a *Admissions) Decide(ctx context.Context, id auth.Identity, applicationID, action string) (string, error) {
	if !id.IsAdmin() {
		return "", apperrors.Unauthorized("unauthorized")
	}
	status, ok := decisions[strings.ToLower(strings.TrimSpace(action))]
	if !ok {
		return "", apperrors.Validation("action", "action must be accept or reject")
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return "", apperrors.Validation("app_id", "app_id is required")
	}
	if err := a.store.UpdateStatus(ctx, applicationID, status); err != nil {
		if apperrors.IsRetryable(err) {
			a.log.Error("update application status failed", zap.String("application_id", applicationID), zap.Error(err))
		}
		return "", err
	}

	metrics.Decisions.WithLabelValues(status).Inc()
	a.log.Info("application decided",
		zap.String("application_id", applicationID),
		zap.String("status", status),
		zap.String("admin", id.UserID))
	a.publish(ctx, queue.ApplicationEvent{
		Type:          queue.DecidedQueue,
		ApplicationID: applicationID,
		Status:        status,
		Actor:         id.UserID,
	})
	return status, nil
}

// publish sends ev without failing the caller.
func (a *Admissions) publish(ctx context.Context, ev queue.ApplicationEvent) {
	ev.Backend = a.store.Backend()
	ev.OccurredAt = a.now().UTC().Format(time.RFC3339)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := a.events.Publish(pctx, ev); err != nil {
		a.log.Warn("publish application event failed", zap.String("type", ev.Type), zap.Error(err))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	case errors.Is(err, apperrors.ErrNotFound):
		return "unknown_program"
	case errors.Is(err, apperrors.ErrAuthorization):
		return "unauthorized"
	case errors.Is(err, apperrors.ErrConcurrency):
		return "concurrency"
	case errors.Is(err, apperrors.ErrPersistence):
		return "persistence"
	}
	return "other"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
