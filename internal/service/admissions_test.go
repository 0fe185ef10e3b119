package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/admissions-portal/portal/internal/apperrors"
	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/ids"
	"github.com/admissions-portal/portal/internal/model"
	"github.com/admissions-portal/portal/internal/queue"
	"github.com/admissions-portal/portal/internal/repository"
)

var (
	applicant = auth.Identity{UserID: "U1001", Role: model.RoleApplicant}
	admin     = auth.Identity{UserID: "ADMIN_001", Role: model.RoleAdmin}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ApplicationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ApplicationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func newCSVStore(t *testing.T) (*repository.CSVStore, string) {
	t.Helper()
	dir := t.TempDir()
	programs := "program_id,name,dept,median_days\n" +
		"P101,Bachelor in Communication,Arts,35\n" +
		"P109,Bachelor in Computer Science,Engineering,50\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "programs.csv"), []byte(programs), 0o644))
	s, err := repository.NewCSVStore(dir, ids.New(ids.Count))
	require.NoError(t, err)
	return s, dir
}

func newAdmissions(store repository.Store) (*Admissions, *recordingPublisher) {
	pub := &recordingPublisher{}
	a := NewAdmissions(store, pub, zap.NewNop())
	a.now = func() time.Time { return time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC) }
	return a, pub
}

func validForm() SubmissionForm {
	return SubmissionForm{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DOB:         "2007-05-01",
		Gender:      "Female",
		Country:     "UK",
		City:        "London",
		GPA:         "3.8",
		SATScore:    "1450",
		Scholarship: true,
		Achievement: "Math Olympiad Gold",
		ProgramID:   "P109",
		SOPText:     "Engines fascinate me.",
	}
}

func readCSV(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(b)
}

func TestSubmitCreatesConsistentRecords(t *testing.T) {
	store, dir := newCSVStore(t)
	svc, pub := newAdmissions(store)

	res, err := svc.Submit(context.Background(), applicant, validForm())
	require.NoError(t, err)
	assert.Equal(t, "APP9001", res.ApplicationID)
	assert.Equal(t, "A5001", res.ApplicantID)
	assert.Equal(t, "P1001", res.ProfileID)
	assert.NotEmpty(t, res.AchievementID)
	assert.Equal(t, 3.8, res.GPA)

	rows, err := store.MasterRows(context.Background(), "U1001")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	app := rows[0].Application
	assert.Equal(t, model.StatusWaitlisted, app.Status)
	assert.False(t, app.FeesPaid)
	assert.Equal(t, "P109", app.ProgramID)
	assert.Equal(t, "A5001", app.ApplicantID)
	assert.Equal(t, "2026-10-14", app.SubmissionDate.Format("2006-01-02"))
	assert.Equal(t, 2, rows[0].Applicant.AgeRangeID)

	assert.Contains(t, readCSV(t, dir, "academic_profile.csv"), "P1001,A5001,3.8,1450,True")
	achievements := strings.Split(strings.TrimSpace(readCSV(t, dir, "student_achievements.csv")), "\n")
	require.Len(t, achievements, 2)
	assert.Equal(t, res.AchievementID+",A5001,Math Olympiad Gold,2026-10-14", achievements[1])

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, queue.SubmittedQueue, ev.Type)
	assert.Equal(t, "APP9001", ev.ApplicationID)
	assert.Equal(t, "U1001", ev.Actor)
	assert.Equal(t, "csv", ev.Backend)
	assert.Equal(t, "2026-10-14T09:30:00Z", ev.OccurredAt)
}

func TestSubmitDefaultsOptionalFields(t *testing.T) {
	store, dir := newCSVStore(t)
	svc, _ := newAdmissions(store)

	form := SubmissionForm{FirstName: " Grace ", LastName: "Hopper", ProgramID: "P101", Achievement: "   "}
	_, err := svc.Submit(context.Background(), applicant, form)
	require.NoError(t, err)

	assert.Contains(t, readCSV(t, dir, "applicants.csv"), "A5001,U1001,Grace,Hopper,2000-01-01,4,Other,Unknown,Unknown,False")
	assert.Contains(t, readCSV(t, dir, "academic_profile.csv"), "P1001,A5001,0,0,False")
	_, err = os.Stat(filepath.Join(dir, "student_achievements.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestSubmitValidationWritesNothing(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*SubmissionForm)
		field string
	}{
		{"empty first name", func(f *SubmissionForm) { f.FirstName = "  " }, "first_name"},
		{"empty last name", func(f *SubmissionForm) { f.LastName = "" }, "last_name"},
		{"missing program", func(f *SubmissionForm) { f.ProgramID = "" }, "program_id"},
		{"gpa not a number", func(f *SubmissionForm) { f.GPA = "abc" }, "gpa"},
		{"gpa out of range", func(f *SubmissionForm) { f.GPA = "7.5" }, "gpa"},
		{"sat out of range", func(f *SubmissionForm) { f.SATScore = "2000" }, "sat_score"},
		{"bad dob", func(f *SubmissionForm) { f.DOB = "01/05/2007" }, "dob"},
		{"achievement too long", func(f *SubmissionForm) { f.Achievement = strings.Repeat("a", 256) }, "achievement"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := newCSVStore(t)
			svc, pub := newAdmissions(store)
			form := validForm()
			tt.edit(&form)

			_, err := svc.Submit(context.Background(), applicant, form)
			require.ErrorIs(t, err, apperrors.ErrValidation)
			var ae *apperrors.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.field, ae.Field)

			for _, name := range []string{"applicants.csv", "applications.csv", "academic_profile.csv", "student_achievements.csv"} {
				_, statErr := os.Stat(filepath.Join(dir, name))
				assert.True(t, os.IsNotExist(statErr), name)
			}
			assert.Empty(t, pub.events)
		})
	}
}

func TestSubmitRequiresApplicantIdentity(t *testing.T) {
	store, _ := newCSVStore(t)
	svc, _ := newAdmissions(store)

	_, err := svc.Submit(context.Background(), admin, validForm())
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
	_, err = svc.Submit(context.Background(), auth.Anonymous, validForm())
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}

func TestSubmitUnknownProgram(t *testing.T) {
	store, _ := newCSVStore(t)
	svc, pub := newAdmissions(store)
	form := validForm()
	form.ProgramID = "P404"

	_, err := svc.Submit(context.Background(), applicant, form)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, pub.events)
}

// collidingStore reports an identifier collision for the first n calls.
type collidingStore struct {
	repository.Store
	failures int
	calls    int
}

func (s *collidingStore) CreateSubmission(ctx context.Context, sub model.Submission) (model.Submission, error) {
	s.calls++
	if s.calls <= s.failures {
		return sub, apperrors.Concurrency("insert applicant", assert.AnError)
	}
	return s.Store.CreateSubmission(ctx, sub)
}

func TestSubmitRetriesIdentifierCollisions(t *testing.T) {
	base, _ := newCSVStore(t)
	store := &collidingStore{Store: base, failures: 2}
	svc, _ := newAdmissions(store)

	res, err := svc.Submit(context.Background(), applicant, validForm())
	require.NoError(t, err)
	assert.Equal(t, "APP9001", res.ApplicationID)
	assert.Equal(t, 3, store.calls)
}

func TestSubmitGivesUpAfterThreeCollisions(t *testing.T) {
	base, _ := newCSVStore(t)
	store := &collidingStore{Store: base, failures: 10}
	svc, _ := newAdmissions(store)

	_, err := svc.Submit(context.Background(), applicant, validForm())
	assert.ErrorIs(t, err, apperrors.ErrConcurrency)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, maxSubmitAttempts, store.calls)
}

func TestDecide(t *testing.T) {
	store, _ := newCSVStore(t)
	svc, pub := newAdmissions(store)
	ctx := context.Background()
	res, err := svc.Submit(ctx, applicant, validForm())
	require.NoError(t, err)

	status, err := svc.Decide(ctx, admin, res.ApplicationID, "accept")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, status)

	status, err = svc.Decide(ctx, admin, res.ApplicationID, "ACCEPT")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, status)

	rows, err := store.MasterRows(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, rows[0].Application.Status)

	require.Len(t, pub.events, 3)
	assert.Equal(t, queue.DecidedQueue, pub.events[2].Type)
	assert.Equal(t, "ADMIN_001", pub.events[2].Actor)

	status, err = svc.Decide(ctx, admin, res.ApplicationID, "reject")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, status)
}

func TestDecideErrors(t *testing.T) {
	store, _ := newCSVStore(t)
	svc, _ := newAdmissions(store)
	ctx := context.Background()
	res, err := svc.Submit(ctx, applicant, validForm())
	require.NoError(t, err)

	_, err = svc.Decide(ctx, applicant, res.ApplicationID, "accept")
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	_, err = svc.Decide(ctx, admin, res.ApplicationID, "enroll")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Decide(ctx, admin, "APP0001", "accept")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Decide(ctx, admin, "", "accept")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	rows, err := store.MasterRows(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitlisted, rows[0].Application.Status)
}
