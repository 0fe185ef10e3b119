package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/admissions-portal/portal/internal/model"
	"github.com/admissions-portal/portal/internal/repository"
)

// Unknown is the sentinel shown for missing joined text fields.
const Unknown = "Unknown"

// MasterRecord is one row of the master list with every missing value
// replaced by a sentinel and every date rendered as YYYY-MM-DD.
type MasterRecord struct {
	ApplicationID     string
	ApplicantID       string
	UserID            string
	FirstName         string
	LastName          string
	Email             string
	DOB               string
	AgeRangeID        int
	Gender            string
	Country           string
	City              string
	IsFirstGeneration bool
	ProgramID         string
	ProgramName       string
	Dept              string
	MedianDays        int
	Status            string
	SubmissionDate    string
	DaysToSubmit      int
	FeesPaid          bool
	SOPText           string
	AdminComments     string

	// SubmittedAt is the parsed submission date, zero when unknown.
	SubmittedAt time.Time
}

// MasterList builds the denormalized application views.
type MasterList struct {
	store repository.Store
	log   *zap.Logger
}

func NewMasterList(store repository.Store, log *zap.Logger) *MasterList {
	return &MasterList{store: store, log: log}
}

// Build returns every application, newest submission first.
func (m *MasterList) Build(ctx context.Context) ([]MasterRecord, error) {
	rows, err := m.store.MasterRows(ctx, "")
	if err != nil {
		return nil, err
	}
	return normalize(rows), nil
}

// ForUser returns the applications owned by userID. Backend failures are
// logged and yield an empty list.
func (m *MasterList) ForUser(ctx context.Context, userID string) []MasterRecord {
	if userID == "" {
		return nil
	}
	rows, err := m.store.MasterRows(ctx, userID)
	if err != nil {
		m.log.Warn("load applications for user failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return normalize(rows)
}

// YearFiltered keeps the records submitted in year, newest first. Records
// whose submission date could not be parsed never match.
func YearFiltered(list []MasterRecord, year int) []MasterRecord {
	out := make([]MasterRecord, 0, len(list))
	for _, r := range list {
		if !r.SubmittedAt.IsZero() && r.SubmittedAt.Year() == year {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out
}

func normalize(rows []model.MasterRow) []MasterRecord {
	out := make([]MasterRecord, 0, len(rows))
	for _, row := range rows {
		app, ap := row.Application, row.Applicant
		r := MasterRecord{
			ApplicationID:     orDefault(app.ApplicationID, Unknown),
			ApplicantID:       orDefault(ap.ApplicantID, Unknown),
			UserID:            orDefault(ap.UserID, Unknown),
			FirstName:         orDefault(ap.FirstName, Unknown),
			LastName:          orDefault(ap.LastName, Unknown),
			Email:             Unknown,
			DOB:               isoDate(ap.DOB),
			AgeRangeID:        ap.AgeRangeID,
			Gender:            orDefault(ap.Gender, Unknown),
			Country:           orDefault(ap.Country, Unknown),
			City:              orDefault(ap.City, Unknown),
			IsFirstGeneration: ap.IsFirstGeneration,
			ProgramID:         orDefault(app.ProgramID, Unknown),
			ProgramName:       Unknown,
			Dept:              Unknown,
			Status:            orDefault(app.Status, Unknown),
			SubmissionDate:    isoDate(app.SubmissionDate),
			DaysToSubmit:      app.DaysToSubmit,
			FeesPaid:          app.FeesPaid,
			SOPText:           app.SOPText,
			AdminComments:     app.AdminComments,
			SubmittedAt:       app.SubmissionDate,
		}
		if row.Email != nil && *row.Email != "" {
			r.Email = *row.Email
		}
		if p := row.Program; p != nil {
			r.ProgramName = orDefault(p.Name, Unknown)
			r.Dept = orDefault(p.Dept, Unknown)
			r.MedianDays = p.MedianDays
		}
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

// sortRecords orders by submission date descending, unknown dates last,
// then by application id.
func sortRecords(list []MasterRecord) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].SubmittedAt, list[j].SubmittedAt
		if !a.Equal(b) {
			if a.IsZero() || b.IsZero() {
				return b.IsZero()
			}
			return a.After(b)
		}
		return list[i].ApplicationID < list[j].ApplicationID
	})
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return Unknown
	}
	return t.Format("2006-01-02")
}
