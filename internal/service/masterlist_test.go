package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/admissions-portal/portal/internal/apperrors"
	"github.com/admissions-portal/portal/internal/model"
	"github.com/admissions-portal/portal/internal/repository"
)

// rowsStore serves fixed master rows.
type rowsStore struct {
	repository.Store
	rows []model.MasterRow
	err  error
}

func (s rowsStore) MasterRows(_ context.Context, userID string) ([]model.MasterRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []model.MasterRow
	for _, r := range s.rows {
		if userID == "" || r.Applicant.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func row(appID, userID, programID string, submitted time.Time) model.MasterRow {
	email := userID + "@mail.com"
	return model.MasterRow{
		Application: model.Application{ApplicationID: appID, ApplicantID: "A" + appID, ProgramID: programID, Status: model.StatusWaitlisted, SubmissionDate: submitted},
		Applicant:   model.Applicant{ApplicantID: "A" + appID, UserID: userID, FirstName: "F", LastName: "L", DOB: day(2005, 1, 2)},
		Program:     &model.Program{ProgramID: programID, Name: "Program " + programID, Dept: "Dept", MedianDays: 40},
		Email:       &email,
	}
}

func fixtureRows() []model.MasterRow {
	orphan := row("APP9004", "U9", "P404", day(2025, 6, 1))
	orphan.Program = nil
	orphan.Email = nil
	orphan.Applicant.Gender = ""
	orphan.Applicant.DOB = time.Time{}

	return []model.MasterRow{
		row("APP9001", "U1", "P101", day(2024, 3, 5)),
		row("APP9003", "U2", "P109", day(2025, 9, 9)),
		row("APP9002", "U1", "P109", day(2025, 9, 9)),
		orphan,
		row("APP9005", "U3", "P101", time.Time{}),
		row("APP9006", "U3", "P101", day(2025, 1, 1)),
	}
}

func TestBuildSortsNewestFirstWithStableTies(t *testing.T) {
	ml := NewMasterList(rowsStore{rows: fixtureRows()}, zap.NewNop())

	list, err := ml.Build(context.Background())
	require.NoError(t, err)

	var order []string
	for _, r := range list {
		order = append(order, r.ApplicationID)
	}
	assert.Equal(t, []string{"APP9002", "APP9003", "APP9004", "APP9006", "APP9001", "APP9005"}, order)
	assert.Equal(t, "2025-09-09", list[0].SubmissionDate)
	assert.Equal(t, "2005-01-02", list[0].DOB)
	assert.Equal(t, "U1@mail.com", list[0].Email)
	assert.Equal(t, "Program P109", list[0].ProgramName)
}

func TestBuildSubstitutesSentinels(t *testing.T) {
	ml := NewMasterList(rowsStore{rows: fixtureRows()}, zap.NewNop())

	list, err := ml.Build(context.Background())
	require.NoError(t, err)

	var orphan MasterRecord
	for _, r := range list {
		if r.ApplicationID == "APP9004" {
			orphan = r
		}
	}
	assert.Equal(t, Unknown, orphan.ProgramName)
	assert.Equal(t, Unknown, orphan.Dept)
	assert.Equal(t, 0, orphan.MedianDays)
	assert.Equal(t, Unknown, orphan.Email)
	assert.Equal(t, Unknown, orphan.Gender)
	assert.Equal(t, Unknown, orphan.DOB)
	assert.Equal(t, "P404", orphan.ProgramID)

	assert.Equal(t, Unknown, list[len(list)-1].SubmissionDate)
}

func TestYearFiltered(t *testing.T) {
	ml := NewMasterList(rowsStore{rows: fixtureRows()}, zap.NewNop())
	list, err := ml.Build(context.Background())
	require.NoError(t, err)

	in2025 := YearFiltered(list, 2025)
	require.Len(t, in2025, 4)
	for i := 1; i < len(in2025); i++ {
		assert.False(t, in2025[i].SubmittedAt.After(in2025[i-1].SubmittedAt))
	}
	assert.Len(t, YearFiltered(list, 2024), 1)
	assert.Empty(t, YearFiltered(list, 2019))
}

func TestForUser(t *testing.T) {
	ml := NewMasterList(rowsStore{rows: fixtureRows()}, zap.NewNop())

	mine := ml.ForUser(context.Background(), "U1")
	require.Len(t, mine, 2)
	assert.Equal(t, "APP9002", mine[0].ApplicationID)
	assert.Equal(t, "APP9001", mine[1].ApplicationID)

	assert.Empty(t, ml.ForUser(context.Background(), "U404"))
	assert.Empty(t, ml.ForUser(context.Background(), ""))
}

func TestForUserSwallowsBackendErrors(t *testing.T) {
	broken := rowsStore{err: apperrors.Persistence("read applications.csv", errors.New("permission denied"))}
	ml := NewMasterList(broken, zap.NewNop())

	assert.Empty(t, ml.ForUser(context.Background(), "U1"))
	_, err := ml.Build(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
}
