package repository

import (
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/admissions-portal/portal/internal/model"
)

// CSV file names, one per table.
const (
	usersFile        = "users.csv"
	applicantsFile   = "applicants.csv"
	applicationsFile = "applications.csv"
	programsFile     = "programs.csv"
	profilesFile     = "academic_profile.csv"
	achievementsFile = "student_achievements.csv"
	rolesFile        = "roles.csv"
	ageRangesFile    = "age_ranges.csv"
)

var (
	usersHeader        = []string{"user_id", "email", "password_hash", "role_id", "created_at"}
	applicantsHeader   = []string{"applicant_id", "user_id", "first_name", "last_name", "dob", "age_range_id", "gender", "country", "city", "is_first_generation"}
	applicationsHeader = []string{"application_id", "applicant_id", "program_id", "status", "submission_date", "days_to_submit", "fees_paid", "sop_text", "admin_comments"}
	programsHeader     = []string{"program_id", "name", "dept", "median_days"}
	profilesHeader     = []string{"profile_id", "applicant_id", "high_school_gpa", "sat_score", "scholarship_requested"}
	achievementsHeader = []string{"id", "applicant_id", "achievement_name", "date_awarded"}
	rolesHeader        = []string{"role_id", "name"}
	ageRangesHeader    = []string{"range_id", "min", "max", "label"}
)

// sheet is one CSV file held in memory as raw records. Records are kept
// verbatim, malformed ones included, so rewriting a sheet never loses
// data it could not decode.
type sheet struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func newSheet(header []string) *sheet {
	sh := &sheet{header: append([]string(nil), header...)}
	sh.reindex()
	return sh
}

func (sh *sheet) reindex() {
	sh.index = make(map[string]int, len(sh.header))
	for i, h := range sh.header {
		sh.index[strings.TrimSpace(h)] = i
	}
}

// readSheet loads path. A missing or empty file yields an empty sheet
// with the given header. Lines the CSV reader cannot parse are dropped.
func readSheet(path string, header []string) (*sheet, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newSheet(header), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	first, err := r.Read()
	if errors.Is(err, io.EOF) {
		return newSheet(header), nil
	}
	if err != nil {
		return nil, err
	}
	sh := newSheet(first)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sh.rows = append(sh.rows, rec)
	}
	return sh, nil
}

// valid reports whether rec has exactly one field per header column.
func (sh *sheet) valid(rec []string) bool {
	return len(rec) == len(sh.header)
}

// records returns the well-formed data rows.
func (sh *sheet) records() [][]string {
	out := make([][]string, 0, len(sh.rows))
	for _, rec := range sh.rows {
		if sh.valid(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (sh *sheet) get(rec []string, col string) string {
	i, ok := sh.index[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (sh *sheet) set(rec []string, col, val string) bool {
	i, ok := sh.index[col]
	if !ok || i >= len(rec) {
		return false
	}
	rec[i] = val
	return true
}

// add appends a record laid out in the sheet's own column order. Columns
// the sheet does not have are dropped; columns missing from values are
// left blank.
func (sh *sheet) add(values map[string]string) {
	rec := make([]string, len(sh.header))
	for col, v := range values {
		if i, ok := sh.index[col]; ok {
			rec[i] = v
		}
	}
	sh.rows = append(sh.rows, rec)
}

// state returns what the id generator needs to know about col.
func (sh *sheet) state(col string) (count int, last string) {
	recs := sh.records()
	if len(recs) == 0 {
		return 0, ""
	}
	return len(recs), sh.get(recs[len(recs)-1], col)
}

// idSet returns every non-empty value of col.
func (sh *sheet) idSet(col string) map[string]struct{} {
	set := make(map[string]struct{}, len(sh.rows))
	for _, rec := range sh.records() {
		if v := sh.get(rec, col); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func (sh *sheet) write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sh.header); err != nil {
		return err
	}
	if err := cw.WriteAll(sh.rows); err != nil {
		return err
	}
	return cw.Error()
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// parseInt accepts "12" and the "12.0" form pandas writes for columns
// that once held a blank.
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// parseDate returns the zero time for blank or unparsable values.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func encodeUser(u model.User) map[string]string {
	return map[string]string{
		"user_id":       u.UserID,
		"email":         normalizeEmail(u.Email),
		"password_hash": u.PasswordHash,
		"role_id":       strconv.Itoa(int(u.RoleID)),
		"created_at":    formatDate(u.CreatedAt),
	}
}

func decodeUser(sh *sheet, rec []string) model.User {
	return model.User{
		UserID:       sh.get(rec, "user_id"),
		Email:        sh.get(rec, "email"),
		PasswordHash: sh.get(rec, "password_hash"),
		RoleID:       model.Role(parseInt(sh.get(rec, "role_id"))),
		CreatedAt:    parseDate(sh.get(rec, "created_at")),
	}
}

func encodeApplicant(a model.Applicant) map[string]string {
	return map[string]string{
		"applicant_id":        a.ApplicantID,
		"user_id":             a.UserID,
		"first_name":          a.FirstName,
		"last_name":           a.LastName,
		"dob":                 formatDate(a.DOB),
		"age_range_id":        strconv.Itoa(a.AgeRangeID),
		"gender":              a.Gender,
		"country":             a.Country,
		"city":                a.City,
		"is_first_generation": formatBool(a.IsFirstGeneration),
	}
}

func decodeApplicant(sh *sheet, rec []string) model.Applicant {
	return model.Applicant{
		ApplicantID:       sh.get(rec, "applicant_id"),
		UserID:            sh.get(rec, "user_id"),
		FirstName:         sh.get(rec, "first_name"),
		LastName:          sh.get(rec, "last_name"),
		DOB:               parseDate(sh.get(rec, "dob")),
		AgeRangeID:        parseInt(sh.get(rec, "age_range_id")),
		Gender:            sh.get(rec, "gender"),
		Country:           sh.get(rec, "country"),
		City:              sh.get(rec, "city"),
		IsFirstGeneration: parseBool(sh.get(rec, "is_first_generation")),
	}
}

func encodeApplication(a model.Application) map[string]string {
	return map[string]string{
		"application_id":  a.ApplicationID,
		"applicant_id":    a.ApplicantID,
		"program_id":      a.ProgramID,
		"status":          a.Status,
		"submission_date": formatDate(a.SubmissionDate),
		"days_to_submit":  strconv.Itoa(a.DaysToSubmit),
		"fees_paid":       formatBool(a.FeesPaid),
		"sop_text":        a.SOPText,
		"admin_comments":  a.AdminComments,
	}
}

func decodeApplication(sh *sheet, rec []string) model.Application {
	return model.Application{
		ApplicationID:  sh.get(rec, "application_id"),
		ApplicantID:    sh.get(rec, "applicant_id"),
		ProgramID:      sh.get(rec, "program_id"),
		Status:         sh.get(rec, "status"),
		SubmissionDate: parseDate(sh.get(rec, "submission_date")),
		DaysToSubmit:   parseInt(sh.get(rec, "days_to_submit")),
		FeesPaid:       parseBool(sh.get(rec, "fees_paid")),
		SOPText:        sh.get(rec, "sop_text"),
		AdminComments:  sh.get(rec, "admin_comments"),
	}
}

func encodeProfile(p model.AcademicProfile) map[string]string {
	return map[string]string{
		"profile_id":            p.ProfileID,
		"applicant_id":          p.ApplicantID,
		"high_school_gpa":       strconv.FormatFloat(p.GPA, 'f', -1, 64),
		"sat_score":             strconv.Itoa(p.SATScore),
		"scholarship_requested": formatBool(p.ScholarshipRequested),
	}
}

func decodeProfile(sh *sheet, rec []string) model.AcademicProfile {
	return model.AcademicProfile{
		ProfileID:            sh.get(rec, "profile_id"),
		ApplicantID:          sh.get(rec, "applicant_id"),
		GPA:                  parseFloat(sh.get(rec, "high_school_gpa")),
		SATScore:             parseInt(sh.get(rec, "sat_score")),
		ScholarshipRequested: parseBool(sh.get(rec, "scholarship_requested")),
	}
}

func encodeAchievement(a model.Achievement) map[string]string {
	return map[string]string{
		"id":               a.ID,
		"applicant_id":     a.ApplicantID,
		"achievement_name": a.Name,
		"date_awarded":     formatDate(a.DateAwarded),
	}
}

func decodeAchievement(sh *sheet, rec []string) model.Achievement {
	return model.Achievement{
		ID:          sh.get(rec, "id"),
		ApplicantID: sh.get(rec, "applicant_id"),
		Name:        sh.get(rec, "achievement_name"),
		DateAwarded: parseDate(sh.get(rec, "date_awarded")),
	}
}

func encodeProgram(p model.Program) map[string]string {
	return map[string]string{
		"program_id":  p.ProgramID,
		"name":        p.Name,
		"dept":        p.Dept,
		"median_days": strconv.Itoa(p.MedianDays),
	}
}

func decodeProgram(sh *sheet, rec []string) model.Program {
	return model.Program{
		ProgramID:  sh.get(rec, "program_id"),
		Name:       sh.get(rec, "name"),
		Dept:       sh.get(rec, "dept"),
		MedianDays: parseInt(sh.get(rec, "median_days")),
	}
}

func encodeRole(r model.RoleRow) map[string]string {
	return map[string]string{"role_id": strconv.Itoa(int(r.RoleID)), "name": r.Name}
}

func encodeAgeRange(r model.AgeRange) map[string]string {
	return map[string]string{
		"range_id": strconv.Itoa(r.RangeID),
		"min":      strconv.Itoa(r.Min),
		"max":      strconv.Itoa(r.Max),
		"label":    r.Label,
	}
}

// decodeAll decodes every well-formed record of sh.
func decodeAll[T any](sh *sheet, decode func(*sheet, []string) T) []T {
	recs := sh.records()
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decode(sh, rec))
	}
	return out
}

// sheetOf builds a fresh sheet holding items.
func sheetOf[T any](header []string, items []T, encode func(T) map[string]string) *sheet {
	sh := newSheet(header)
	for _, it := range items {
		sh.add(encode(it))
	}
	return sh
}
