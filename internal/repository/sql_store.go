package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/admissions-portal/portal/internal/apperrors"
	"github.com/admissions-portal/portal/internal/ids"
	"github.com/admissions-portal/portal/internal/model"
)

// seedBatch bounds the number of rows per multi-row INSERT during Seed.
const seedBatch = 500

// SQLStore is the MySQL persistence provider. Writes that allocate
// identifiers run in a transaction that reads the sequence state with
// FOR UPDATE, so concurrent submissions queue behind each other instead
// of computing the same id.
type SQLStore struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	gen ids.Generator
}

// NewSQLStore returns a SQLStore bound to db.
func NewSQLStore(db *sql.DB, gen ids.Generator) *SQLStore {
	return &SQLStore{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		gen: gen,
	}
}

func (s *SQLStore) Backend() string { return "sql" }

func (s *SQLStore) Close() error { return s.db.Close() }

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sql.DB { return s.db }

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// nextID reads the sequence state for seq inside tx and returns the next
// identifier. The locking read holds until tx ends.
func (s *SQLStore) nextID(ctx context.Context, tx *sql.Tx, seq ids.Sequence) (string, error) {
	var st ids.State
	if s.gen.Strategy == ids.Last {
		q, args, err := s.sb.Select(seq.Column).
			From(seq.Table).
			OrderBy("LENGTH("+seq.Column+") DESC", seq.Column+" DESC").
			Limit(1).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return "", err
		}
		err = tx.QueryRowContext(ctx, q, args...).Scan(&st.LastID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
	} else {
		q, args, err := s.sb.Select("COUNT(*)").From(seq.Table).Suffix("FOR UPDATE").ToSql()
		if err != nil {
			return "", err
		}
		if err := tx.QueryRowContext(ctx, q, args...).Scan(&st.Count); err != nil {
			return "", err
		}
	}
	if s.gen.Strategy == ids.Last {
		return s.gen.Next(seq, st), nil
	}

	// count+offset lands on an existing row when the table has gaps
	for n := s.gen.NextNumber(seq, st); ; n++ {
		id := seq.Format(n)
		taken, err := s.idTaken(ctx, tx, seq, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
}

func (s *SQLStore) idTaken(ctx context.Context, tx *sql.Tx, seq ids.Sequence, id string) (bool, error) {
	q, args, err := s.sb.Select("1").From(seq.Table).Where(sq.Eq{seq.Column: id}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = tx.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	u.Email = normalizeEmail(u.Email)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return u, apperrors.Persistence("begin create user", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	taken, err := s.emailTaken(ctx, tx, u.Email)
	if err != nil {
		return u, apperrors.Persistence("check email", err)
	}
	if taken {
		return u, apperrors.Conflict("email already registered")
	}

	u.UserID, err = s.nextID(ctx, tx, ids.Users)
	if err != nil {
		return u, apperrors.Persistence("allocate user id", err)
	}
	q, args, err := s.userInsert().Values(userValues(u)...).ToSql()
	if err != nil {
		return u, apperrors.Persistence("build insert user", err)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return u, classify("insert user", err)
	}
	if err := tx.Commit(); err != nil {
		return u, apperrors.Persistence("commit create user", err)
	}
	committed = true
	return u, nil
}

func (s *SQLStore) emailTaken(ctx context.Context, tx *sql.Tx, email string) (bool, error) {
	q, args, err := s.sb.Select("1").From("users").Where(sq.Eq{"email": email}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = tx.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) UserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	q, args, err := s.sb.Select("user_id", "email", "password_hash", "role_id", "created_at").
		From("users").
		Where(sq.Eq{"email": normalizeEmail(email)}).
		Limit(1).
		ToSql()
	if err != nil {
		return u, apperrors.Persistence("build user lookup", err)
	}
	var role int
	var created sql.NullTime
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&u.UserID, &u.Email, &u.PasswordHash, &role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return u, apperrors.NotFound("user not found")
	}
	if err != nil {
		return u, apperrors.Persistence("user lookup", err)
	}
	u.RoleID = model.Role(role)
	u.CreatedAt = created.Time
	return u, nil
}

func (s *SQLStore) CreateSubmission(ctx context.Context, sub model.Submission) (model.Submission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sub, apperrors.Persistence("begin submission", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ok, err := s.programExists(ctx, tx, sub.Application.ProgramID)
	if err != nil {
		return sub, apperrors.Persistence("check program", err)
	}
	if !ok {
		return sub, apperrors.NotFound("program " + sub.Application.ProgramID + " does not exist")
	}

	if sub.Applicant.ApplicantID, err = s.nextID(ctx, tx, ids.Applicants); err != nil {
		return sub, apperrors.Persistence("allocate applicant id", err)
	}
	if sub.Application.ApplicationID, err = s.nextID(ctx, tx, ids.Applications); err != nil {
		return sub, apperrors.Persistence("allocate application id", err)
	}
	if sub.Profile.ProfileID, err = s.nextID(ctx, tx, ids.Profiles); err != nil {
		return sub, apperrors.Persistence("allocate profile id", err)
	}
	sub.Application.ApplicantID = sub.Applicant.ApplicantID
	sub.Profile.ApplicantID = sub.Applicant.ApplicantID
	if sub.Achievement != nil {
		ach := *sub.Achievement
		ach.ApplicantID = sub.Applicant.ApplicantID
		sub.Achievement = &ach
	}

	inserts := []struct {
		op string
		b  sq.InsertBuilder
	}{
		{"insert applicant", s.applicantInsert().Values(applicantValues(sub.Applicant)...)},
		{"insert application", s.applicationInsert().Values(applicationValues(sub.Application)...)},
		{"insert academic profile", s.profileInsert().Values(profileValues(sub.Profile)...)},
	}
	if sub.Achievement != nil {
		inserts = append(inserts, struct {
			op string
			b  sq.InsertBuilder
		}{"insert achievement", s.achievementInsert().Values(achievementValues(*sub.Achievement)...)})
	}
	for _, ins := range inserts {
		q, args, err := ins.b.ToSql()
		if err != nil {
			return sub, apperrors.Persistence(ins.op, err)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return sub, classify(ins.op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return sub, apperrors.Persistence("commit submission", err)
	}
	committed = true
	return sub, nil
}

func (s *SQLStore) UpdateStatus(ctx context.Context, applicationID, status string) error {
	q, args, err := s.sb.Update("applications").
		Set("status", status).
		Where(sq.Eq{"application_id": applicationID}).
		ToSql()
	if err != nil {
		return apperrors.Persistence("build status update", err)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return apperrors.Persistence("update status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Persistence("update status", err)
	}
	if n > 0 {
		return nil
	}
	// MySQL reports zero affected rows when the value is unchanged.
	exists, err := s.applicationExists(ctx, s.db, applicationID)
	if err != nil {
		return apperrors.Persistence("check application", err)
	}
	if !exists {
		return apperrors.NotFound("application " + applicationID + " not found")
	}
	return nil
}

func (s *SQLStore) applicationExists(ctx context.Context, db queryRower, id string) (bool, error) {
	q, args, err := s.sb.Select("1").From("applications").Where(sq.Eq{"application_id": id}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = db.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

var masterColumns = []string{
	"a.application_id", "a.applicant_id", "a.program_id", "a.status", "a.submission_date",
	"a.days_to_submit", "a.fees_paid", "a.sop_text", "a.admin_comments",
	"ap.user_id", "ap.first_name", "ap.last_name", "ap.dob", "ap.age_range_id",
	"ap.gender", "ap.country", "ap.city", "ap.is_first_generation",
	"p.program_id", "p.name", "p.dept", "p.median_days",
	"u.email",
}

func (s *SQLStore) MasterRows(ctx context.Context, userID string) ([]model.MasterRow, error) {
	b := s.sb.Select(masterColumns...).
		From("applications a").
		Join("applicants ap ON ap.applicant_id = a.applicant_id").
		LeftJoin("programs p ON p.program_id = a.program_id").
		LeftJoin("users u ON u.user_id = ap.user_id")
	if userID != "" {
		b = b.Where(sq.Eq{"ap.user_id": userID})
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, apperrors.Persistence("build master list", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperrors.Persistence("query master list", err)
	}
	defer rows.Close()

	var out []model.MasterRow
	for rows.Next() {
		var (
			r                  model.MasterRow
			subDate, dob       sql.NullTime
			sop, comments      sql.NullString
			ageRange, days     sql.NullInt64
			gender, country    sql.NullString
			city               sql.NullString
			progID, progName   sql.NullString
			progDept           sql.NullString
			progMedian         sql.NullInt64
			email              sql.NullString
			feesPaid, firstGen sql.NullBool
		)
		err := rows.Scan(
			&r.Application.ApplicationID, &r.Application.ApplicantID, &r.Application.ProgramID,
			&r.Application.Status, &subDate, &days, &feesPaid, &sop, &comments,
			&r.Applicant.UserID, &r.Applicant.FirstName, &r.Applicant.LastName, &dob, &ageRange,
			&gender, &country, &city, &firstGen,
			&progID, &progName, &progDept, &progMedian,
			&email,
		)
		if err != nil {
			return nil, apperrors.Persistence("scan master row", err)
		}
		r.Applicant.ApplicantID = r.Application.ApplicantID
		r.Application.SubmissionDate = subDate.Time
		r.Application.DaysToSubmit = int(days.Int64)
		r.Application.FeesPaid = feesPaid.Bool
		r.Application.SOPText = sop.String
		r.Application.AdminComments = comments.String
		r.Applicant.DOB = dob.Time
		r.Applicant.AgeRangeID = int(ageRange.Int64)
		r.Applicant.Gender = gender.String
		r.Applicant.Country = country.String
		r.Applicant.City = city.String
		r.Applicant.IsFirstGeneration = firstGen.Bool
		if progID.Valid {
			r.Program = &model.Program{
				ProgramID:  progID.String,
				Name:       progName.String,
				Dept:       progDept.String,
				MedianDays: int(progMedian.Int64),
			}
		}
		if email.Valid {
			e := email.String
			r.Email = &e
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("iterate master list", err)
	}
	return out, nil
}

func (s *SQLStore) Programs(ctx context.Context) ([]model.Program, error) {
	q, args, err := s.sb.Select("program_id", "name", "dept", "median_days").
		From("programs").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, apperrors.Persistence("build programs query", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperrors.Persistence("query programs", err)
	}
	defer rows.Close()

	var out []model.Program
	for rows.Next() {
		var p model.Program
		var median sql.NullInt64
		if err := rows.Scan(&p.ProgramID, &p.Name, &p.Dept, &median); err != nil {
			return nil, apperrors.Persistence("scan program", err)
		}
		p.MedianDays = int(median.Int64)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("iterate programs", err)
	}
	return out, nil
}

func (s *SQLStore) ProgramExists(ctx context.Context, programID string) (bool, error) {
	ok, err := s.programExists(ctx, s.db, programID)
	if err != nil {
		return false, apperrors.Persistence("check program", err)
	}
	return ok, nil
}

func (s *SQLStore) programExists(ctx context.Context, db queryRower, programID string) (bool, error) {
	q, args, err := s.sb.Select("1").From("programs").Where(sq.Eq{"program_id": programID}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = db.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Seed deletes every row and inserts ds in one transaction.
func (s *SQLStore) Seed(ctx context.Context, ds model.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Persistence("begin seed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// children first so foreign keys never dangle mid-transaction
	for _, table := range []string{"student_achievements", "academic_profile", "applications", "applicants", "users", "programs"} {
		q, args, err := s.sb.Delete(table).ToSql()
		if err != nil {
			return apperrors.Persistence("build delete "+table, err)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return apperrors.Persistence("clear "+table, err)
		}
	}

	batches := []struct {
		op   string
		base func() sq.InsertBuilder
		rows [][]any
	}{
		{"seed programs", s.programInsert, mapRows(ds.Programs, programValues)},
		{"seed users", s.userInsert, mapRows(ds.Users, userValues)},
		{"seed applicants", s.applicantInsert, mapRows(ds.Applicants, applicantValues)},
		{"seed applications", s.applicationInsert, mapRows(ds.Applications, applicationValues)},
		{"seed profiles", s.profileInsert, mapRows(ds.Profiles, profileValues)},
		{"seed achievements", s.achievementInsert, mapRows(ds.Achievements, achievementValues)},
	}
	for _, b := range batches {
		for start := 0; start < len(b.rows); start += seedBatch {
			end := min(start+seedBatch, len(b.rows))
			ins := b.base()
			for _, vals := range b.rows[start:end] {
				ins = ins.Values(vals...)
			}
			q, args, err := ins.ToSql()
			if err != nil {
				return apperrors.Persistence(b.op, err)
			}
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return classify(b.op, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Persistence("commit seed", err)
	}
	committed = true
	return nil
}

func (s *SQLStore) userInsert() sq.InsertBuilder {
	return s.sb.Insert("users").Columns("user_id", "email", "password_hash", "role_id", "created_at")
}

func (s *SQLStore) applicantInsert() sq.InsertBuilder {
	return s.sb.Insert("applicants").Columns("applicant_id", "user_id", "first_name", "last_name",
		"dob", "age_range_id", "gender", "country", "city", "is_first_generation")
}

func (s *SQLStore) applicationInsert() sq.InsertBuilder {
	return s.sb.Insert("applications").Columns("application_id", "applicant_id", "program_id", "status",
		"submission_date", "days_to_submit", "fees_paid", "sop_text", "admin_comments")
}

func (s *SQLStore) profileInsert() sq.InsertBuilder {
	return s.sb.Insert("academic_profile").Columns("profile_id", "applicant_id", "high_school_gpa",
		"sat_score", "scholarship_requested")
}

func (s *SQLStore) achievementInsert() sq.InsertBuilder {
	return s.sb.Insert("student_achievements").Columns("id", "applicant_id", "achievement_name", "date_awarded")
}

func (s *SQLStore) programInsert() sq.InsertBuilder {
	return s.sb.Insert("programs").Columns("program_id", "name", "dept", "median_days")
}

func userValues(u model.User) []any {
	return []any{u.UserID, normalizeEmail(u.Email), u.PasswordHash, int(u.RoleID), u.CreatedAt.Format(dateLayout)}
}

func applicantValues(a model.Applicant) []any {
	return []any{a.ApplicantID, a.UserID, a.FirstName, a.LastName, nullDate(a.DOB), a.AgeRangeID,
		a.Gender, a.Country, a.City, a.IsFirstGeneration}
}

func applicationValues(a model.Application) []any {
	return []any{a.ApplicationID, a.ApplicantID, a.ProgramID, a.Status, a.SubmissionDate.Format(dateLayout),
		a.DaysToSubmit, a.FeesPaid, a.SOPText, a.AdminComments}
}

func profileValues(p model.AcademicProfile) []any {
	return []any{p.ProfileID, p.ApplicantID, p.GPA, p.SATScore, p.ScholarshipRequested}
}

func achievementValues(a model.Achievement) []any {
	return []any{a.ID, a.ApplicantID, a.Name, a.DateAwarded.Format(dateLayout)}
}

func programValues(p model.Program) []any {
	return []any{p.ProgramID, p.Name, p.Dept, p.MedianDays}
}

func mapRows[T any](items []T, f func(T) []any) [][]any {
	out := make([][]any, len(items))
	for i, it := range items {
		out[i] = f(it)
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
