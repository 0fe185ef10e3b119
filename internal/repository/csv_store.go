package repository

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/admissions-portal/portal/internal/apperrors"
	"github.com/admissions-portal/portal/internal/ids"
	"github.com/admissions-portal/portal/internal/model"
)

// CSVStore keeps one CSV file per table in a directory. It serialises
// writers with a mutex, so it is only safe when a single process owns
// the directory. Every write rewrites the affected files through
// temporary copies that are renamed into place together; if any rename
// fails the originals are put back.
type CSVStore struct {
	dir string
	gen ids.Generator

	mu sync.RWMutex

	// rename installs a staged file. Tests replace it to inject failures.
	rename func(oldpath, newpath string) error
}

// NewCSVStore returns a store rooted at dir, creating it if needed.
func NewCSVStore(dir string, gen ids.Generator) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Persistence("create csv dir", err)
	}
	if err := recoverBackups(dir); err != nil {
		return nil, apperrors.Persistence("recover csv backups", err)
	}
	return &CSVStore{dir: dir, gen: gen, rename: os.Rename}, nil
}

func (s *CSVStore) Backend() string { return "csv" }

func (s *CSVStore) Close() error { return nil }

// Dir returns the data directory.
func (s *CSVStore) Dir() string { return s.dir }

func (s *CSVStore) path(file string) string { return filepath.Join(s.dir, file) }

func (s *CSVStore) load(file string, header []string) (*sheet, error) {
	sh, err := readSheet(s.path(file), header)
	if err != nil {
		return nil, apperrors.Persistence("read "+file, err)
	}
	return sh, nil
}

// nextID allocates an id from seq that is not already present in sh.
func (s *CSVStore) nextID(sh *sheet, seq ids.Sequence) string {
	count, last := sh.state(seq.Column)
	taken := sh.idSet(seq.Column)
	return s.gen.NextFree(seq, ids.State{Count: count, LastID: last}, func(id string) bool {
		_, ok := taken[id]
		return ok
	})
}

func (s *CSVStore) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return u, apperrors.Persistence("create user", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load(usersFile, usersHeader)
	if err != nil {
		return u, err
	}
	u.Email = normalizeEmail(u.Email)
	for _, rec := range users.records() {
		if strings.EqualFold(users.get(rec, "email"), u.Email) {
			return u, apperrors.Conflict("email already registered")
		}
	}
	u.UserID = s.nextID(users, ids.Users)
	users.add(encodeUser(u))
	if err := s.writeSheets(map[string]*sheet{usersFile: users}); err != nil {
		return u, err
	}
	return u, nil
}

func (s *CSVStore) UserByEmail(ctx context.Context, email string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, apperrors.Persistence("user lookup", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := s.load(usersFile, usersHeader)
	if err != nil {
		return model.User{}, err
	}
	email = normalizeEmail(email)
	for _, rec := range users.records() {
		if strings.EqualFold(users.get(rec, "email"), email) {
			return decodeUser(users, rec), nil
		}
	}
	return model.User{}, apperrors.NotFound("user not found")
}

func (s *CSVStore) CreateSubmission(ctx context.Context, sub model.Submission) (model.Submission, error) {
	if err := ctx.Err(); err != nil {
		return sub, apperrors.Persistence("create submission", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	programs, err := s.load(programsFile, programsHeader)
	if err != nil {
		return sub, err
	}
	if _, ok := programs.idSet("program_id")[sub.Application.ProgramID]; !ok {
		return sub, apperrors.NotFound("program " + sub.Application.ProgramID + " does not exist")
	}

	applicants, err := s.load(applicantsFile, applicantsHeader)
	if err != nil {
		return sub, err
	}
	applications, err := s.load(applicationsFile, applicationsHeader)
	if err != nil {
		return sub, err
	}
	profiles, err := s.load(profilesFile, profilesHeader)
	if err != nil {
		return sub, err
	}

	sub.Applicant.ApplicantID = s.nextID(applicants, ids.Applicants)
	sub.Application.ApplicationID = s.nextID(applications, ids.Applications)
	sub.Profile.ProfileID = s.nextID(profiles, ids.Profiles)
	sub.Application.ApplicantID = sub.Applicant.ApplicantID
	sub.Profile.ApplicantID = sub.Applicant.ApplicantID

	applicants.add(encodeApplicant(sub.Applicant))
	applications.add(encodeApplication(sub.Application))
	profiles.add(encodeProfile(sub.Profile))
	changed := map[string]*sheet{
		applicantsFile:   applicants,
		applicationsFile: applications,
		profilesFile:     profiles,
	}

	if sub.Achievement != nil {
		ach := *sub.Achievement
		ach.ApplicantID = sub.Applicant.ApplicantID
		sub.Achievement = &ach
		achievements, err := s.load(achievementsFile, achievementsHeader)
		if err != nil {
			return sub, err
		}
		achievements.add(encodeAchievement(ach))
		changed[achievementsFile] = achievements
	}

	if err := s.writeSheets(changed); err != nil {
		return sub, err
	}
	return sub, nil
}

func (s *CSVStore) UpdateStatus(ctx context.Context, applicationID, status string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Persistence("update status", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	applications, err := s.load(applicationsFile, applicationsHeader)
	if err != nil {
		return err
	}
	found := false
	for _, rec := range applications.records() {
		if applications.get(rec, "application_id") == applicationID {
			applications.set(rec, "status", status)
			found = true
		}
	}
	if !found {
		return apperrors.NotFound("application " + applicationID + " not found")
	}
	return s.writeSheets(map[string]*sheet{applicationsFile: applications})
}

func (s *CSVStore) MasterRows(ctx context.Context, userID string) ([]model.MasterRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Persistence("master list", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	appsSheet, err := s.load(applicationsFile, applicationsHeader)
	if err != nil {
		return nil, err
	}
	applicantsSheet, err := s.load(applicantsFile, applicantsHeader)
	if err != nil {
		return nil, err
	}
	programsSheet, err := s.load(programsFile, programsHeader)
	if err != nil {
		return nil, err
	}
	usersSheet, err := s.load(usersFile, usersHeader)
	if err != nil {
		return nil, err
	}

	applicants := make(map[string]model.Applicant)
	for _, a := range decodeAll(applicantsSheet, decodeApplicant) {
		if _, dup := applicants[a.ApplicantID]; !dup {
			applicants[a.ApplicantID] = a
		}
	}
	programs := make(map[string]model.Program)
	for _, p := range decodeAll(programsSheet, decodeProgram) {
		if _, dup := programs[p.ProgramID]; !dup {
			programs[p.ProgramID] = p
		}
	}
	emails := make(map[string]string)
	for _, u := range decodeAll(usersSheet, decodeUser) {
		if _, dup := emails[u.UserID]; !dup {
			emails[u.UserID] = u.Email
		}
	}

	var out []model.MasterRow
	for _, app := range decodeAll(appsSheet, decodeApplication) {
		applicant, ok := applicants[app.ApplicantID]
		if !ok {
			continue
		}
		if userID != "" && applicant.UserID != userID {
			continue
		}
		row := model.MasterRow{Application: app, Applicant: applicant}
		if p, ok := programs[app.ProgramID]; ok {
			row.Program = &p
		}
		if e, ok := emails[applicant.UserID]; ok {
			row.Email = &e
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *CSVStore) Programs(ctx context.Context) ([]model.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Persistence("programs", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, err := s.load(programsFile, programsHeader)
	if err != nil {
		return nil, err
	}
	programs := decodeAll(sh, decodeProgram)
	sort.SliceStable(programs, func(i, j int) bool { return programs[i].Name < programs[j].Name })
	return programs, nil
}

func (s *CSVStore) ProgramExists(ctx context.Context, programID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Persistence("check program", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, err := s.load(programsFile, programsHeader)
	if err != nil {
		return false, err
	}
	_, ok := sh.idSet("program_id")[programID]
	return ok, nil
}

// Seed replaces every table, including the roles and age range reference
// tables, with ds.
func (s *CSVStore) Seed(ctx context.Context, ds model.Dataset) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Persistence("seed", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeSheets(map[string]*sheet{
		rolesFile:        sheetOf(rolesHeader, model.Roles(), encodeRole),
		ageRangesFile:    sheetOf(ageRangesHeader, model.AgeRanges, encodeAgeRange),
		programsFile:     sheetOf(programsHeader, ds.Programs, encodeProgram),
		usersFile:        sheetOf(usersHeader, ds.Users, encodeUser),
		applicantsFile:   sheetOf(applicantsHeader, ds.Applicants, encodeApplicant),
		applicationsFile: sheetOf(applicationsHeader, ds.Applications, encodeApplication),
		profilesFile:     sheetOf(profilesHeader, ds.Profiles, encodeProfile),
		achievementsFile: sheetOf(achievementsHeader, ds.Achievements, encodeAchievement),
	})
}

// stagedFile tracks one file through stage, install and rollback.
type stagedFile struct {
	dest      string
	tmp       string
	backup    string
	original  bool // dest existed and backup holds a copy of it
	installed bool // tmp was renamed onto dest
}

// installOrder puts parents before children so a reader never sees an
// application whose applicant file has not been installed yet.
var installOrder = []string{
	rolesFile, ageRangesFile, programsFile, usersFile,
	applicantsFile, profilesFile, achievementsFile, applicationsFile,
}

// writeSheets stages every sheet to a temporary file in the data
// directory and then installs them all. Callers hold s.mu.
func (s *CSVStore) writeSheets(changed map[string]*sheet) error {
	var staged []*stagedFile
	cleanup := func() {
		for _, f := range staged {
			_ = os.Remove(f.tmp)
		}
	}

	for _, name := range installOrder {
		sh, ok := changed[name]
		if !ok {
			continue
		}
		tmp, err := s.stage(name, sh)
		if err != nil {
			cleanup()
			return apperrors.Persistence("stage "+name, err)
		}
		dest := s.path(name)
		staged = append(staged, &stagedFile{dest: dest, tmp: tmp, backup: dest + ".bak"})
	}

	for _, f := range staged {
		if err := s.install(f); err != nil {
			restore(staged)
			cleanup()
			return apperrors.Persistence("install "+filepath.Base(f.dest), err)
		}
	}
	for _, f := range staged {
		if f.original {
			_ = os.Remove(f.backup)
		}
	}
	return nil
}

func (s *CSVStore) stage(name string, sh *sheet) (string, error) {
	f, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return "", err
	}
	path := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	defer f.Close()

	if err = sh.write(f); err != nil {
		return "", err
	}
	if err = f.Sync(); err != nil {
		return "", err
	}
	return path, nil
}

// install keeps a hard link (or copy) of the live file as the backup and
// then renames the staged file over it, so dest always exists on disk.
func (s *CSVStore) install(f *stagedFile) error {
	if _, err := os.Stat(f.dest); err == nil {
		if err := backupFile(f.dest, f.backup); err != nil {
			return err
		}
		f.original = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := s.rename(f.tmp, f.dest); err != nil {
		return err
	}
	f.installed = true
	return nil
}

func backupFile(src, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// restore undoes every install step that happened, newest first.
func restore(staged []*stagedFile) {
	for i := len(staged) - 1; i >= 0; i-- {
		f := staged[i]
		switch {
		case f.installed && f.original:
			_ = os.Rename(f.backup, f.dest)
		case f.installed:
			_ = os.Remove(f.dest)
		case f.original:
			_ = os.Remove(f.backup)
		}
	}
}

// recoverBackups puts back any table whose live file is missing but whose
// backup survived an interrupted write. Backups next to a live file are
// stale and removed.
func recoverBackups(dir string) error {
	for _, name := range installOrder {
		dest := filepath.Join(dir, name)
		backup := dest + ".bak"
		if _, err := os.Stat(backup); errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return err
		}
		_, err := os.Stat(dest)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if err := os.Rename(backup, dest); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := os.Remove(backup); err != nil {
				return err
			}
		}
	}
	return nil
}
