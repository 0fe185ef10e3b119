// Package synth builds a multi-year demo dataset: users, applicants,
// applications, academic profiles and achievements whose volumes, dates
// and outcomes follow YearlyStats. Output is deterministic for a seed
// and a reference day.
package synth

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/admissions-portal/portal/internal/ids"
	"github.com/admissions-portal/portal/internal/model"
)

// PlaceholderPassword is stored for every generated user. It is not a
// usable credential.
const PlaceholderPassword = "hash_placeholder"

// Years in which undecided outcomes are still open. Before this year
// unconverted offers become Lost and waitlists are closed as Rejected.
const openCycleYear = 2025

// Options configures Generate.
type Options struct {
	Seed  uint64
	Today time.Time         // reference day; zero means the current UTC date
	Years map[int]YearStats // nil means YearlyStats
}

// Generator produces datasets. It is not safe for concurrent use.
type Generator struct {
	opts  Options
	today time.Time
	rng   *rand.Rand
	fake  *gofakeit.Faker

	emails map[string]struct{}
}

func New(opts Options) *Generator {
	if opts.Years == nil {
		opts.Years = YearlyStats
	}
	today := opts.Today
	if today.IsZero() {
		today = time.Now().UTC()
	}
	return &Generator{
		opts:   opts,
		today:  time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC),
		rng:    rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		fake:   gofakeit.New(opts.Seed),
		emails: map[string]struct{}{},
	}
}

// Generate builds the full dataset. Identifiers are contiguous from the
// first value of each sequence, so both id strategies continue cleanly
// after seeding.
func Generate(opts Options) model.Dataset {
	return New(opts).Dataset()
}

// Dataset runs the generator once over every configured year in order.
func (g *Generator) Dataset() model.Dataset {
	ds := model.Dataset{Programs: append([]model.Program(nil), Programs...)}

	years := make([]int, 0, len(g.opts.Years))
	for y := range g.opts.Years {
		years = append(years, y)
	}
	sort.Ints(years)

	n := 0
	for _, year := range years {
		stats := g.opts.Years[year]
		for range stats.Apps {
			rec, ok := g.record(year, stats, n+1)
			if !ok {
				continue
			}
			n++
			ds.Users = append(ds.Users, rec.user)
			ds.Applicants = append(ds.Applicants, rec.applicant)
			ds.Applications = append(ds.Applications, rec.application)
			ds.Profiles = append(ds.Profiles, rec.profile)
			ds.Achievements = append(ds.Achievements, rec.achievement)
		}
	}
	return ds
}

type record struct {
	user        model.User
	applicant   model.Applicant
	application model.Application
	profile     model.AcademicProfile
	achievement model.Achievement
}

// record draws one applicant for year. seq is the 1-based position used
// for every identifier. It reports false when the drawn date is not
// before today.
func (g *Generator) record(year int, stats YearStats, seq int) (record, bool) {
	status := Status(year, g.rng.Float64() < stats.AcceptRate, g.rng.Float64() < stats.YieldRate, g.weighted([]float64{0.8, 0.2}) == 1)
	program := Programs[g.rng.IntN(len(Programs))]

	submitted, ok := g.submissionDate(year)
	if !ok {
		return record{}, false
	}

	days := int(math.Round(g.rng.NormFloat64()*20 + float64(program.MedianDays)))
	days = min(max(days, 1), 250)

	dob := g.fake.DateRange(g.today.AddDate(-29, 0, 1), g.today.AddDate(-17, 0, 0))
	dob = time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	achievement := achievementTypes[g.rng.IntN(len(achievementTypes))]

	userID := ids.Users.Format(ids.Users.Offset + seq)
	applicantID := ids.Applicants.Format(ids.Applicants.Offset + seq)

	var gpa float64
	var sat int
	if status == model.StatusEnrolled || status == model.StatusAccepted || status == model.StatusLost {
		gpa = g.uniform(3.4, 4.0)
		sat = 1300 + g.rng.IntN(301)
	} else {
		gpa = g.uniform(2.3, 3.6)
		sat = 900 + g.rng.IntN(501)
	}

	awarded := g.fake.DateRange(g.today.AddDate(-3, 0, 0), g.today.AddDate(-1, 0, 0))

	return record{
		user: model.User{
			UserID:       userID,
			Email:        g.email(userID),
			PasswordHash: PlaceholderPassword,
			RoleID:       model.RoleApplicant,
			CreatedAt:    submitted,
		},
		applicant: model.Applicant{
			ApplicantID:       applicantID,
			UserID:            userID,
			FirstName:         g.fake.FirstName(),
			LastName:          g.fake.LastName(),
			DOB:               dob,
			AgeRangeID:        model.AgeRangeID(dob, year),
			Gender:            genders[g.weighted(genderWeights)],
			Country:           countries[g.rng.IntN(len(countries))],
			City:              g.fake.City(),
			IsFirstGeneration: g.rng.IntN(3) == 0,
		},
		application: model.Application{
			ApplicationID:  ids.Applications.Format(ids.Applications.Offset + seq),
			ApplicantID:    applicantID,
			ProgramID:      program.ProgramID,
			Status:         status,
			SubmissionDate: submitted,
			DaysToSubmit:   days,
			FeesPaid:       g.feesPaid(status),
			SOPText:        g.sop(program.Name, achievement),
		},
		profile: model.AcademicProfile{
			ProfileID:            ids.Profiles.Format(ids.Profiles.Offset + seq),
			ApplicantID:          applicantID,
			GPA:                  gpa,
			SATScore:             sat,
			ScholarshipRequested: g.rng.IntN(2) == 0,
		},
		achievement: model.Achievement{
			ID:          g.uuid(),
			ApplicantID: applicantID,
			Name:        achievement,
			DateAwarded: time.Date(awarded.Year(), awarded.Month(), awarded.Day(), 0, 0, 0, 0, time.UTC),
		},
	}, true
}

// Status derives the final status of an application from its draws.
func Status(year int, accepted, enrolled, waitlisted bool) string {
	if accepted {
		switch {
		case enrolled:
			return model.StatusEnrolled
		case year < openCycleYear:
			return model.StatusLost
		default:
			return model.StatusAccepted
		}
	}
	if waitlisted && year >= openCycleYear {
		return model.StatusWaitlisted
	}
	return model.StatusRejected
}

// submissionDate draws a seasonal date in year. The current year only
// draws from January 1 up to yesterday; years after today draw nothing.
func (g *Generator) submissionDate(year int) (time.Time, bool) {
	if year == g.today.Year() {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		span := int(g.today.Sub(start).Hours() / 24)
		if span <= 0 {
			return time.Time{}, false
		}
		return start.AddDate(0, 0, g.rng.IntN(span)), true
	}
	month := time.Month(g.weighted(monthWeights) + 1)
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if month == time.February {
		lastDay = 28
	}
	d := time.Date(year, month, 1+g.rng.IntN(lastDay), 0, 0, 0, 0, time.UTC)
	if !d.Before(g.today) {
		return time.Time{}, false
	}
	return d, true
}

// feesPaid: enrolled applicants always paid, accepted ones sometimes,
// everyone else never.
func (g *Generator) feesPaid(status string) bool {
	switch status {
	case model.StatusEnrolled:
		return true
	case model.StatusAccepted:
		return g.rng.IntN(2) == 0
	default:
		return false
	}
}

func (g *Generator) sop(program, achievement string) string {
	r := strings.NewReplacer("{program}", program, "{achievement}", achievement)
	pick := func(list []string) string {
		return r.Replace(list[g.rng.IntN(len(list))])
	}
	return strings.Join([]string{pick(sopOpeners), pick(sopMiddles), pick(sopClosers)}, " ")
}

// email returns a fresh address, falling back to one derived from the
// user id when the faker repeats itself.
func (g *Generator) email(userID string) string {
	for range 5 {
		e := strings.ToLower(g.fake.Email())
		if _, dup := g.emails[e]; !dup {
			g.emails[e] = struct{}{}
			return e
		}
	}
	e := strings.ToLower(userID) + "@example.edu"
	g.emails[e] = struct{}{}
	return e
}

// uuid draws a version 4 UUID from the seeded source.
func (g *Generator) uuid() string {
	var b [16]byte
	for i := 0; i < 16; i += 8 {
		v := g.rng.Uint64()
		for j := 0; j < 8; j++ {
			b[i+j] = byte(v >> (8 * j))
		}
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return uuid.UUID(b).String()
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return math.Round((lo+g.rng.Float64()*(hi-lo))*100) / 100
}

// weighted returns an index into weights drawn in proportion to them.
func (g *Generator) weighted(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	x := g.rng.Float64() * total
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}

// CountByYear tallies applications per submission year.
func CountByYear(apps []model.Application) map[int]int {
	out := map[int]int{}
	for _, a := range apps {
		out[a.SubmissionDate.Year()]++
	}
	return out
}
