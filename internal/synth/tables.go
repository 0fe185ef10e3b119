package synth

import "github.com/admissions-portal/portal/internal/model"

// YearStats drives the volume and outcome mix of one admission year.
type YearStats struct {
	Apps       int
	AcceptRate float64
	YieldRate  float64
}

// YearlyStats is the demo history: steady growth with falling acceptance
// and yield. The final year is partial and only covers dates before
// today.
var YearlyStats = map[int]YearStats{
	2017: {Apps: 450, AcceptRate: 0.68, YieldRate: 0.82},
	2018: {Apps: 520, AcceptRate: 0.65, YieldRate: 0.80},
	2019: {Apps: 480, AcceptRate: 0.70, YieldRate: 0.78},
	2020: {Apps: 650, AcceptRate: 0.62, YieldRate: 0.75},
	2021: {Apps: 850, AcceptRate: 0.58, YieldRate: 0.72},
	2022: {Apps: 1100, AcceptRate: 0.52, YieldRate: 0.68},
	2023: {Apps: 1450, AcceptRate: 0.48, YieldRate: 0.62},
	2024: {Apps: 1850, AcceptRate: 0.42, YieldRate: 0.58},
	2025: {Apps: 2300, AcceptRate: 0.38, YieldRate: 0.52},
	2026: {Apps: 100, AcceptRate: 0.35, YieldRate: 0.48},
}

// Programs is the catalog written by the generator, grouped from fast to
// slow median preparation time.
var Programs = []model.Program{
	{ProgramID: "P101", Name: "Bachelor in Communication", Dept: "Arts", MedianDays: 35},
	{ProgramID: "P102", Name: "Bachelor in Design", Dept: "Design", MedianDays: 28},

	{ProgramID: "P103", Name: "Preparatory Year", Dept: "General", MedianDays: 45},
	{ProgramID: "P109", Name: "Bachelor in Computer Science", Dept: "Engineering", MedianDays: 50},
	{ProgramID: "P108", Name: "Bachelor in Economics", Dept: "Economics", MedianDays: 48},

	{ProgramID: "P104", Name: "Master in Engineering", Dept: "Engineering", MedianDays: 75},
	{ProgramID: "P105", Name: "eMBA Strategy", Dept: "Business", MedianDays: 90},
	{ProgramID: "P106", Name: "Master in Marketing", Dept: "Business", MedianDays: 85},
	{ProgramID: "P107", Name: "Post Master in Physics", Dept: "Science", MedianDays: 60},
}

var achievementTypes = []string{
	"State Level Debate Champion", "Math Olympiad Gold", "Hackathon Winner",
	"Published Research Paper", "School Captain", "Volunteer of the Year",
	"National Sports Player", "Music Grade 8", "Robotics Club President",
}

// monthWeights is the share of applications per calendar month.
var monthWeights = []float64{0.12, 0.12, 0.15, 0.16, 0.14, 0.13, 0.06, 0.05, 0.03, 0.02, 0.04, 0.08}

var (
	genders       = []string{"Male", "Female", "Other"}
	genderWeights = []float64{0.48, 0.48, 0.04}
	countries     = []string{"USA", "India", "China", "France", "UK", "Nigeria", "Canada"}
)

var (
	sopOpeners = []string{
		"I have always been deeply fascinated by the world of {program}.",
		"From a young age, my curiosity has driven me towards {program}.",
		"My journey in {program} began when I first encountered real-world challenges in this field.",
		"The intersection of innovation and practical application is where I thrive.",
	}
	sopMiddles = []string{
		"My recent success as a {achievement} taught me the value of discipline and leadership.",
		"I have consistently sought opportunities to expand my knowledge beyond the classroom.",
		"I believe that the curriculum at your university is the perfect environment to refine my skills in {program}.",
		"I am eager to learn from your distinguished faculty and contribute to the research initiatives on campus.",
	}
	sopClosers = []string{
		"I am excited about the possibility of joining your diverse student community.",
		"I am confident that I can make a meaningful contribution to the university.",
		"Thank you for considering my application; I look forward to the opportunity to excel here.",
		"I hope to bring my unique perspective and dedication to your upcoming cohort.",
	}
)
