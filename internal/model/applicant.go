package model

import "time"

// Applicant is the personal record created when an application is
// submitted. One applicant is created per submission and points back to
// the owning user.
type Applicant struct {
    ApplicantID       string    // applicants.applicant_id
    UserID            string    // applicants.user_id
    FirstName         string    // applicants.first_name
    LastName          string    // applicants.last_name
    DOB               time.Time // applicants.dob (zero when unknown)
    AgeRangeID        int       // applicants.age_range_id
    Gender            string    // applicants.gender
    Country           string    // applicants.country
    City              string    // applicants.city
    IsFirstGeneration bool      // applicants.is_first_generation
}

// AcademicProfile carries the scores submitted with an application.
type AcademicProfile struct {
    ProfileID            string  // academic_profile.profile_id
    ApplicantID          string  // academic_profile.applicant_id
    GPA                  float64 // academic_profile.high_school_gpa
    SATScore             int     // academic_profile.sat_score
    ScholarshipRequested bool    // academic_profile.scholarship_requested
}

// Achievement is an optional award attached to an applicant. Its id is a
// random UUID rather than a sequence number.
type Achievement struct {
    ID          string    // student_achievements.id
    ApplicantID string    // student_achievements.applicant_id
    Name        string    // student_achievements.achievement_name
    DateAwarded time.Time // student_achievements.date_awarded
}

// AgeRange buckets applicants by age at submission time.
type AgeRange struct {
    RangeID int
    Min     int
    Max     int
    Label   string
}

// AgeRanges is the fixed reference table.
var AgeRanges = []AgeRange{
    {RangeID: 1, Min: 17, Max: 18, Label: "17-18"},
    {RangeID: 2, Min: 19, Max: 21, Label: "19-21"},
    {RangeID: 3, Min: 22, Max: 25, Label: "22-25"},
    {RangeID: 4, Min: 26, Max: 30, Label: "26-30"},
    {RangeID: 5, Min: 31, Max: 99, Label: "30+"},
}

// AgeRangeID returns the bucket for someone born on dob in the given
// year. Ages outside every bucket fall into the last one.
func AgeRangeID(dob time.Time, year int) int {
    age := year - dob.Year()
    for _, r := range AgeRanges {
        if r.Min <= age && age <= r.Max {
            return r.RangeID
        }
    }
    return AgeRanges[len(AgeRanges)-1].RangeID
}
