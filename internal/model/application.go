package model

import "time"

// Application statuses.
const (
    StatusWaitlisted = "Waitlisted"
    StatusAccepted   = "Accepted"
    StatusRejected   = "Rejected"
    StatusEnrolled   = "Enrolled"
    StatusLost       = "Lost"
)

// Application is one program application. Status is the only field
// changed after creation.
//
// Fields:
//  ApplicationID  – APP-prefixed sequential identifier.
//  ApplicantID    – owning applicant.
//  ProgramID      – target program; must exist at submission time.
//  Status         – one of the Status* constants.
//  SubmissionDate – date the application was submitted.
//  DaysToSubmit   – days the applicant spent preparing (0 for portal submissions).
//  FeesPaid       – whether the application fee was paid.
//  SOPText        – statement of purpose.
//  AdminComments  – free text for reviewers.
type Application struct {
    ApplicationID  string    // applications.application_id
    ApplicantID    string    // applications.applicant_id
    ProgramID      string    // applications.program_id
    Status         string    // applications.status
    SubmissionDate time.Time // applications.submission_date
    DaysToSubmit   int       // applications.days_to_submit
    FeesPaid       bool      // applications.fees_paid
    SOPText        string    // applications.sop_text
    AdminComments  string    // applications.admin_comments
}

// Submission groups the records written together when an applicant
// submits the form. Identifier fields are left empty by the caller and
// filled in by the store.
type Submission struct {
    Applicant   Applicant
    Application Application
    Profile     AcademicProfile
    Achievement *Achievement // nil when no achievement was given
}

// Program is reference data describing an offered program.
type Program struct {
    ProgramID  string // programs.program_id
    Name       string // programs.name
    Dept       string // programs.dept
    MedianDays int    // programs.median_days
}

// MasterRow is one application joined with its applicant and, when they
// exist, its program and the owning user's email.
type MasterRow struct {
    Application Application
    Applicant   Applicant
    Program     *Program // nil when program_id has no match
    Email       *string  // nil when user_id has no match
}

// Dataset is a complete set of tables, used to seed a store.
type Dataset struct {
    Users        []User
    Applicants   []Applicant
    Applications []Application
    Profiles     []AcademicProfile
    Achievements []Achievement
    Programs     []Program
}
