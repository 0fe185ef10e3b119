package model

import "time"

// Role is the numeric role stored in users.role_id.
type Role int

const (
    RoleAdmin     Role = 1 // portal administrator
    RoleApplicant Role = 2 // self-registered applicant
)

// Name returns the display name used by the roles reference table.
func (r Role) Name() string {
    switch r {
    case RoleAdmin:
        return "Admin"
    case RoleApplicant:
        return "Applicant"
    }
    return "Unknown"
}

// User represents an account as stored in the `users` table (or
// users.csv). The role is fixed at creation time.
//
// Fields:
//  UserID       – U-prefixed sequential identifier.
//  Email        – unique, normalised to lower case.
//  PasswordHash – stored credential; plain text or bcrypt depending on
//                 the configured password scheme.
//  RoleID       – 1 admin, 2 applicant.
//  CreatedAt    – registration date.
type User struct {
    UserID       string    // users.user_id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    RoleID       Role      // users.role_id
    CreatedAt    time.Time // users.created_at
}

// RoleRow is one row of the roles reference table.
type RoleRow struct {
    RoleID Role   // roles.role_id
    Name   string // roles.name
}

// Roles lists the reference roles in id order.
func Roles() []RoleRow {
    return []RoleRow{
        {RoleID: RoleAdmin, Name: RoleAdmin.Name()},
        {RoleID: RoleApplicant, Name: RoleApplicant.Name()},
    }
}
