package models

import "time"

type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentFreelancer EmploymentType = "freelancer"
	EmploymentContract   EmploymentType = "contract"
)

var EmploymentTypes = []EmploymentType{EmploymentFullTime, EmploymentPartTime, EmploymentFreelancer, EmploymentContract}

// DefaultEmploymentType applies when a payload omits or misspells the type
const DefaultEmploymentType = EmploymentFreelancer

// Employee is the staff profile wrapping exactly one User.
// It has no active flag of its own; see IsEmployeeActive.
type Employee struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	DepartmentID   string         `json:"departmentId"`
	PositionID     string         `json:"positionId"`
	SkillIDs       []string       `json:"skillIds"`
	EmploymentType EmploymentType `json:"employmentType"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// IsEmployeeActive derives an employee's active state from the owning user.
// A missing or soft deleted user is never active.
//
// Storage queries express the same rule as
// "u.is_active = 1 AND u.deleted_at IS NULL".
func IsEmployeeActive(user *User) bool {
	return user != nil && user.IsActive && !user.Deleted()
}

// EmployeeInput is the payload for provisioning a new employee
type EmployeeInput struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone,omitempty"`
	DepartmentID   string   `json:"department"`
	PositionID     string   `json:"position"`
	SkillIDs       []string `json:"skills,omitempty"`
	EmploymentType string   `json:"employmentType,omitempty"`
}

// EmployeeUpdate carries only the fields present in an update request
type EmployeeUpdate struct {
	Name           *string   `json:"name,omitempty"`
	Email          *string   `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	DepartmentID   *string   `json:"department,omitempty"`
	PositionID     *string   `json:"position,omitempty"`
	SkillIDs       *[]string `json:"skills,omitempty"`
	EmploymentType *string   `json:"employmentType,omitempty"`
}

// EmployeeFilter holds list query parameters. IsActive nil means active only.
type EmployeeFilter struct {
	DepartmentID   string
	PositionID     string
	SkillID        string
	EmploymentType string
	IsActive       *bool
	Name           string
	Page           int
	Limit          int
}

// EmployeeUser is the identity part of an employee view
type EmployeeUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	IsActive bool   `json:"isActive"`
}

// EmployeeView is an employee with its user and reference names resolved
type EmployeeView struct {
	ID             string         `json:"id"`
	User           EmployeeUser   `json:"user"`
	EmploymentType EmploymentType `json:"employmentType"`
	Department     *Ref           `json:"department"`
	Position       *Ref           `json:"position"`
	Skills         []Ref          `json:"skills"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// EmployeePage is one page of an employee listing
type EmployeePage struct {
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Results    int            `json:"results"`
	Data       []EmployeeView `json:"data"`
}

type Department struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

type Position struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DepartmentID string `json:"departmentId"`
}

type Skill struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PositionID string `json:"positionId"`
}

type Client struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CompanyName string `json:"companyName,omitempty"`
	Email       string `json:"email,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// DisplayName prefers the contact name and falls back to the company
func (c Client) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.CompanyName
}
