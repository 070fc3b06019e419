package models

import "time"

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

var ProjectStatuses = []ProjectStatus{ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled}

type ProjectPriority string

const (
	PriorityNormal ProjectPriority = "normal"
	PriorityMedium ProjectPriority = "medium"
	PriorityHigh   ProjectPriority = "high"
)

var ProjectPriorities = []ProjectPriority{PriorityNormal, PriorityMedium, PriorityHigh}

// Project carries the descriptive and financial fields of a client project.
// IsActive=false marks a soft-deleted project.
type Project struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	ClientID        string           `json:"clientId"`
	DepartmentID    string           `json:"departmentId,omitempty"`
	Budget          float64          `json:"budget"`
	Currency        Currency         `json:"currency"`
	BudgetConverted ConvertedAmounts `json:"budgetConverted"`
	Status          ProjectStatus    `json:"status"`
	Priority        ProjectPriority  `json:"priority"`
	StartDate       *time.Time       `json:"startDate,omitempty"`
	EndDate         *time.Time       `json:"endDate,omitempty"`
	IsActive        bool             `json:"isActive"`
	CreatedBy       string           `json:"createdBy"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// ProjectMember is one employee's compensation assignment on a project.
// The (ProjectID, EmployeeID) pair is unique across removal and reactivation.
type ProjectMember struct {
	ID                    string           `json:"id"`
	ProjectID             string           `json:"projectId"`
	EmployeeID            string           `json:"employeeId"`
	Compensation          float64          `json:"compensation"`
	Currency              Currency         `json:"currency"`
	CompensationConverted ConvertedAmounts `json:"compensationConverted"`
	AssignedAt            time.Time        `json:"assignedAt"`
	RemovedAt             *time.Time       `json:"removedAt,omitempty"`
}

// Active reports whether the membership has not been removed
func (m ProjectMember) Active() bool {
	return m.RemovedAt == nil
}

// RosterEntry is one row of a project's declared staffing
type RosterEntry struct {
	EmployeeID   string   `json:"employee"`
	Compensation float64  `json:"compensation"`
	Currency     Currency `json:"currency,omitempty"`
}

// SyncResult counts the writes a staffing sync performed
type SyncResult struct {
	Added       int `json:"added"`
	Updated     int `json:"updated"`
	Reactivated int `json:"reactivated"`
	Removed     int `json:"removed"`
	Unchanged   int `json:"unchanged"`
}

// Writes returns the number of rows the sync touched
func (r SyncResult) Writes() int {
	return r.Added + r.Updated + r.Reactivated + r.Removed
}

// ProjectInput is the payload for creating a project
type ProjectInput struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	ClientID     string          `json:"client"`
	DepartmentID string          `json:"department,omitempty"`
	ServiceIDs   []string        `json:"services,omitempty"`
	Budget       float64         `json:"budget"`
	Currency     Currency        `json:"currency,omitempty"`
	Status       ProjectStatus   `json:"status,omitempty"`
	Priority     ProjectPriority `json:"priority,omitempty"`
	StartDate    *time.Time      `json:"startDate,omitempty"`
	EndDate      *time.Time      `json:"endDate,omitempty"`
	Employees    []RosterEntry   `json:"employees,omitempty"`
}

// ProjectUpdate carries only the fields present in an update request.
// A non-nil Employees replaces the roster through the staffing sync.
type ProjectUpdate struct {
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	ClientID     *string          `json:"client,omitempty"`
	DepartmentID *string          `json:"department,omitempty"`
	ServiceIDs   *[]string        `json:"services,omitempty"`
	Budget       *float64         `json:"budget,omitempty"`
	Currency     *Currency        `json:"currency,omitempty"`
	Status       *ProjectStatus   `json:"status,omitempty"`
	Priority     *ProjectPriority `json:"priority,omitempty"`
	StartDate    *time.Time       `json:"startDate,omitempty"`
	EndDate      *time.Time       `json:"endDate,omitempty"`
	Employees    *[]RosterEntry   `json:"employees,omitempty"`
}

// MemberView is an active membership joined with the employee's identity
type MemberView struct {
	ProjectMember
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ProjectDetail is a project with its references and active roster resolved
type ProjectDetail struct {
	Project
	Client     *Ref         `json:"client,omitempty"`
	Department *Ref         `json:"department,omitempty"`
	Services   []Ref        `json:"services"`
	Members    []MemberView `json:"members"`
}

// ProjectFilter holds project list query parameters
type ProjectFilter struct {
	Status          string
	Priority        string
	ClientID        string
	DepartmentID    string
	Search          string
	IncludeInactive bool
	Page            int
	Limit           int
}

// ProjectPage is one page of a project listing
type ProjectPage struct {
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	Data       []Project `json:"data"`
}
