package client

import "time"

// User is the account behind the current access token.
type User struct {
	ID         int    `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	EmployeeID *int   `json:"employeeId,omitempty"`
}

// Employee is a row of the employee directory.
type Employee struct {
	ID           int        `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Position     string     `json:"position"`
	DepartmentID *int       `json:"departmentId,omitempty"`
	Department   string     `json:"department,omitempty"`
	HireDate     *time.Time `json:"hireDate,omitempty"`
	Status       string     `json:"status"`
}

// FullName joins first and last name.
func (e Employee) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	default:
		return e.FirstName + " " + e.LastName
	}
}

type Department struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	ManagerID     *int   `json:"managerId,omitempty"`
	EmployeeCount int    `json:"employeeCount"`
}

// Leave request states.
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

type LeaveRequest struct {
	ID         int       `json:"id"`
	EmployeeID int       `json:"employeeId"`
	Type       string    `json:"type"`
	StartDate  string    `json:"startDate"`
	EndDate    string    `json:"endDate"`
	Reason     string    `json:"reason,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewLeaveRequest is the body of a leave request submission. Dates are YYYY-MM-DD.
type NewLeaveRequest struct {
	Type      string `json:"type"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason,omitempty"`
}

type Announcement struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// tokenResponse is what the login and refresh endpoints return.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Error        string `json:"error_description"`
}
