package model

// Commuting allowance states used by the HR frontend. The column is free
// form; these are the values the UI offers.
const (
	AllowanceRequested = "requested"
	AllowanceSuspended = "suspended"
	AllowanceNotNeeded = "not_needed"
)

// User is an employee account. PasswordHash never leaves the server.
type User struct {
	ID                 uint64  `json:"id"`
	EmployeeNumber     string  `json:"employee_number"`
	Name               string  `json:"name"`
	Email              string  `json:"email"`
	PasswordHash       string  `json:"-"`
	IsDefaultPassword  bool    `json:"is_default_password"`
	CommutingAllowance *string `json:"commuting_allowance"`
}
