package models

// Category payloads. Field names follow the dashboard's form fields; counts
// and amounts are the numeric fields analytics sums up.

// StudentParity is one programme's enrolment split by sex.
type StudentParity struct {
	Program string `json:"program" validate:"required,max=200"`
	Level   string `json:"level" validate:"required,oneof=undergraduate graduate postgraduate"`
	Male    int    `json:"male" validate:"gte=0"`
	Female  int    `json:"female" validate:"gte=0"`
}

// FacultyParity is one department's faculty headcount by academic rank.
type FacultyParity struct {
	Department string `json:"department" validate:"required,max=200"`
	Rank       string `json:"rank" validate:"required,max=100"`
	Male       int    `json:"male" validate:"gte=0"`
	Female     int    `json:"female" validate:"gte=0"`
}

// StaffParity is one office's non-teaching headcount by position.
type StaffParity struct {
	Office   string `json:"office" validate:"required,max=200"`
	Position string `json:"position" validate:"required,max=100"`
	Male     int    `json:"male" validate:"gte=0"`
	Female   int    `json:"female" validate:"gte=0"`
}

// PWDRecord counts persons with disability within a constituent group.
type PWDRecord struct {
	Group          string `json:"group" validate:"required,oneof=student faculty staff"`
	DisabilityType string `json:"disability_type" validate:"required,max=100"`
	Count          int    `json:"count" validate:"gte=0"`
}

// IndigenousRecord counts indigenous peoples within a constituent group.
type IndigenousRecord struct {
	Group     string `json:"group" validate:"required,oneof=student faculty staff"`
	Ethnicity string `json:"ethnicity" validate:"required,max=100"`
	Count     int    `json:"count" validate:"gte=0"`
}

// GPBAccomplishment tracks one gender and development activity against its plan.
type GPBAccomplishment struct {
	GenderIssue string  `json:"gender_issue" validate:"required,max=500"`
	Activity    string  `json:"activity" validate:"required,max=500"`
	Target      int     `json:"target" validate:"gte=0"`
	Actual      int     `json:"actual" validate:"gte=0"`
	Budget      float64 `json:"budget" validate:"gte=0"`
	ActualCost  float64 `json:"actual_cost" validate:"gte=0"`
}

// BudgetPlan is one programme's allocation and utilisation by fund source.
type BudgetPlan struct {
	Program   string  `json:"program" validate:"required,max=200"`
	Source    string  `json:"source" validate:"required,max=100"`
	Allocated float64 `json:"allocated" validate:"gte=0"`
	Utilized  float64 `json:"utilized" validate:"gte=0,ltefield=Allocated"`
}
