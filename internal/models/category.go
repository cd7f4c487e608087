package models

import "strings"

// Category is a data domain with its own permission scope and payload shape.
type Category string

const (
	CategoryStudents   Category = "students"
	CategoryFaculty    Category = "faculty"
	CategoryStaff      Category = "staff"
	CategoryPWD        Category = "pwd"
	CategoryIndigenous Category = "indigenous"
	CategoryGPB        Category = "gpb"
	CategoryBudget     Category = "budget"
)

// Categories lists every supported data domain in display order.
var Categories = []Category{
	CategoryStudents,
	CategoryFaculty,
	CategoryStaff,
	CategoryPWD,
	CategoryIndigenous,
	CategoryGPB,
	CategoryBudget,
}

// ParseCategory lower-cases and trims the raw value. It does not validate.
func ParseCategory(raw string) Category {
	return Category(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns a human readable name for reports.
func (c Category) Label() string {
	switch c {
	case CategoryStudents:
		return "Students"
	case CategoryFaculty:
		return "Faculty"
	case CategoryStaff:
		return "Staff"
	case CategoryPWD:
		return "Persons with Disability"
	case CategoryIndigenous:
		return "Indigenous Peoples"
	case CategoryGPB:
		return "GPB Accomplishments"
	case CategoryBudget:
		return "Budget Plans"
	default:
		return string(c)
	}
}
