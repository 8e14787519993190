package model

import "github.com/shopspring/decimal"

// Course is a purchasable grouping of doors (a sub-category in the catalog).
type Course struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Price   decimal.Decimal `json:"price"`
	DoorIDs []string        `json:"doors"`
}

// Door is a purchasable content unit grouping lessons.
type Door struct {
	ID       string          `json:"id"`
	CourseID string          `json:"course_id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
}

// Lesson belongs to exactly one door and owns exams.
type Lesson struct {
	ID     string `json:"id"`
	DoorID string `json:"door_id"`
	Title  string `json:"title"`
}

// CatalogImport is the JSON shape of a catalog file.
type CatalogImport struct {
	Courses []CourseImport `json:"courses"`
}

// CourseImport is a course with its nested doors.
type CourseImport struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Doors []DoorImport    `json:"doors"`
}

// DoorImport is a door with its nested lessons.
type DoorImport struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Price   decimal.Decimal `json:"price"`
	Lessons []Lesson        `json:"lessons"`
}
