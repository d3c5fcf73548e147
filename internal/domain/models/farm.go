package models

import "time"

// FarmerType drives the per-request chick quota.
type FarmerType string

const (
	FarmerStarter   FarmerType = "starter"
	FarmerReturning FarmerType = "returning"
)

// Valid reports whether t is a known farmer type.
func (t FarmerType) Valid() bool {
	return t == FarmerStarter || t == FarmerReturning
}

// Farmer is a customer registered by a sales agent.
type Farmer struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	FarmerID        string     `gorm:"size:15;uniqueIndex;not null" json:"farmer_id"`
	Name            string     `gorm:"size:50;not null" json:"name"`
	Type            FarmerType `gorm:"size:10;not null" json:"type"`
	DateOfBirth     time.Time  `json:"date_of_birth"`
	Age             int        `json:"age"`
	Gender          string     `gorm:"size:1" json:"gender"`
	Location        string     `gorm:"size:30" json:"location"`
	NIN             string     `gorm:"column:nin;size:14;uniqueIndex;not null" json:"nin"`
	Phone           string     `gorm:"size:15" json:"phone"`
	RecommenderName string     `gorm:"size:50" json:"recommender_name"`
	RecommenderNIN  string     `gorm:"column:recommender_nin;size:14" json:"recommender_nin"`
	RecommenderTel  string     `gorm:"size:15" json:"recommender_tel"`
	RegisteredBy    string     `gorm:"size:64;index" json:"registered_by"`
	RegisteredAt    time.Time  `json:"registered_at"`
}

// TableName pins the table name.
func (Farmer) TableName() string { return "farmers" }

// YearsBetween returns completed years from birth to day.
func YearsBetween(birth, day time.Time) int {
	years := day.Year() - birth.Year()
	if day.Month() < birth.Month() || (day.Month() == birth.Month() && day.Day() < birth.Day()) {
		years--
	}
	return years
}
