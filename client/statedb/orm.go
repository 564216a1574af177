package statedb

import (
	"github.com/cyclopcam/dbh"
	"github.com/swellcast/swellcast/client/model"
)

// VariableKey names a preference flag stored in the variable table.
type VariableKey string

const (
	VarTheme           VariableKey = "Theme"
	VarShowAIForecast  VariableKey = "ShowAIForecast"
	VarPreferredRegion VariableKey = "PreferredRegion"
	VarUnitsMetric     VariableKey = "UnitsMetric"
)

type Variable struct {
	Key   string `gorm:"primaryKey" json:"key"`
	Value string `json:"value"`
}

// LastUser is a single-row table (id always 1) holding the most recent user
// snapshot from a successful auth call.
type LastUser struct {
	ID         int64       `gorm:"primaryKey"`
	Email      string
	Name       string
	Picture    string
	FamilyName string
	GivenName  string
	CreatedAt  dbh.IntTime `gorm:"default:null"`
	LastLogin  dbh.IntTime `gorm:"default:null"`
	Theme      string
}

func (r *LastUser) TableName() string { return "last_user" }

type Spot struct {
	ID           string `gorm:"primaryKey"`
	Region       string
	Name         string
	Latitude     float64
	Longitude    float64
	ThumbnailKey string
	UpdatedAt    dbh.IntTime
}

func lastUserFromModel(user *model.User) *LastUser {
	rec := &LastUser{
		ID:         1,
		Email:      user.Email,
		Name:       user.Name,
		Picture:    user.Picture,
		FamilyName: user.FamilyName,
		GivenName:  user.GivenName,
		Theme:      user.Theme,
	}
	if user.CreatedAt != nil {
		rec.CreatedAt = dbh.MakeIntTime(*user.CreatedAt)
	}
	if user.LastLogin != nil {
		rec.LastLogin = dbh.MakeIntTime(*user.LastLogin)
	}
	return rec
}

func (r *LastUser) toModel() *model.User {
	user := &model.User{
		Email:      r.Email,
		Name:       r.Name,
		Picture:    r.Picture,
		FamilyName: r.FamilyName,
		GivenName:  r.GivenName,
		Theme:      r.Theme,
	}
	if !r.CreatedAt.IsZero() {
		t := r.CreatedAt.Get()
		user.CreatedAt = &t
	}
	if !r.LastLogin.IsZero() {
		t := r.LastLogin.Get()
		user.LastLogin = &t
	}
	return user
}
