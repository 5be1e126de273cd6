package db

import "time"

// Token is the single persisted credential row.
// Remember records the tier chosen at login so refreshed tokens land in the same place.
type Token struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	Remember     bool      `json:"remember"`
	UpdatedAt    time.Time `json:"-"`
}

// TableName pins the table name so renaming the struct never orphans stored credentials.
func (Token) TableName() string { return "tokens" }
