package domain

import (
	"strings"
	"time"
)

// BoxStatus describes the packaging state of an inventory item.
type BoxStatus string

const (
	BoxOriginal BoxStatus = "original"
	BoxWhite    BoxStatus = "white_box"
	BoxNone     BoxStatus = "none"
)

// Valid reports whether b is one of the known box statuses.
func (b BoxStatus) Valid() bool {
	switch b {
	case BoxOriginal, BoxWhite, BoxNone:
		return true
	}
	return false
}

// Label returns the human-readable form used in tables and forms.
func (b BoxStatus) Label() string {
	switch b {
	case BoxOriginal:
		return "Original Box"
	case BoxWhite:
		return "White Box"
	case BoxNone:
		return "No Box"
	}
	return string(b)
}

// Item is a single equipment inventory record. Identity is the
// backend-assigned document id.
type Item struct {
	ID           string
	Model        string
	SerialNumber string
	BoxStatus    BoxStatus
	Location     string
	UsageArea    string
	EntryDate    time.Time
	ExitDate     *time.Time
	Note         string
	CreatedAt    time.Time
}

// SearchFields returns the text fields the inventory search matches against.
func (i *Item) SearchFields() []string {
	return []string{i.Model, i.SerialNumber, i.Location, i.UsageArea, i.Note, string(i.BoxStatus)}
}

// Contact is an organizational contact record. Legacy records carry
// FirstName/LastName instead of FullName; both forms are preserved as stored.
type Contact struct {
	ID         string
	FullName   string
	FirstName  string
	LastName   string
	Company    string
	Department string
	Title      string
	Phone      string
	Address    string
	CreatedAt  time.Time
}

// DisplayName prefers FullName and falls back to joining the legacy
// first/last name fields.
func (c *Contact) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// SearchFields returns the text fields the contact search matches against.
func (c *Contact) SearchFields() []string {
	return []string{c.FullName, c.FirstName, c.LastName, c.Company, c.Department, c.Phone}
}
