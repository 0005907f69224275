// Package facilities defines the facility/role permission tuples attached to
// an authenticated session.
package facilities

import (
	"context"
	"encoding/json"
)

// Facility is one facility the user holds roles for.
type Facility struct {
	FacilityID int      `json:"facId"`
	OrisCode   int      `json:"orisCode"`
	Name       string   `json:"facilityName"`
	Roles      []string `json:"roles"`
}

// Provider looks up the facility permissions for a user. Implementations call
// the external CDX register service or return configured mocks.
type Provider interface {
	FacilitiesForUser(ctx context.Context, userID string) ([]Facility, error)
}

// Serialize renders the facility list as the JSON cached on the session row.
// A nil list serializes as an empty array, never null.
func Serialize(list []Facility) (string, error) {
	if list == nil {
		list = []Facility{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Deserialize parses the JSON cached on a session row.
func Deserialize(s string) ([]Facility, error) {
	if s == "" {
		return []Facility{}, nil
	}
	var out []Facility
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MockProvider returns a fixed facility set; used only when mock permissions
// are enabled outside production.
type MockProvider struct {
	Facilities []Facility
}

func (m *MockProvider) FacilitiesForUser(context.Context, string) ([]Facility, error) {
	return m.Facilities, nil
}
