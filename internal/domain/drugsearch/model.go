// Package drugsearch looks up approved drug products in the Korean Ministry of
// Food and Drug Safety (KFDA) permit registry.
package drugsearch

import (
	"errors"
	"fmt"
)

// SearchType selects the registry field a query is matched against.
type SearchType string

const (
	ByName       SearchType = "name"
	ByIngredient SearchType = "ingredient"
	ByCompany    SearchType = "company"
)

// ParseSearchType maps a query value to a SearchType. Anything unrecognized
// searches by name.
func ParseSearchType(s string) SearchType {
	switch SearchType(s) {
	case ByIngredient:
		return ByIngredient
	case ByCompany:
		return ByCompany
	default:
		return ByName
	}
}

// MedicationInfo is one registry entry.
type MedicationInfo struct {
	Name           string `json:"name"`
	Company        string `json:"company"`
	Effect         string `json:"effect"`
	Usage          string `json:"usage"`
	Precautions    string `json:"precautions"`
	SideEffects    string `json:"sideEffects"`
	Ingredients    string `json:"ingredients"`
	ApprovalNumber string `json:"approvalNumber"`
}

type SearchResult struct {
	Medications []MedicationInfo `json:"medications"`
	TotalCount  int              `json:"totalCount"`
}

var (
	ErrNotConfigured = errors.New("drug registry API key is not configured")
	ErrEmptyQuery    = errors.New("search query is required")
)

// RegistryError reports a failed registry call.
type RegistryError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *RegistryError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("drug registry request failed: %v", e.Err)
	case e.Code != "":
		return fmt.Sprintf("drug registry error %s: %s", e.Code, e.Message)
	default:
		return fmt.Sprintf("drug registry returned status %d", e.StatusCode)
	}
}

func (e *RegistryError) Unwrap() error { return e.Err }
