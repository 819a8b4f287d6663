// Package types provides type definitions for structured data used throughout the harvester.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"log/slog"
)

// Account is one harvesting target. The JSON keys match the accounts file format.
type Account struct {
	Identity    string `json:"email" validate:"required"`
	Secret      string `json:"password" validate:"required"`
	CohortLabel string `json:"study" validate:"required"`
}

// LogValue keeps the secret out of structured logs.
func (a Account) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("identity", a.Identity),
		slog.String("cohort", a.CohortLabel),
	)
}

// CapturedResponse is one JSON network response captured during a session.
type CapturedResponse struct {
	SourceURL string          `json:"url"`
	Body      json.RawMessage `json:"body"`
}
