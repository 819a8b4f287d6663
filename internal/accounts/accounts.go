package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/lpi-harvester/internal/schemas"
	"github.com/jonathan/lpi-harvester/internal/types"
)

// DefaultPath is the accounts file used when none is configured.
const DefaultPath = "accounts.json"

var validate = validator.New()

// Load reads the accounts file at path and validates every entry.
// Any invalid entry fails the whole load.
func Load(path string) ([]types.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	list, err := Parse(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.Path = path
		}
		return nil, err
	}
	return list, nil
}

// Parse decodes and validates an accounts document.
func Parse(data []byte) ([]types.Account, error) {
	var list []types.Account
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &LoadError{Path: "(inline)", Message: "failed to parse accounts JSON", Cause: err}
	}
	if len(list) == 0 {
		return nil, ErrNoAccounts
	}
	if err := schemas.Validate(schemas.Accounts, data); err != nil {
		return nil, &LoadError{Path: "(inline)", Message: "accounts do not match schema", Cause: err}
	}
	if err := Validate(list); err != nil {
		return nil, err
	}
	return list, nil
}

// Validate checks required fields and identity uniqueness.
func Validate(list []types.Account) error {
	if len(list) == 0 {
		return ErrNoAccounts
	}
	seen := make(map[string]int, len(list))
	for i, acc := range list {
		if err := validate.Struct(acc); err != nil {
			return &ValidationError{
				Index:    i,
				Identity: acc.Identity,
				Message:  "each account must include email, password, and study",
				Cause:    err,
			}
		}
		if first, dup := seen[acc.Identity]; dup {
			return &ValidationError{
				Index:    i,
				Identity: acc.Identity,
				Message:  fmt.Sprintf("duplicate of account #%d", first+1),
			}
		}
		seen[acc.Identity] = i
	}
	return nil
}

// FileSource loads accounts from a JSON file each time they are requested.
type FileSource struct {
	Path string
}

// Accounts loads the file. The context is only checked before reading.
func (s FileSource) Accounts(ctx context.Context) ([]types.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path
	if path == "" {
		path = DefaultPath
	}
	return Load(path)
}

// List is an in-memory account source.
type List []types.Account

// Accounts validates and returns a copy of the list.
func (l List) Accounts(_ context.Context) ([]types.Account, error) {
	if err := Validate(l); err != nil {
		return nil, err
	}
	out := make([]types.Account, len(l))
	copy(out, l)
	return out, nil
}
