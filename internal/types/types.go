// Package types holds the shared data structures used across the
// application. Handlers, storage backends and the response helpers all
// import types without depending on each other.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Student represents a student record.
//
// Struct tags:
//
//  1. json:"..."     - wire names used by the API and the browser client.
//  2. validate:"..." - rules checked by go-playground/validator before a
//     record is written to any backend.
//
// Class is the legacy name of Sem. It is only ever read from request
// bodies; Normalize folds it into Sem, so it never appears in responses.
type Student struct {
	ID    string `json:"id"`
	Name  string `json:"name"  validate:"required"`
	USN   string `json:"usn"   validate:"required"`
	Sem   string `json:"sem"   validate:"required"`
	Class string `json:"class,omitempty" validate:"-"`

	// CreatedAt is assigned by the durable backend only; the in-memory
	// backend leaves it nil and it is omitted from JSON.
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts sem and class as either a JSON string or a JSON
// number, so {"sem": 3} and {"sem": "3"} decode to the same record.
func (s *Student) UnmarshalJSON(data []byte) error {
	type plain Student
	aux := struct {
		*plain
		Sem   json.RawMessage `json:"sem"`
		Class json.RawMessage `json:"class"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if s.Sem, err = scalarText("sem", aux.Sem); err != nil {
		return err
	}
	if s.Class, err = scalarText("class", aux.Class); err != nil {
		return err
	}
	return nil
}

// scalarText returns the text of a JSON string or number. Absent and null
// values yield "".
func scalarText(field string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String(), nil
	}

	return "", fmt.Errorf("field %s must be a string or number", field)
}

// Normalize returns a copy of s in canonical form: surrounding whitespace
// trimmed, Class folded into Sem when Sem is empty, and Class cleared.
func (s Student) Normalize() Student {
	s.Name = strings.TrimSpace(s.Name)
	s.USN = strings.TrimSpace(s.USN)
	s.Sem = strings.TrimSpace(s.Sem)
	if s.Sem == "" {
		s.Sem = strings.TrimSpace(s.Class)
	}
	s.Class = ""
	return s
}

// Filter selects students in a list query. Zero-valued fields are ignored.
//
//	Name - case-insensitive substring match
//	USN  - exact match
//	Sem  - exact match
type Filter struct {
	Name string
	USN  string
	Sem  string
}

// Matches reports whether s satisfies every non-empty field of f.
func (f Filter) Matches(s Student) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.USN != "" && s.USN != f.USN {
		return false
	}
	if f.Sem != "" && s.Sem != f.Sem {
		return false
	}
	return true
}
