// Package profile stores the per-user profile resource keyed by the token subject.
package profile

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no profile exists for an id.
var ErrNotFound = errors.New("profile not found")

// ErrInvalidID is returned when the subject is not a UUID.
var ErrInvalidID = errors.New("subject is not a valid profile id")

type Profile struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Headline     string    `json:"headline"`
	Location     *string   `json:"location"`
	AvatarURL    *string   `json:"avatar_url"`
	GoodAt       *string   `json:"good_at"`
	NeedHelpWith *string   `json:"need_help_with"`
	WantToHelp   *string   `json:"want_to_help"`
	AudioURLs    []string  `json:"audio_urls"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Nullable is a JSON field that tells an absent key apart from an explicit null.
// Present is set whenever the key was decoded; Value is nil for null.
type Nullable[T any] struct {
	Present bool
	Value   *T
}

// Some returns a Nullable holding v.
func Some[T any](v T) Nullable[T] { return Nullable[T]{Present: true, Value: &v} }

// Null returns a Nullable that clears the column it is applied to.
func Null[T any]() Nullable[T] { return Nullable[T]{Present: true} }

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Present = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Fields is a partial profile. Unsupplied fields are left untouched. An
// explicit null clears a nullable column and resets audio_urls to an empty
// list; it is ignored for full_name and headline, which are never null.
type Fields struct {
	FullName     *string            `json:"full_name,omitempty"`
	Headline     *string            `json:"headline,omitempty"`
	Location     Nullable[string]   `json:"location"`
	AvatarURL    Nullable[string]   `json:"avatar_url"`
	GoodAt       Nullable[string]   `json:"good_at"`
	NeedHelpWith Nullable[string]   `json:"need_help_with"`
	WantToHelp   Nullable[string]   `json:"want_to_help"`
	AudioURLs    Nullable[[]string] `json:"audio_urls"`
}

// Empty reports whether no field was supplied.
func (f Fields) Empty() bool {
	return f == Fields{}
}

// Merge applies f to existing and returns the row to persist. With no
// existing row a new one is built for id; unsupplied text columns are empty
// and audio_urls is an empty list. existing is never modified.
func Merge(existing *Profile, id uuid.UUID, f Fields, now time.Time) Profile {
	var p Profile
	if existing != nil {
		p = *existing
		p.AudioURLs = append([]string(nil), existing.AudioURLs...)
	} else {
		p = Profile{ID: id, CreatedAt: now}
	}
	p.UpdatedAt = now

	setString(&p.FullName, f.FullName)
	setString(&p.Headline, f.Headline)
	setNullable(&p.Location, f.Location)
	setNullable(&p.AvatarURL, f.AvatarURL)
	setNullable(&p.GoodAt, f.GoodAt)
	setNullable(&p.NeedHelpWith, f.NeedHelpWith)
	setNullable(&p.WantToHelp, f.WantToHelp)
	if f.AudioURLs.Present {
		p.AudioURLs = nil
		if f.AudioURLs.Value != nil {
			p.AudioURLs = append([]string(nil), (*f.AudioURLs.Value)...)
		}
	}
	if p.AudioURLs == nil {
		p.AudioURLs = []string{}
	}
	return p
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setNullable(dst **string, v Nullable[string]) {
	if !v.Present {
		return
	}
	if v.Value == nil {
		*dst = nil
		return
	}
	s := *v.Value
	*dst = &s
}

// ParseID converts a token subject into a profile id.
func ParseID(subject string) (uuid.UUID, error) {
	id, err := uuid.Parse(subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}
