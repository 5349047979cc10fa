package model

import "time"

// ProgressConfiguration configures one (user, progressKey) progress collection.
type ProgressConfiguration struct {
	ProgressKey string `json:"progress_key" firestore:"progress_key" validate:"required"`
}

// Validate checks that ProgressKey equals its own sanitized form.
func (c ProgressConfiguration) Validate() error {
	if err := Validate(c); err != nil {
		return err
	}
	if !IsSanitizedKey(c.ProgressKey) {
		return errInvalidKey("progress_key", c.ProgressKey)
	}
	return nil
}

// ProgressItem is a single value-in-[0,1] progress record (spec.md §3).
type ProgressItem struct {
	ID           string    `json:"id" firestore:"id"`
	ProgressKey  string    `json:"progress_key" firestore:"progress_key"`
	Value        float64   `json:"value" firestore:"value"`
	DateCreated  time.Time `json:"date_created" firestore:"date_created"`
	DateModified time.Time `json:"date_modified" firestore:"date_modified"`
	Metadata     Metadata  `json:"metadata,omitempty" firestore:"metadata,omitempty"`
}

// CompositeID returns the progressKey+"_"+id identity spec.md's GLOSSARY defines,
// which uniquely identifies a ProgressItem across progressKeys.
func (p ProgressItem) CompositeID() string {
	return p.ProgressKey + "_" + p.ID
}
