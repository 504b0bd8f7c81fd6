package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingRequiredSource is matched by every MissingSourceError.
	ErrMissingRequiredSource = errors.New("missing required source")

	// ErrNoSnapshot is returned by queries before the first successful pass.
	ErrNoSnapshot = errors.New("no snapshot loaded")

	// ErrUnknownSource is returned for a source kind with no definition.
	ErrUnknownSource = errors.New("unknown source")

	// ErrInvalidSelection is returned for malformed filter or search input.
	ErrInvalidSelection = errors.New("invalid selection")
)

// MissingSourceError reports that a required source was not supplied.
// No snapshot is produced.
type MissingSourceError struct {
	Source SourceKind
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("missing required source: %s", e.Source)
}

// Is matches ErrMissingRequiredSource.
func (e *MissingSourceError) Is(target error) bool {
	return target == ErrMissingRequiredSource
}

// MissingColumnError reports that a source lacks a column a feature needs.
// Reconciliation turns it into a Warning and disables the feature.
type MissingColumnError struct {
	Source  SourceKind
	Column  string
	Feature string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q in %s source: %s disabled", e.Column, e.Source, e.Feature)
}

// Warning converts the error into a snapshot warning.
func (e *MissingColumnError) Warning() Warning {
	return Warning{Source: e.Source, Column: e.Column, Feature: e.Feature + " disabled"}
}

// DuplicateKeyError reports an auxiliary source with more than one row per
// canonical key where one row per key was required.
type DuplicateKeyError struct {
	Source SourceKind
	Key    CanonicalID
	Rows   []int // 0-based data rows sharing the key
}

func (e *DuplicateKeyError) Error() string {
	rows := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		rows[i] = fmt.Sprint(r + 1)
	}
	return fmt.Sprintf("duplicate key %q in %s source (rows %s)", e.Key, e.Source, strings.Join(rows, ", "))
}

// UnknownColumnError reports a projection or filter naming a column the view lacks.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}
