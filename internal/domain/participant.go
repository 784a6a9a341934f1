// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"
)

const (
	MaxParticipantIDLen = 64
	MaxDisplayNameLen   = 64
)

var (
	ErrParticipantIDEmpty   = errors.New("participant id empty")
	ErrParticipantIDTooLong = errors.New("participant id too long")
	ErrDisplayNameTooLong   = errors.New("display name too long")
)

type ParticipantID string

// Role is assigned by the auth layer before the signaling subsystem is reached.
type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
)

type Participant struct {
	ID   ParticipantID `json:"id"`
	Name string        `json:"name,omitempty"`
	Role Role          `json:"role,omitempty"`
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipant(id ParticipantID, name string, role Role) (*Participant, error) {
	if len(id) == 0 {
		return nil, ErrParticipantIDEmpty
	}
	if len(id) > MaxParticipantIDLen {
		return nil, ErrParticipantIDTooLong
	}
	if len(name) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	return &Participant{ID: id, Name: name, Role: role}, nil
}
