// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

func IsCampaignNotFound(err error) bool {
	var e *ErrCampaignNotFound
	return errors.As(err, &e)
}

// ErrInvalidInput is returned synchronously to the launch caller when
// validation fails before a run starts. No session is created in that case.
type ErrInvalidInput struct {
	Reason string
}

func (e *ErrInvalidInput) Error() string {
	return "invalid input: " + e.Reason
}

func NewInvalidInput(reason string) error {
	return &ErrInvalidInput{Reason: reason}
}

func IsInvalidInput(err error) bool {
	var e *ErrInvalidInput
	return errors.As(err, &e)
}
