package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
)

// MaxTitleLength bounds scan titles.
const MaxTitleLength = 200

// Validation errors. All of them match common.ErrInvalidInput.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = fmt.Errorf("%w: string parameter cannot be empty", common.ErrInvalidInput)
	ErrNilParameter     = fmt.Errorf("%w: parameter cannot be nil", common.ErrInvalidInput)
	ErrInvalidCard      = fmt.Errorf("%w: invalid card", common.ErrInvalidInput)
	ErrInvalidScan      = fmt.Errorf("%w: invalid scan", common.ErrInvalidInput)
	ErrInvalidDetection = fmt.Errorf("%w: invalid detection", common.ErrInvalidInput)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateTitle(title string) error {
	if err := validateString(title, "title"); err != nil {
		return err
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("%w: title longer than %d characters", ErrInvalidScan, MaxTitleLength)
	}
	return nil
}

func validateStatus(status model.ScanStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", common.ErrInvalidStatus, status)
	}
	return nil
}

func validateCard(card *model.Card) error {
	if card == nil {
		return fmt.Errorf("%w: card", ErrNilParameter)
	}
	if card.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidCard)
	}
	if card.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCard)
	}
	if card.MarketPrice != nil && *card.MarketPrice < 0 {
		return fmt.Errorf("%w: negative market price", ErrInvalidCard)
	}
	return nil
}

func validateScan(scan *model.Scan) error {
	if scan == nil {
		return fmt.Errorf("%w: scan", ErrNilParameter)
	}
	if scan.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidScan)
	}
	if err := validateTitle(scan.Title); err != nil {
		return err
	}
	return validateStatus(scan.Status)
}

func validateDetection(d *model.Detection) error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidDetection)
	}
	if d.CropURL == "" {
		return fmt.Errorf("%w: missing crop reference", ErrInvalidDetection)
	}
	if d.Confidence != nil && (*d.Confidence < 0 || *d.Confidence > 1) {
		return fmt.Errorf("%w: confidence %.2f outside 0..1", ErrInvalidDetection, *d.Confidence)
	}
	return nil
}
