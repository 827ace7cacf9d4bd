package transfercertificate

import (
	"encoding/json"
	"fmt"

	apperrors "ehealth-workers/internal/common/errors"
	"ehealth-workers/internal/common/validation"
)

func GetInputSchema() validation.Schema {
	return validation.CompletionEventSchema()
}

// ParseInput validates raw job variables and decodes them into an Input.
func ParseInput(raw []byte) (*Input, error) {
	var variables map[string]interface{}
	if err := json.Unmarshal(raw, &variables); err != nil {
		return nil, apperrors.NewInputParsingFailedError(err)
	}

	if result := validation.ValidateInput(variables, GetInputSchema()); !result.Valid {
		return nil, apperrors.NewValidationFailedError(
			fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()))
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, apperrors.NewInputParsingFailedError(err)
	}
	return &input, nil
}
