package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobVerificationEmail:
		switch payload.(type) {
		case VerificationEmailPayload, *VerificationEmailPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}

	case JobPasswordChangedEmail:
		switch payload.(type) {
		case PasswordChangedEmailPayload, *PasswordChangedEmailPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals a raw payload into the typed struct for the job
// type, validating the fields the worker depends on.
func DecodePayload(t JobType, raw json.RawMessage) (any, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(raw) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch t {
	case JobVerificationEmail:
		var p VerificationEmailPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		if strings.TrimSpace(p.UserID) == "" || strings.TrimSpace(p.Email) == "" {
			return nil, ErrInvalidJobPayload
		}
		return p, nil

	case JobPasswordChangedEmail:
		var p PasswordChangedEmailPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		if strings.TrimSpace(p.UserID) == "" || strings.TrimSpace(p.Email) == "" {
			return nil, ErrInvalidJobPayload
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}
