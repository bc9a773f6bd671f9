package model

import (
	"fmt"
	"net/http"
)

// Reason classifies why a provider did not produce a usable answer.
type Reason string

// Failure reason vocabulary shared by all providers.
const (
	ReasonNoNaturalStopPoint Reason = "NO_NATURAL_STOP_POINT"
	ReasonNoTextData         Reason = "NO_TEXT_DATA"
	ReasonSafetyCheckFailed  Reason = "SAFETY_CHECK_FAILED"
	ReasonRateLimitExceeded  Reason = "RATE_LIMIT_EXCEEDED"
	ReasonInvalidPrompt      Reason = "INVALID_PROMPT"
	ReasonServerError        Reason = "SERVER_ERROR"
	ReasonTokenLimitReached  Reason = "TOKEN_LIMIT_REACHED"
	ReasonOther              Reason = "OTHER"
)

// GenerationFailedError is returned when the provider answers but the answer
// is not usable, or when the provider call itself fails.
type GenerationFailedError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *GenerationFailedError) Error() string {
	msg := fmt.Sprintf("generation failed (%s)", e.Reason)
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the provider error, if any.
func (e *GenerationFailedError) Unwrap() error { return e.Err }

// PromptBlockedError is returned when the provider refuses the prompt itself.
type PromptBlockedError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *PromptBlockedError) Error() string {
	msg := fmt.Sprintf("prompt blocked (%s)", e.Reason)
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the provider error, if any.
func (e *PromptBlockedError) Unwrap() error { return e.Err }

// ReasonForStatus maps an HTTP status code from a provider API to a Reason.
func ReasonForStatus(status int) Reason {
	switch {
	case status == http.StatusTooManyRequests:
		return ReasonRateLimitExceeded
	case status >= http.StatusInternalServerError:
		return ReasonServerError
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ReasonInvalidPrompt
	default:
		return ReasonOther
	}
}
