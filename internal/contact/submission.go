// Package contact turns contact-form submissions into outbound mail.
package contact

import (
	"strings"
)

// RequiredFieldsMessage is the client-facing text of a ValidationError.
const RequiredFieldsMessage = "All fields (email, subject, message) are required"

// Submission is a single contact-form post. It is never stored.
type Submission struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ValidationError reports which required fields were missing or blank.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return RequiredFieldsMessage
}

// Validate checks that email, subject and message are all present.
// It returns a *ValidationError listing the blank fields.
func (s Submission) Validate() error {
	var missing []string
	if strings.TrimSpace(s.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(s.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(s.Message) == "" {
		missing = append(missing, "message")
	}

	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// normalized returns a copy with surrounding whitespace removed from the
// single-line fields. The message body is kept verbatim.
func (s Submission) normalized() Submission {
	return Submission{
		Email:   strings.TrimSpace(s.Email),
		Subject: strings.TrimSpace(s.Subject),
		Message: s.Message,
	}
}
