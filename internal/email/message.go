// Package email defines the outbound message model handed to delivery providers.
package email

// Email is a fully addressed message ready for a provider. It lives only for
// the duration of a single send.
type Email struct {
	From     string
	To       []string
	ReplyTo  string
	Subject  string
	TextBody string
	HtmlBody string
}

// ReplyToList returns ReplyTo as a recipient list, empty when unset.
func (e *Email) ReplyToList() []string {
	if e.ReplyTo == "" {
		return nil
	}
	return []string{e.ReplyTo}
}
