package validate

import "strings"

// disposableDomains lists throwaway-mailbox providers rejected by the intake form.
var disposableDomains = map[string]bool{
	"10minutemail.com":   true,
	"20minutemail.com":   true,
	"discard.email":      true,
	"dispostable.com":    true,
	"emailondeck.com":    true,
	"fakeinbox.com":      true,
	"getairmail.com":     true,
	"getnada.com":        true,
	"guerrillamail.com":  true,
	"guerrillamail.net":  true,
	"guerrillamail.org":  true,
	"maildrop.cc":        true,
	"mailinator.com":     true,
	"mailnesia.com":      true,
	"mintemail.com":      true,
	"mohmal.com":         true,
	"moakt.com":          true,
	"mytemp.email":       true,
	"sharklasers.com":    true,
	"spamgourmet.com":    true,
	"temp-mail.org":      true,
	"tempail.com":        true,
	"tempmail.com":       true,
	"tempmailo.com":      true,
	"tempr.email":        true,
	"throwawaymail.com":  true,
	"trashmail.com":      true,
	"yopmail.com":        true,
	"yopmail.net":        true,
}

// IsDisposableEmail reports whether the email's domain, or any parent domain,
// is a known disposable-mailbox provider.
func IsDisposableEmail(email string) bool {
	domain := EmailDomain(email)
	for domain != "" {
		if disposableDomains[domain] {
			return true
		}
		dot := strings.IndexByte(domain, '.')
		if dot < 0 {
			return false
		}
		domain = domain[dot+1:]
	}
	return false
}
