package mail

import (
	"fmt"
	"html"
	"strings"
)

// BuildActivationMail renders the account activation email.
func BuildActivationMail(name, activationURL string) (subject, body string) {
	subject = "Activate your Starbridge account"
	body = fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>thanks for signing up. Click the link below to activate your account:</p>
<p><a href="%s">%s</a></p>
<p>If you did not create this account you can ignore this email.</p>
</body></html>`,
		html.EscapeString(name), activationURL, activationURL)
	return subject, body
}

// BuildReviewNotificationMail renders the owner notification for a newly
// captured review.
func BuildReviewNotificationMail(businessName, reviewerName, reviewerEmail, reviewSubject, comment string, rating int) (subject, body string) {
	subject = fmt.Sprintf("New %d-star feedback for %s", rating, businessName)

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>%s left %d-star feedback for %s.</p>",
		html.EscapeString(reviewerName), rating, html.EscapeString(businessName))
	if reviewerEmail != "" {
		fmt.Fprintf(&b, "<p>Contact: %s</p>", html.EscapeString(reviewerEmail))
	}
	if reviewSubject != "" {
		fmt.Fprintf(&b, "<p><strong>%s</strong></p>", html.EscapeString(reviewSubject))
	}
	if comment != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(comment))
	}
	b.WriteString("</body></html>")
	return subject, b.String()
}

// BuildPaymentFailedMail renders the grace-period notice sent to a business
// owner after a failed charge.
func BuildPaymentFailedMail(businessName, billingURL string) (subject, body string) {
	subject = "Payment failed for " + businessName
	body = fmt.Sprintf(`<html><body>
<p>A recent subscription payment for %s could not be processed.</p>
<p>Your review pages stay online for now. Please update your payment details to avoid interruption:</p>
<p><a href="%s">%s</a></p>
</body></html>`,
		html.EscapeString(businessName), billingURL, billingURL)
	return subject, body
}
