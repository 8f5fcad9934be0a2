package jobqueue

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/obedenzy/starbridge/internal/pkg/mail"
)

// processReviewNotificationJob mails a captured review to the business owner.
func (q *Queue) processReviewNotificationJob(job *Job) error {
	payload, err := ReviewNotificationPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid review notification payload: %w", err)
	}
	if payload.ContactEmail == "" {
		// Nothing to deliver to; treat as done rather than retrying forever.
		log.Warnf("[JobQueue] Business %d has no contact email, skipping notification", payload.BusinessID)
		return nil
	}

	subject, body := mail.BuildReviewNotificationMail(
		payload.BusinessName,
		payload.ReviewerName,
		payload.ReviewerEmail,
		payload.Subject,
		payload.Comment,
		payload.Rating,
	)
	return mail.SendMail(payload.ContactEmail, subject, body)
}

// processPaymentFailedNoticeJob mails the grace-period notice after a failed charge.
func (q *Queue) processPaymentFailedNoticeJob(job *Job) error {
	payload, err := PaymentFailedNoticePayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid payment failed payload: %w", err)
	}
	if payload.ContactEmail == "" {
		log.Warnf("[JobQueue] Business %d has no contact email, skipping payment notice", payload.BusinessID)
		return nil
	}

	subject, body := mail.BuildPaymentFailedMail(payload.BusinessName, payload.BillingURL)
	return mail.SendMail(payload.ContactEmail, subject, body)
}

// processActivationMailJob mails the signup activation link.
func (q *Queue) processActivationMailJob(job *Job) error {
	payload, err := ActivationMailPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid activation mail payload: %w", err)
	}

	subject, body := mail.BuildActivationMail(payload.Name, payload.ActivationURL)
	return mail.SendMail(payload.Email, subject, body)
}
