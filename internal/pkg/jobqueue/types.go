package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeReviewNotification JobType = "review_notification"
	JobTypePaymentFailedNote  JobType = "payment_failed_notice"
	JobTypeActivationMail     JobType = "activation_mail"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// MarkAsProcessing transitions the job into the processing state.
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkAsCompleted transitions the job into the completed state.
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed records a failure and bumps the retry counter.
func (j *Job) MarkAsFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMsg = errMsg
	j.RetryCount++
	j.UpdatedAt = time.Now()
}

// MarkAsRetrying transitions a failed job into the retrying state.
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// IsRetryable reports whether the job has retries left.
func (j *Job) IsRetryable() bool {
	return j.RetryCount <= j.MaxRetries
}

// ReviewNotificationPayload carries a captured review to the owner mailer.
type ReviewNotificationPayload struct {
	BusinessID    uint   `json:"business_id"`
	BusinessName  string `json:"business_name"`
	ContactEmail  string `json:"contact_email"`
	ReviewerName  string `json:"reviewer_name"`
	ReviewerEmail string `json:"reviewer_email"`
	Subject       string `json:"subject"`
	Comment       string `json:"comment"`
	Rating        int    `json:"rating"`
}

// ToMap converts the payload to a map for storage
func (p ReviewNotificationPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"business_id":    p.BusinessID,
		"business_name":  p.BusinessName,
		"contact_email":  p.ContactEmail,
		"reviewer_name":  p.ReviewerName,
		"reviewer_email": p.ReviewerEmail,
		"subject":        p.Subject,
		"comment":        p.Comment,
		"rating":         p.Rating,
	}
}

// ReviewNotificationPayloadFromMap creates a payload from a map
func ReviewNotificationPayloadFromMap(data map[string]interface{}) (*ReviewNotificationPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ReviewNotificationPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// PaymentFailedNoticePayload carries the grace-period notice details.
type PaymentFailedNoticePayload struct {
	BusinessID   uint   `json:"business_id"`
	BusinessName string `json:"business_name"`
	ContactEmail string `json:"contact_email"`
	BillingURL   string `json:"billing_url"`
}

// ToMap converts the payload to a map for storage
func (p PaymentFailedNoticePayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"business_id":   p.BusinessID,
		"business_name": p.BusinessName,
		"contact_email": p.ContactEmail,
		"billing_url":   p.BillingURL,
	}
}

// PaymentFailedNoticePayloadFromMap creates a payload from a map
func PaymentFailedNoticePayloadFromMap(data map[string]interface{}) (*PaymentFailedNoticePayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PaymentFailedNoticePayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ActivationMailPayload carries the signup activation email details.
type ActivationMailPayload struct {
	UserID        uint   `json:"user_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ActivationURL string `json:"activation_url"`
}

// ToMap converts the payload to a map for storage
func (p ActivationMailPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        p.UserID,
		"name":           p.Name,
		"email":          p.Email,
		"activation_url": p.ActivationURL,
	}
}

// ActivationMailPayloadFromMap creates a payload from a map
func ActivationMailPayloadFromMap(data map[string]interface{}) (*ActivationMailPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ActivationMailPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}
