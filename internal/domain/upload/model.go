package upload

import (
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of an upload. Uploads are accepted directly
// into StatusProcessing; StatusPending is kept for records created by other
// tools.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusCompleted:  true,
	StatusFailed:     true,
}

// Upload tracks one prescription image through recognition. OriginalURL is the
// blob id of the stored image.
type Upload struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	UserID           string     `json:"userId" db:"user_id"`
	FileName         string     `json:"fileName" db:"file_name"`
	OriginalURL      string     `json:"originalUrl" db:"original_url"`
	ExtractedText    *string    `json:"extractedText" db:"extracted_text"`
	ProcessingStatus Status     `json:"processingStatus" db:"processing_status"`
	MedicationID     *uuid.UUID `json:"medicationId" db:"medication_id"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
}

// Terminal reports whether no further processing will happen.
func (u *Upload) Terminal() bool {
	return u.ProcessingStatus == StatusCompleted || u.ProcessingStatus == StatusFailed
}

// Update is a partial update; nil fields are left unchanged.
type Update struct {
	ExtractedText *string
	Status        *Status
	MedicationID  *uuid.UUID
}

func (p Update) apply(u *Upload) {
	if p.ExtractedText != nil {
		u.ExtractedText = p.ExtractedText
	}
	if p.Status != nil {
		u.ProcessingStatus = *p.Status
	}
	if p.MedicationID != nil {
		u.MedicationID = p.MedicationID
	}
}

// AcceptedResponse is returned to the client as soon as an upload is queued.
type AcceptedResponse struct {
	UploadID uuid.UUID `json:"uploadId"`
	Status   Status    `json:"status"`
	Message  string    `json:"message"`
}
