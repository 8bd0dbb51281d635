package models

import "time"

// NotificationContext is the rendering context a mail template receives.
type NotificationContext struct {
	Username          string    `json:"username"`
	SeriesName        string    `json:"series_name"`
	Message           string    `json:"message"`
	OccurrenceTime    time.Time `json:"occurrence_time"`
	OccurrenceOrdinal int       `json:"occurrence_ordinal"`
	Repeat            string    `json:"repeat"` // human-readable recurrence, e.g. "every 2 weeks"
	Note              string    `json:"note"`   // why the reminder fired
}

// NotificationPayload is one in-flight outbound notification.
type NotificationPayload struct {
	To      string `json:"to"`
	Cc      string `json:"cc"`
	Sender  string `json:"sender"` // send-on-behalf address, optional
	Subject string `json:"subject"`
	// LocalImagePath points at an image embedded inline for branding.
	LocalImagePath string `json:"local_image_path"`

	Context NotificationContext `json:"context"`
}
