package models

import "time"

// Contact заявка из формы обратной связи
type Contact struct {
	CreatedAt   time.Time `json:"createdAt"`
	FullName    string    `json:"fullname"`
	Email       string    `json:"email"`
	Phone       string    `json:"phoneno,omitempty"`
	Company     string    `json:"company,omitempty"`
	InquiryType string    `json:"inquirytype"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	ID          int64     `json:"id"`
}
