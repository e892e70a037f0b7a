package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
)

// Sender abstracts message delivery so the gate can be tested without
// hitting real services.
type Sender interface {
	Send(recipient, subject, plainBody, htmlBody string) error
}

// EmailAPISender delivers through the email relay's HTTP API with a
// simple retry loop.
type EmailAPISender struct {
	BaseURL    string
	Attempts   int
	RetryDelay time.Duration
	client     *http.Client
	sleep      func(time.Duration)
}

// NewEmailAPISender creates a sender posting to baseURL. attempts must
// be at least 1.
func NewEmailAPISender(baseURL string, attempts int, retryDelay time.Duration) *EmailAPISender {
	if attempts < 1 {
		attempts = 1
	}
	return &EmailAPISender{
		BaseURL:    baseURL,
		Attempts:   attempts,
		RetryDelay: retryDelay,
		client:     &http.Client{Timeout: 30 * time.Second},
		sleep:      time.Sleep,
	}
}

type emailPayload struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	HTMLContent string `json:"html_content"`
}

type emailResult struct {
	Success bool `json:"success"`
}

// Send posts the email and retries on failure. The relay signals
// delivery with HTTP 200 and a success flag in the response body.
func (s *EmailAPISender) Send(recipient, subject, plainBody, htmlBody string) error {
	body, err := json.Marshal(emailPayload{
		To:          recipient,
		Subject:     subject,
		Message:     plainBody,
		HTMLContent: htmlBody,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.Attempts; attempt++ {
		lastErr = s.post(body)
		if lastErr == nil {
			return nil
		}
		log.Printf("notify: email to %s failed (attempt %d/%d): %v", recipient, attempt, s.Attempts, lastErr)
		if attempt < s.Attempts {
			s.sleep(s.RetryDelay)
		}
	}
	return fmt.Errorf("send email to %s after %d attempts: %w", recipient, s.Attempts, lastErr)
}

func (s *EmailAPISender) post(body []byte) error {
	resp, err := s.client.Post(s.BaseURL+"/api/emails/send", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email API returned %d: %s", resp.StatusCode, text)
	}

	var result emailResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode email API response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("email API reported failure")
	}
	return nil
}

// ShoutrrrSender delivers via the Shoutrrr library. Recipients are
// Shoutrrr service URLs instead of email addresses.
type ShoutrrrSender struct{}

func (ShoutrrrSender) Send(recipient, subject, plainBody, _ string) error {
	return shoutrrr.Send(recipient, subject+"\n\n"+plainBody)
}
