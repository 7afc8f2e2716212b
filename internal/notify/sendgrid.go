package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const sendgridAPIURL = "https://api.sendgrid.com/v3/mail/send"

// SendGrid delivers report summaries by email through the SendGrid v3 API.
// Delivery failure is the caller's warning, never its error.
type SendGrid struct {
	apiKey     string
	sender     string
	endpoint   string
	httpClient *http.Client
}

func NewSendGrid(apiKey, sender string) *SendGrid {
	return &SendGrid{
		apiKey:     apiKey,
		sender:     sender,
		endpoint:   sendgridAPIURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type mailRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send mails the report summary to the recipient.
func (s *SendGrid) Send(ctx context.Context, recipient string, reportID int64, summary string) error {
	html := fmt.Sprintf("<h2>Latest Report Summary</h2><p>%s</p><p>Report #%d</p>", summary, reportID)
	body, err := json.Marshal(mailRequest{
		Personalizations: []personalization{{To: []address{{Email: recipient}}}},
		From:             address{Email: s.sender},
		Subject:          fmt.Sprintf("Customer Compass Report #%d", reportID),
		Content:          []content{{Type: "text/html", Value: html}},
	})
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
