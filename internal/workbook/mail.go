package workbook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// mailMessage is the /me/sendMail payload. The sender is always the
// signed-in user; 'from' must never be set on this endpoint.
type mailMessage struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []mailRecipient `json:"toRecipients"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

type mailRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// SendMail sends a plain-text email to a single recipient as the signed-in
// user. The service acknowledges with either 200 or 202 Accepted; both are
// success.
func (c *Client) SendMail(ctx context.Context, recipient, subject, body string, saveToSent bool) error {
	var msg mailMessage
	msg.Message.Subject = subject
	msg.Message.Body.ContentType = "Text"
	msg.Message.Body.Content = body

	var to mailRecipient
	to.EmailAddress.Address = recipient
	msg.Message.ToRecipients = []mailRecipient{to}
	msg.SaveToSentItems = saveToSent

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("workbook: encoding mail: %w", err)
	}

	_, err = c.do(ctx, call{
		method:     http.MethodPost,
		path:       "/me/sendMail",
		body:       payload,
		okStatuses: []int{http.StatusOK, http.StatusAccepted},
	})

	return err
}
