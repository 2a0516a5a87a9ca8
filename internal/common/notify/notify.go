// Package notify sends the operator-facing notifications: the emailed
// error digest after an ack reconciliation pass, and SNS alerts for fatal
// batch failures.
package notify

import (
	"context"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"partner-sync/internal/common/errors"
	"partner-sync/internal/common/logger"
)

const digestSubject = "[Partner Sync] Ack File Processing Error"

// EmailSender is the slice of the SES client the digest mailer needs.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// AlertPublisher is the slice of the SNS client the ops alerter needs.
type AlertPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// DigestMailer rolls the per-row errors of one ack file into a single
// email. One file, one email, however many rows went wrong.
type DigestMailer struct {
	sender     EmailSender
	fromEmail  string
	recipients []string
	logger     logger.Logger
}

func NewDigestMailer(sender EmailSender, fromEmail string, recipients []string, log logger.Logger) *DigestMailer {
	return &DigestMailer{
		sender:     sender,
		fromEmail:  fromEmail,
		recipients: recipients,
		logger:     log,
	}
}

// SendErrorDigest emails the accumulated row errors for one ack file.
// recipients overrides the configured default list when non-empty, so a
// partner can route its own digests. It is a no-op when there are no errors
// or no one to send to. A send failure is returned so the caller can decide
// whether the pass still counts as processed.
func (m *DigestMailer) SendErrorDigest(ctx context.Context, fileName string, rowErrors []string, recipients []string) error {
	if len(rowErrors) == 0 {
		return nil
	}
	if m.sender == nil {
		m.logger.Warn("email sending disabled, dropping ack error digest", map[string]interface{}{
			"fileName":   fileName,
			"errorCount": len(rowErrors),
		})
		return nil
	}
	if len(recipients) == 0 {
		recipients = m.recipients
	}
	if len(recipients) == 0 {
		m.logger.Warn("no digest recipients configured, dropping ack error digest", map[string]interface{}{
			"fileName":   fileName,
			"errorCount": len(rowErrors),
		})
		return nil
	}

	body := fmt.Sprintf("Errors while processing ack file %s:\n\n%s\n",
		fileName, strings.Join(rowErrors, "\n"))

	input := &ses.SendEmailInput{
		Source: sdkaws.String(m.fromEmail),
		Destination: &types.Destination{
			ToAddresses: recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: sdkaws.String(digestSubject)},
			Body: &types.Body{
				Text: &types.Content{Data: sdkaws.String(body)},
			},
		},
	}

	if _, err := m.sender.SendEmail(ctx, input); err != nil {
		return errors.NewNotificationSendFailedError("email", err)
	}

	m.logger.Info("sent ack error digest", map[string]interface{}{
		"fileName":   fileName,
		"errorCount": len(rowErrors),
		"recipients": len(recipients),
	})
	return nil
}

// OpsAlerter publishes fatal batch failures to an SNS topic. Alerts are
// best effort and never mask the failure that triggered them.
type OpsAlerter struct {
	publisher AlertPublisher
	topicARN  string
	logger    logger.Logger
}

func NewOpsAlerter(publisher AlertPublisher, topicARN string, log logger.Logger) *OpsAlerter {
	return &OpsAlerter{publisher: publisher, topicARN: topicARN, logger: log}
}

func (a *OpsAlerter) Alert(ctx context.Context, subject, message string) {
	if a == nil || a.publisher == nil || a.topicARN == "" {
		return
	}

	_, err := a.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: sdkaws.String(a.topicARN),
		Subject:  sdkaws.String(subject),
		Message:  sdkaws.String(message),
	})
	if err != nil {
		a.logger.WithError(err).Warn("failed to publish ops alert", nil)
	}
}
