package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-sync/internal/common/logger"
)

type fakeEmailSender struct {
	inputs  []*ses.SendEmailInput
	sendErr error
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, input)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &ses.SendEmailOutput{}, nil
}

type fakeAlertPublisher struct {
	inputs []*sns.PublishInput
}

func (f *fakeAlertPublisher) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, nil
}

func TestSendErrorDigest(t *testing.T) {
	sender := &fakeEmailSender{}
	mailer := NewDigestMailer(sender, "sync@example.com", []string{"ops@example.com"}, logger.NewNoOpLogger())

	err := mailer.SendErrorDigest(context.Background(), "xyz_ack.csv", []string{
		"Product PROD-9 confirmed, but it was never sent.",
		"Product PROD-10 confirmed, but it was never sent.",
	}, nil)
	require.NoError(t, err)
	require.Len(t, sender.inputs, 1)

	input := sender.inputs[0]
	assert.Equal(t, "[Partner Sync] Ack File Processing Error", *input.Message.Subject.Data)
	assert.Equal(t, "sync@example.com", *input.Source)
	assert.Equal(t, []string{"ops@example.com"}, input.Destination.ToAddresses)
	assert.Contains(t, *input.Message.Body.Text.Data, "xyz_ack.csv")
	assert.Contains(t, *input.Message.Body.Text.Data, "Product PROD-9 confirmed, but it was never sent.")
	assert.Contains(t, *input.Message.Body.Text.Data, "Product PROD-10 confirmed, but it was never sent.")
}

func TestSendErrorDigestNoErrorsIsNoOp(t *testing.T) {
	sender := &fakeEmailSender{}
	mailer := NewDigestMailer(sender, "sync@example.com", []string{"ops@example.com"}, logger.NewNoOpLogger())

	err := mailer.SendErrorDigest(context.Background(), "xyz_ack.csv", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, sender.inputs)
}

func TestSendErrorDigestPartnerRecipientsOverrideDefaults(t *testing.T) {
	sender := &fakeEmailSender{}
	mailer := NewDigestMailer(sender, "sync@example.com", []string{"ops@example.com"}, logger.NewNoOpLogger())

	err := mailer.SendErrorDigest(context.Background(), "xyz_ack.csv",
		[]string{"row 2 invalid"}, []string{"xyz-ops@example.com"})
	require.NoError(t, err)
	require.Len(t, sender.inputs, 1)
	assert.Equal(t, []string{"xyz-ops@example.com"}, sender.inputs[0].Destination.ToAddresses)
}

func TestSendErrorDigestNoRecipients(t *testing.T) {
	sender := &fakeEmailSender{}
	mailer := NewDigestMailer(sender, "sync@example.com", nil, logger.NewNoOpLogger())

	err := mailer.SendErrorDigest(context.Background(), "xyz_ack.csv", []string{"row 2 invalid"}, nil)
	require.NoError(t, err)
	assert.Empty(t, sender.inputs)
}

func TestSendErrorDigestSendFailure(t *testing.T) {
	sender := &fakeEmailSender{sendErr: errors.New("ses throttled")}
	mailer := NewDigestMailer(sender, "sync@example.com", []string{"ops@example.com"}, logger.NewNoOpLogger())

	err := mailer.SendErrorDigest(context.Background(), "xyz_ack.csv", []string{"row 2 invalid"}, nil)
	assert.Error(t, err)
}

func TestOpsAlerterPublishes(t *testing.T) {
	publisher := &fakeAlertPublisher{}
	alerter := NewOpsAlerter(publisher, "arn:aws:sns:us-east-1:123:sync-alerts", logger.NewNoOpLogger())

	alerter.Alert(context.Background(), "Batch failed", "outbound generation failed for XYZ")

	require.Len(t, publisher.inputs, 1)
	assert.Equal(t, "Batch failed", *publisher.inputs[0].Subject)
}

func TestOpsAlerterWithoutTopicIsNoOp(t *testing.T) {
	publisher := &fakeAlertPublisher{}
	alerter := NewOpsAlerter(publisher, "", logger.NewNoOpLogger())

	alerter.Alert(context.Background(), "Batch failed", "detail")
	assert.Empty(t, publisher.inputs)
}
