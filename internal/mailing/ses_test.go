package mailing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSESAPI struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSESAPI) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-456")}, nil
}

func TestSESSend(t *testing.T) {
	api := &fakeSESAPI{}
	client := &SESClient{api: api, timeout: time.Second}

	res, err := client.Send(context.Background(), testMessage())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "ses-456", res.MessageID)

	require.NotNil(t, api.input)
	assert.Equal(t, "IGNITE <newsletter@ignite.com>", aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"ursula_le_guin@gmail.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Welcome!", aws.ToString(api.input.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>confirm</p>", aws.ToString(api.input.Content.Simple.Body.Html.Data))
}

func TestSESSendFailure(t *testing.T) {
	api := &fakeSESAPI{err: errors.New("throttled")}
	client := &SESClient{api: api, timeout: time.Second}

	_, err := client.Send(context.Background(), testMessage())
	assert.Error(t, err)
}
