package mailing

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/newsletter/internal/domain"
)

// sesAPI is the slice of the SESv2 client the sender uses; narrowed for
// testability.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESClient sends single emails through AWS SESv2.
type SESClient struct {
	api     sesAPI
	timeout time.Duration
}

// NewSESClient builds an SES sender with static credentials. timeout bounds
// each SendEmail call.
func NewSESClient(ctx context.Context, region, accessKey, secretKey string, timeout time.Duration) (*SESClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SESClient{api: sesv2.NewFromConfig(cfg), timeout: timeout}, nil
}

// Send delivers one message via the SESv2 SendEmail API.
func (c *SESClient) Send(ctx context.Context, msg *domain.EmailMessage) (*domain.SendResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := &sestypes.Body{}
	if msg.HTMLContent != "" {
		body.Html = &sestypes.Content{Data: aws.String(msg.HTMLContent)}
	}
	if msg.TextContent != "" {
		body.Text = &sestypes.Content{Data: aws.String(msg.TextContent)}
	}

	out, err := c.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)),
		Destination: &sestypes.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject)},
				Body:    body,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ses send: %w", err)
	}

	return &domain.SendResult{
		Success:   true,
		MessageID: aws.ToString(out.MessageId),
		SentAt:    time.Now().UTC(),
	}, nil
}
