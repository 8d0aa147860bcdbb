package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// DefaultTemplateName is the SES template used for product change emails.
const DefaultTemplateName = "catalog-notification-template"

const templateSubject = "A fellow admin modified a product"

const templateHTML = `<h1>A fellow admin modified a product</h1>
<p><strong>User:</strong> {{user}}</p>
<p><strong>Change:</strong> {{change}}</p>`

const templateText = "A fellow admin modified a product\nUser: {{user}}\nChange: {{change}}"

// SESAPI is the subset of the SES v2 client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	CreateEmailTemplate(ctx context.Context, in *sesv2.CreateEmailTemplateInput, optFns ...func(*sesv2.Options)) (*sesv2.CreateEmailTemplateOutput, error)
}

// SESConfig configures the SES client.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the SES endpoint, for local emulators.
	Endpoint string
}

// NewSESClient builds an SES v2 client from the default AWS credential chain,
// using static credentials when both keys are set.
func NewSESClient(ctx context.Context, cfg SESConfig) (*sesv2.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// SESSender emails notifications through an SES template.
type SESSender struct {
	client   SESAPI
	from     string
	template string
}

// NewSESSender creates an SESSender.
func NewSESSender(client SESAPI, from, template string) (*SESSender, error) {
	if from == "" {
		return nil, errors.New("ses sender requires a from address")
	}
	if template == "" {
		template = DefaultTemplateName
	}
	return &SESSender{client: client, from: from, template: template}, nil
}

// Send emails msg to its recipient.
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(map[string]string{
		"user":   msg.Actor,
		"change": msg.Change,
	})
	if err != nil {
		return fmt.Errorf("marshal template data: %w", err)
	}

	_, err = s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.Recipient},
		},
		Content: &types.EmailContent{
			Template: &types.Template{
				TemplateName: aws.String(s.template),
				TemplateData: aws.String(string(data)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}

// UploadTemplate creates the notification email template in SES.
func UploadTemplate(ctx context.Context, client SESAPI, name string) error {
	if name == "" {
		name = DefaultTemplateName
	}
	_, err := client.CreateEmailTemplate(ctx, &sesv2.CreateEmailTemplateInput{
		TemplateName: aws.String(name),
		TemplateContent: &types.EmailTemplateContent{
			Subject: aws.String(templateSubject),
			Html:    aws.String(templateHTML),
			Text:    aws.String(templateText),
		},
	})
	if err != nil {
		return fmt.Errorf("create email template %q: %w", name, err)
	}
	return nil
}
