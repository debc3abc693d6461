package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"lingopal/internal/models"
)

// ErrNoRecipient is returned when the signed-in parent has no email address
var ErrNoRecipient = errors.New("no email address on the account")

// Sender is the part of the SES client the service uses
type Sender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     Sender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// ProgressReport is the content of a child's progress email
type ProgressReport struct {
	ParentName string
	Child      models.ChildProfile
	Summary    models.HistorySummary
	Sessions   []models.SessionRecord
}

// NewEmailService creates a new email service
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: debug}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service: region=%s from=%s name=%s", awsRegion, fromEmail, fromName)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return NewEmailServiceWithSender(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, debug), nil
}

// NewEmailServiceWithSender builds an enabled service over an existing sender
func NewEmailServiceWithSender(client Sender, fromEmail, fromName, appBaseURL string, debug bool) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		enabled:    client != nil && fromEmail != "",
		debug:      debug,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s != nil && s.enabled
}

var progressHTML = template.Must(template.New("progress").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1 style="background-color: #4a90e2; color: white; padding: 20px; text-align: center;">{{.Child.Avatar}} {{.Child.Name}}'s progress</h1>
		<p>Hi {{.ParentName}},</p>
		<p>{{.Child.Name}} is on level {{.Child.Level}} with {{.Child.TotalScore}} points in total.</p>
		<p>Sessions: {{.Summary.Count}} &middot; Average score: {{printf "%.0f" .Summary.MeanScore}} &middot; Completed: {{.Summary.Completed}}</p>
		<table style="width: 100%; border-collapse: collapse;">
			<tr><th align="left">Date</th><th align="left">Score</th><th align="left">Level</th><th align="left">Minutes</th></tr>
			{{range .Sessions}}<tr><td>{{.Date}}</td><td>{{.Score}}</td><td>{{.Level}}</td><td>{{.DurationMinutes}}</td></tr>
			{{end}}
		</table>
		<p style="text-align: center; font-size: 12px; color: #666;">This is an automated email from LingoPal. Please do not reply.</p>
	</div>
</body>
</html>
`))

// SendProgressReport mails a child's session summary to the parent
func (s *EmailService) SendProgressReport(ctx context.Context, toEmail string, report ProgressReport) error {
	if s.debug {
		log.Printf("[DEBUG] SendProgressReport called: to=%s, child=%s", toEmail, report.Child.ID)
	}
	if !s.IsEnabled() {
		log.Printf("Skipping email send (service disabled): progress report to %s", toEmail)
		return nil
	}
	if toEmail == "" {
		return ErrNoRecipient
	}

	var html bytes.Buffer
	if err := progressHTML.Execute(&html, report); err != nil {
		return fmt.Errorf("failed to render progress report: %w", err)
	}

	subject := fmt.Sprintf("%s's LingoPal progress", report.Child.Name)
	return s.sendEmail(ctx, toEmail, subject, html.String(), progressText(report, s.appBaseURL))
}

func progressText(report ProgressReport, baseURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", report.ParentName)
	fmt.Fprintf(&b, "%s is on level %d with %d points in total.\n", report.Child.Name, report.Child.Level, report.Child.TotalScore)
	fmt.Fprintf(&b, "Sessions: %d, average score: %.0f, completed: %d\n\n",
		report.Summary.Count, report.Summary.MeanScore, report.Summary.Completed)
	for _, session := range report.Sessions {
		fmt.Fprintf(&b, "- %s: score %d, level %d, %d min\n", session.Date, session.Score, session.Level, session.DurationMinutes())
	}
	if baseURL != "" {
		fmt.Fprintf(&b, "\nSee more: %s/history\n", baseURL)
	}
	b.WriteString("\n---\nThis is an automated email from LingoPal. Please do not reply.\n")
	return b.String()
}

// SendWelcomeEmail greets a newly registered parent
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.IsEnabled() {
		log.Printf("Skipping email send (service disabled): welcome to %s", toEmail)
		return nil
	}
	if toEmail == "" {
		return ErrNoRecipient
	}

	subject := "Welcome to LingoPal!"
	html := fmt.Sprintf(`<p>Hi %s,</p><p>Your LingoPal account is ready. Add a child profile to get started: <a href="%s/profile">%s/profile</a></p>`,
		template.HTMLEscapeString(toName), s.appBaseURL, s.appBaseURL)
	text := fmt.Sprintf("Hi %s,\n\nYour LingoPal account is ready. Add a child profile to get started: %s/profile\n", toName, s.appBaseURL)
	return s.sendEmail(ctx, toEmail, subject, html, text)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		log.Printf("[DEBUG] Sending email: from=%s to=%s subject=%s html=%dB text=%dB",
			fromAddress, toEmail, subject, len(htmlBody), len(textBody))
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	log.Printf("Email sent to %s (message id %s)", toEmail, aws.ToString(result.MessageId))
	return nil
}
