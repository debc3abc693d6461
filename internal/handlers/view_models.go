package handlers

import (
	"errors"
	"fmt"

	"lingopal/internal/languages"
	"lingopal/internal/models"
	"lingopal/internal/realtime"
	"lingopal/internal/validation"
)

// Notice kinds
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// Notice is a titled message shown above the page content
type Notice struct {
	Kind    string
	Title   string
	Message string
}

func errorNotice(title, message string) *Notice {
	return &Notice{Kind: NoticeError, Title: title, Message: message}
}

// validationNotice turns a validation failure into a notice
func validationNotice(err error) *Notice {
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		return errorNotice(verr.Title, verr.Message)
	}
	return errorNotice("Error", err.Error())
}

func welcomeNotice(child *models.ChildProfile) *Notice {
	return &Notice{
		Kind:    NoticeSuccess,
		Title:   fmt.Sprintf("Welcome, %s! 👋", child.Name),
		Message: fmt.Sprintf("Ready for Level %d?", child.Level),
	}
}

var (
	noticeLoginFailed    = errorNotice("Login Failed", "Please check your credentials and try again")
	noticeRegisterFailed = errorNotice("Registration Failed", "Please try again with a different username or email")
	noticeChildrenFailed = errorNotice("Error", "Failed to load children profiles")
	noticeSelectFirst    = errorNotice("Select a Child First", "Please choose which child wants to talk to the agent")
	noticeChildMissing   = errorNotice("Profile Not Found", "That profile is no longer available")
	noticeSaveFailed     = errorNotice("Error", "Failed to save profile. Please try again.")
	noticeHistoryFailed  = errorNotice("Error", "Failed to load session history")
	noticeReportFailed   = errorNotice("Error", "Failed to send the progress report. Please try again.")
	noticeNoEmail        = errorNotice("No Email Address", "Add an email address to your account to receive reports")
)

// Flash codes carried across a redirect
const (
	flashWelcome        = "welcome"
	flashSelectFirst    = "select_first"
	flashProfileUpdated = "profile_updated"
	flashProfileCreated = "profile_created"
	flashReportSent     = "report_sent"
	flashNoEmail        = "no_email"
	flashReportFailed   = "report_failed"
)

// flashNotice resolves a flash code. The welcome notice names the child
// selected at render time.
func flashNotice(code string, selected *models.ChildProfile) *Notice {
	switch code {
	case flashWelcome:
		if selected != nil {
			return welcomeNotice(selected)
		}
	case flashSelectFirst:
		return noticeSelectFirst
	case flashProfileUpdated:
		return &Notice{Kind: NoticeSuccess, Title: "Profile Updated! ✨", Message: "Your changes have been saved"}
	case flashProfileCreated:
		return &Notice{Kind: NoticeSuccess, Title: "Welcome! 🎉", Message: "The new profile is ready to play"}
	case flashReportSent:
		return &Notice{Kind: NoticeSuccess, Title: "Report Sent! 📬", Message: "Check your inbox for the progress report"}
	case flashNoEmail:
		return noticeNoEmail
	case flashReportFailed:
		return noticeReportFailed
	}
	return nil
}

// PageData is shared by every page template
type PageData struct {
	Title           string
	Authenticated   bool
	CSRFToken       string
	FallbackEnabled bool
	Notice          *Notice
}

type LoginViewData struct {
	PageData
	Username string
}

type RegisterViewData struct {
	PageData
	Username string
	Email    string
}

type DashboardViewData struct {
	PageData
	User       *models.Identity
	Children   []models.ChildProfile
	SelectedID string
	Selected   bool
}

// ProfileForm holds the editable fields as the form shows them
type ProfileForm struct {
	Name     string
	Age      string
	Language string // option value
	Avatar   string
}

type ProfileViewData struct {
	PageData
	EditMode  bool
	Form      ProfileForm
	Level     int
	Languages []languages.Option
	Avatars   []string
}

type HistoryViewData struct {
	PageData
	Child    *models.ChildProfile
	Sessions []models.SessionRecord
	Summary  models.HistorySummary
	CanEmail bool
}

type AgentViewData struct {
	PageData
	Child *models.ChildProfile
	Room  realtime.Snapshot
}
