package models

import (
	"strings"
	"time"
)

// Company is the hiring organization attached to a job posting.
type Company struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"domain,omitempty"`
	LogoURL  string `json:"logo_url,omitempty"`
	Website  string `json:"website,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Job is a live job posting as read from the job store. Mutable: a snapshot
// must be taken before an application references its data.
type Job struct {
	ID          string   `json:"id"`
	CompanyID   string   `json:"company_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ApplyURL    string   `json:"apply_url"`
	Location    string   `json:"location,omitempty"`
	RemoteType  string   `json:"remote_type,omitempty"`
	SalaryMin   *int     `json:"salary_min,omitempty"`
	SalaryMax   *int     `json:"salary_max,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	JobType     string   `json:"job_type,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source,omitempty"`
	IsActive    bool     `json:"is_active"`

	SchemaID string `json:"schema_id,omitempty"`

	PostedAt  time.Time `json:"posted_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobSnapshot is the immutable point-in-time copy of job and company data bound
// to one application. Written exactly once at enqueue time, never updated.
type JobSnapshot struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	JobID         string `json:"job_id"`

	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ApplyURL    string   `json:"apply_url"`
	JobBoard    string   `json:"job_board"`
	Location    string   `json:"location,omitempty"`
	RemoteType  string   `json:"remote_type,omitempty"`
	SalaryMin   *int     `json:"salary_min,omitempty"`
	SalaryMax   *int     `json:"salary_max,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	JobType     string   `json:"job_type,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source,omitempty"`

	CompanyID      string `json:"company_id"`
	CompanyName    string `json:"company_name"`
	CompanyDomain  string `json:"company_domain,omitempty"`
	CompanyLogoURL string `json:"company_logo_url,omitempty"`
	CompanyWebsite string `json:"company_website,omitempty"`

	SchemaID string `json:"schema_id,omitempty"`

	CapturedAt time.Time `json:"captured_at"`
}

// Profile attribute keys targeted by classifier profile mappings. The
// automation worker resolves them against the profile store.
const (
	ProfileFirstName          = "firstName"
	ProfileLastName           = "lastName"
	ProfileEmail              = "email"
	ProfilePhone              = "phone"
	ProfileResumeURL          = "resumeUrl"
	ProfileLinkedInURL        = "linkedinUrl"
	ProfilePortfolioURL       = "portfolioUrl"
	ProfileWebsiteURL         = "websiteUrl"
	ProfileYearsExperience    = "yearsExperience"
	ProfileWorkAuthorization  = "workAuthorization"
	ProfileRequireSponsorship = "requireSponsorship"
	ProfileWillingToRelocate  = "willingToRelocate"
)

// UserProfile holds the attributes the automation engine substitutes into
// deterministic fields.
type UserProfile struct {
	UserID             string   `json:"user_id"`
	FirstName          string   `json:"first_name"`
	LastName           string   `json:"last_name"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	ResumeURL          string   `json:"resume_url,omitempty"`
	CoverLetter        string   `json:"cover_letter,omitempty"`
	CurrentTitle       string   `json:"current_title,omitempty"`
	YearsExperience    *int     `json:"years_experience,omitempty"`
	Skills             []string `json:"skills,omitempty"`
	LinkedInURL        string   `json:"linkedin_url,omitempty"`
	PortfolioURL       string   `json:"portfolio_url,omitempty"`
	WebsiteURL         string   `json:"website_url,omitempty"`
	Location           string   `json:"location,omitempty"`
	WillingToRelocate  bool     `json:"willing_to_relocate"`
	WorkAuthorization  string   `json:"work_authorization,omitempty"`
	RequireSponsorship *bool    `json:"require_sponsorship,omitempty"`

	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// JobBoardFromURL infers the hosting job board from an apply URL so the
// dispatcher can route to the matching automation.
func JobBoardFromURL(applyURL string) string {
	u := strings.ToLower(applyURL)
	switch {
	case strings.Contains(u, "greenhouse.io"):
		return "greenhouse"
	case strings.Contains(u, "lever.co"):
		return "lever"
	case strings.Contains(u, "myworkday.com"), strings.Contains(u, "workday.com"):
		return "workday"
	case strings.Contains(u, "linkedin.com"):
		return "linkedin"
	case strings.Contains(u, "indeed.com"):
		return "indeed"
	case strings.Contains(u, "jobvite.com"):
		return "jobvite"
	default:
		return "generic"
	}
}
