package api

import "github.com/starford/othala/internal/vault"

// WriteRecordRequest is the request body for writing a record.
type WriteRecordRequest struct {
	Category     string   `json:"category"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Priority     string   `json:"priority,omitempty"`
	Quadrant     string   `json:"quadrant,omitempty"`
	Deadline     string   `json:"deadline,omitempty"`
	Role         string   `json:"role,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Location     string   `json:"location,omitempty"`
	Timezone     string   `json:"timezone,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	RelatedTo    []string `json:"related_to,omitempty"`
	DerivedFrom  []string `json:"derived_from,omitempty"`
	SourceEmails []string `json:"source_emails,omitempty"`
}

func (r WriteRecordRequest) fields() vault.Fields {
	return vault.Fields{
		Priority:     r.Priority,
		Quadrant:     r.Quadrant,
		Deadline:     r.Deadline,
		Role:         r.Role,
		Organization: r.Organization,
		Email:        r.Email,
		Phone:        r.Phone,
		Location:     r.Location,
		Timezone:     r.Timezone,
		Tags:         r.Tags,
		RelatedTo:    r.RelatedTo,
		DerivedFrom:  r.DerivedFrom,
		SourceEmails: r.SourceEmails,
	}
}

// RecordDetail is the full record response type (aliased from the domain layer).
type RecordDetail = vault.Detail

// RecordSummary is a lightweight item in a list response (aliased from the domain layer).
type RecordSummary = vault.Summary
