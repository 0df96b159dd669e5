package datasource

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Recipient is one email target loaded from the customer list.
type Recipient struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Region      string `json:"region,omitempty"`
	Preferences string `json:"preferences,omitempty"`
}

// RecipientSource loads the recipients for the send stage.
type RecipientSource interface {
	Load(ctx context.Context) ([]Recipient, error)
}

// CSVRecipientSource reads recipients from a local CSV file. Column names are
// matched loosely since customer exports vary; rows without an email address
// are dropped.
type CSVRecipientSource struct {
	Path string
}

func NewCSVRecipientSource(path string) *CSVRecipientSource {
	return &CSVRecipientSource{Path: path}
}

func (s *CSVRecipientSource) Load(ctx context.Context) ([]Recipient, error) {
	result, err := ReadCSVFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipients file: %w", err)
	}
	return RecipientsFromCSV(result), nil
}

func columnIndex(headers []string, candidates ...string) int {
	for _, want := range candidates {
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// RecipientsFromCSV extracts recipients from a parsed CSV, tolerating the
// common header variants for name and email columns.
func RecipientsFromCSV(result *CSVResult) []Recipient {
	idIdx := columnIndex(result.Headers, "id", "customer_id")
	nameIdx := columnIndex(result.Headers, "name", "customer_name", "full_name")
	firstIdx := columnIndex(result.Headers, "first_name")
	lastIdx := columnIndex(result.Headers, "last_name")
	emailIdx := columnIndex(result.Headers, "email", "email_address", "customer_email")
	regionIdx := columnIndex(result.Headers, "region", "location", "country")
	prefIdx := columnIndex(result.Headers, "preferences", "interests", "preferred_category")

	var recipients []Recipient
	for _, row := range result.Rows {
		email := cell(row, emailIdx)
		if email == "" {
			continue
		}

		name := cell(row, nameIdx)
		if name == "" {
			name = strings.TrimSpace(cell(row, firstIdx) + " " + cell(row, lastIdx))
		}
		if name == "" {
			name = "Customer"
		}

		id := cell(row, idIdx)
		if id == "" {
			id = uuid.New().String()
		}

		recipients = append(recipients, Recipient{
			ID:          id,
			Name:        name,
			Email:       email,
			Region:      cell(row, regionIdx),
			Preferences: cell(row, prefIdx),
		})
	}
	return recipients
}
