package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Certificate is a credential shown on the portfolio.
type Certificate struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Issuer        string    `json:"issuer,omitempty"`
	IssueDate     string    `json:"issueDate,omitempty"`
	Description   string    `json:"description,omitempty"`
	CredentialURL string    `json:"credentialUrl,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	ImagePublicID string    `json:"imagePublicId,omitempty"`
	Skills        []string  `json:"skills,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DecodeCertificate builds a Certificate from a store child entry.
func DecodeCertificate(id string, raw json.RawMessage) (Certificate, error) {
	var c Certificate
	if err := decodeValue(raw, &c); err != nil {
		return Certificate{}, fmt.Errorf("decode certificate %s: %w", id, err)
	}
	c.ID = id
	return c, nil
}
