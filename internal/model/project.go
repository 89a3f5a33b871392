package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Project is a portfolio entry, optionally with an image and a demo video.
type Project struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Technologies  []string  `json:"technologies,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	ImagePublicID string    `json:"imagePublicId,omitempty"`
	VideoURL      string    `json:"videoUrl,omitempty"`
	VideoPublicID string    `json:"videoPublicId,omitempty"`
	LiveURL       string    `json:"liveUrl,omitempty"`
	GithubURL     string    `json:"githubUrl,omitempty"`
	Featured      bool      `json:"featured,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DecodeProject builds a Project from a store child entry.
func DecodeProject(id string, raw json.RawMessage) (Project, error) {
	var p Project
	if err := decodeValue(raw, &p); err != nil {
		return Project{}, fmt.Errorf("decode project %s: %w", id, err)
	}
	p.ID = id
	return p, nil
}
