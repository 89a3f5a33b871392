package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_Merge(t *testing.T) {
	base := Fields{"title": "A", "desc": "x", "tags": []any{"go"}}

	got := base.Merge(Fields{"title": "B", "tags": nil})

	assert.Equal(t, Fields{"title": "B", "desc": "x"}, got)
	assert.Equal(t, "A", base["title"], "merge must not mutate the receiver")
}

func TestFieldsOf(t *testing.T) {
	p := Project{
		ID:           "ignored",
		Title:        "Site",
		Technologies: []string{"go", "postgres"},
		CreatedAt:    time.Now(),
	}

	f, err := FieldsOf(p)
	require.NoError(t, err)

	assert.Equal(t, "Site", f["title"])
	assert.Equal(t, []any{"go", "postgres"}, f["technologies"])
	assert.NotContains(t, f, FieldID)
	assert.NotContains(t, f, FieldCreatedAt)
	assert.NotContains(t, f, "videoUrl", "empty optional fields are omitted")
}

func TestFieldsOf_RejectsNonObjects(t *testing.T) {
	_, err := FieldsOf("just a string")
	assert.Error(t, err)

	_, err = FieldsOf(nil)
	assert.Error(t, err)
}

func TestDecodeCertificate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Certificate
		wantErr bool
	}{
		{
			name: "valid",
			raw:  `{"title":"CKA","issuer":"CNCF","createdAt":"2024-01-02T03:04:05Z","extra":1}`,
			want: Certificate{
				ID:        "c1",
				Title:     "CKA",
				Issuer:    "CNCF",
				CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			},
		},
		{
			name: "key wins over embedded id",
			raw:  `{"id":"other","title":"T"}`,
			want: Certificate{ID: "c1", Title: "T"},
		},
		{name: "wrong field type", raw: `{"title":42}`, wantErr: true},
		{name: "not an object", raw: `"hello"`, wantErr: true},
		{name: "null", raw: `null`, wantErr: true},
		{name: "broken json", raw: `{"title":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCertificate("c1", json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "c1")
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.CreatedAt.Equal(got.CreatedAt))
			got.CreatedAt = tt.want.CreatedAt
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeProject(t *testing.T) {
	p, err := DecodeProject("p1", json.RawMessage(`{"title":"Site","technologies":["go"],"featured":true}`))
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, []string{"go"}, p.Technologies)
	assert.True(t, p.Featured)

	_, err = DecodeProject("p2", json.RawMessage(`{"featured":"yes"}`))
	assert.Error(t, err)
}
