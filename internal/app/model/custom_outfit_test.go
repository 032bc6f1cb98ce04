package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateCustomOutfitRequest_ValidateThumbnailURL(t *testing.T) {
	tests := []struct {
		name    string
		url     Nullable[string]
		wantErr bool
	}{
		{name: "absent", url: Nullable[string]{}},
		{name: "null", url: Null[string]()},
		{name: "valid", url: Some("https://cdn.example.com/outfit.png")},
		{name: "not a url", url: Some("outfit.png"), wantErr: true},
		{name: "empty", url: Some(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := UpdateCustomOutfitRequest{ThumbnailURL: tt.url}
			fields := req.Validate()
			if tt.wantErr {
				assert.Contains(t, fields, "thumbnail_url")
			} else {
				assert.NotContains(t, fields, "thumbnail_url")
			}
		})
	}
}
