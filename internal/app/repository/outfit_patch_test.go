package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestBuildOutfitPatch(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		columns []string
		values  []interface{}
	}{
		{
			name:    "single field",
			body:    `{"notes":"for dinner"}`,
			columns: []string{"notes"},
			values:  []interface{}{"for dinner"},
		},
		{
			name:    "explicit null clears column",
			body:    `{"top_id":null,"rating":4.5}`,
			columns: []string{"top_id", "rating"},
			values:  []interface{}{nil, 4.5},
		},
		{
			name:    "column order is fixed regardless of key order",
			body:    `{"thumbnail_url":"https://cdn/x.png","name":"Brunch","shoes_id":"s1"}`,
			columns: []string{"name", "shoes_id", "thumbnail_url"},
			values:  []interface{}{"Brunch", "s1", "https://cdn/x.png"},
		},
		{
			name:    "accessory ids and metadata",
			body:    `{"accessory_ids":["a1","a2"],"metadata":{"season":"fall"}}`,
			columns: []string{"accessory_ids", "metadata"},
			values: []interface{}{
				model.StringArray{"a1", "a2"},
				datatypes.JSON(`{"season":"fall"}`),
			},
		},
		{
			name:    "empty body",
			body:    `{}`,
			columns: nil,
			values:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req model.UpdateCustomOutfitRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			patch := BuildOutfitPatch(&req)

			var columns []string
			var values []interface{}
			for _, a := range patch {
				columns = append(columns, a.Column)
				values = append(values, a.Value)
			}
			assert.Equal(t, tt.columns, columns)
			assert.Equal(t, tt.values, values)
		})
	}
}

func TestBuildOutfitPatch_CanvasData(t *testing.T) {
	var req model.UpdateCustomOutfitRequest
	body := `{"canvas_data":{"version":2,"placedItems":[{"id":"p1","wardrobeItemId":"w1","x":10,"y":20,"scale":1.5,"zIndex":3}]}}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	patch := BuildOutfitPatch(&req)
	require.Len(t, patch, 1)
	assert.Equal(t, "canvas_data", patch[0].Column)

	canvas, ok := patch[0].Value.(model.CanvasData)
	require.True(t, ok)
	assert.Equal(t, 2, canvas.Version)
	assert.Equal(t, "w1", canvas.PlacedItems[0].WardrobeItemID)
}

func TestUpdateStatement(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	patch := []Assignment{
		{Column: "name", Value: "Office"},
		{Column: "notes", Value: nil},
	}

	query, args, err := UpdateStatement("outfit-1", patch, now, PostgresPlaceholder)
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE custom_outfits SET name = $2, notes = $3, updated_at = $4 WHERE id = $1",
		query,
	)
	assert.Equal(t, []interface{}{"outfit-1", "Office", nil, now}, args)
}

func TestUpdateStatement_SQLitePlaceholders(t *testing.T) {
	now := time.Now()
	query, args, err := UpdateStatement("id", []Assignment{{Column: "rating", Value: 3.0}}, now, SQLitePlaceholder)
	require.NoError(t, err)

	assert.Equal(t, "UPDATE custom_outfits SET rating = ?2, updated_at = ?3 WHERE id = ?1", query)
	assert.Len(t, args, 3)
}

func TestUpdateStatement_EmptyPatch(t *testing.T) {
	_, _, err := UpdateStatement("id", nil, time.Now(), PostgresPlaceholder)
	assert.ErrorIs(t, err, ErrEmptyPatch)
}

// One assignment per present field plus updated_at, with placeholders
// lining up with the argument slice.
func TestUpdateStatement_PlaceholdersMatchArgs(t *testing.T) {
	var req model.UpdateCustomOutfitRequest
	body := `{"name":"a","top_id":"t","bottom_id":null,"shoes_id":"s","accessory_ids":[],"metadata":null,"notes":"n","rating":1,"thumbnail_url":null}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	patch := BuildOutfitPatch(&req)
	require.Len(t, patch, 9)

	query, args, err := UpdateStatement("id", patch, time.Now(), PostgresPlaceholder)
	require.NoError(t, err)
	assert.Len(t, args, len(patch)+2)
	for i := range args {
		assert.Contains(t, query, PostgresPlaceholder(i+1))
	}
	assert.NotContains(t, query, PostgresPlaceholder(len(args)+1))
}
