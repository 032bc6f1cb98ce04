package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"gorm.io/datatypes"
)

var ErrEmptyPatch = errors.New("update contains no fields")

// Assignment is one `column = value` pair of an UPDATE statement. A nil
// Value sets the column to NULL.
type Assignment struct {
	Column string
	Value  interface{}
}

// Placeholder renders the n-th (1-based) bind parameter for a dialect.
type Placeholder func(n int) string

func PostgresPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// SQLitePlaceholder uses numbered `?NNN` parameters so the same argument
// order works on both engines.
func SQLitePlaceholder(n int) string { return fmt.Sprintf("?%d", n) }

// BuildOutfitPatch maps the present fields of req to assignments in a fixed
// column order. Absent fields are skipped; explicit nulls become NULL.
func BuildOutfitPatch(req *model.UpdateCustomOutfitRequest) []Assignment {
	var out []Assignment

	addString := func(column string, v model.Nullable[string]) {
		if !v.Set {
			return
		}
		if !v.Valid {
			out = append(out, Assignment{Column: column})
			return
		}
		out = append(out, Assignment{Column: column, Value: v.Value})
	}

	addString("name", req.Name)
	addString("top_id", req.TopID)
	addString("bottom_id", req.BottomID)
	addString("shoes_id", req.ShoesID)

	if req.AccessoryIDs.Set {
		a := Assignment{Column: "accessory_ids"}
		if req.AccessoryIDs.Valid {
			ids := req.AccessoryIDs.Value
			if ids == nil {
				ids = []string{}
			}
			a.Value = model.StringArray(ids)
		}
		out = append(out, a)
	}

	if req.Metadata.Set {
		a := Assignment{Column: "metadata"}
		if req.Metadata.Valid {
			a.Value = datatypes.JSON(req.Metadata.Value)
		}
		out = append(out, a)
	}

	if req.CanvasData.Set {
		a := Assignment{Column: "canvas_data"}
		if req.CanvasData.Valid {
			a.Value = req.CanvasData.Value
		}
		out = append(out, a)
	}

	addString("notes", req.Notes)

	if req.Rating.Set {
		a := Assignment{Column: "rating"}
		if req.Rating.Valid {
			a.Value = req.Rating.Value
		}
		out = append(out, a)
	}

	addString("thumbnail_url", req.ThumbnailURL)

	return out
}

// UpdateStatement renders the UPDATE for one outfit. Arguments are ordered
// [id, values..., updatedAt] to match the placeholders.
func UpdateStatement(id string, assignments []Assignment, updatedAt time.Time, ph Placeholder) (string, []interface{}, error) {
	if len(assignments) == 0 {
		return "", nil, ErrEmptyPatch
	}

	sets := make([]string, 0, len(assignments)+1)
	args := make([]interface{}, 0, len(assignments)+2)
	args = append(args, id)

	for i, a := range assignments {
		sets = append(sets, fmt.Sprintf("%s = %s", a.Column, ph(i+2)))
		args = append(args, a.Value)
	}
	sets = append(sets, fmt.Sprintf("updated_at = %s", ph(len(assignments)+2)))
	args = append(args, updatedAt)

	query := fmt.Sprintf(
		"UPDATE custom_outfits SET %s WHERE id = %s",
		strings.Join(sets, ", "), ph(1),
	)
	return query, args, nil
}
