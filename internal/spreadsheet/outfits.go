// Package spreadsheet converts custom outfits to and from XLSX workbooks.
package spreadsheet

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

const SheetName = "Outfits"

// Headers is the column layout shared by export and import.
var Headers = []string{
	"id", "user_id", "name", "top_id", "bottom_id", "shoes_id",
	"accessory_ids", "metadata", "canvas_data", "notes", "rating",
	"thumbnail_url", "created_at", "updated_at",
}

// RowError describes a row skipped during import. Row is 1-based as shown
// in spreadsheet applications.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// WriteOutfits writes a workbook with one row per outfit.
func WriteOutfits(w io.Writer, outfits []model.CustomOutfit) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	for i, o := range outfits {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := outfitRow(&o)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

func outfitRow(o *model.CustomOutfit) []interface{} {
	var canvas string
	if o.CanvasData != nil {
		if b, err := json.Marshal(o.CanvasData); err == nil {
			canvas = string(b)
		}
	}
	var rating interface{} = ""
	if o.Rating != nil {
		rating = *o.Rating
	}
	metadata := string(o.Metadata)
	if metadata == "null" {
		metadata = ""
	}
	var accessories string
	if len(o.AccessoryIDs) > 0 {
		if b, err := json.Marshal([]string(o.AccessoryIDs)); err == nil {
			accessories = string(b)
		}
	}

	return []interface{}{
		o.ID,
		o.UserID,
		deref(o.Name),
		deref(o.TopID),
		deref(o.BottomID),
		deref(o.ShoesID),
		accessories,
		metadata,
		canvas,
		deref(o.Notes),
		rating,
		deref(o.ThumbnailURL),
		o.CreatedAt.UTC().Format(time.RFC3339),
		o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ReadOutfits parses the first sheet of a workbook. Columns are located by
// header name so extra or reordered columns are tolerated. id and timestamp
// columns are ignored; imported rows get new ids.
func ReadOutfits(r io.Reader) ([]model.CustomOutfit, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := index["user_id"]; !ok {
		return nil, nil, fmt.Errorf("missing user_id column")
	}

	var outfits []model.CustomOutfit
	var skipped []RowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		get := func(col string) string {
			idx, ok := index[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if isBlank(row) {
			continue
		}
		outfit, reason := parseRow(get)
		if reason != "" {
			skipped = append(skipped, RowError{Row: rowNum, Reason: reason})
			continue
		}
		outfits = append(outfits, *outfit)
	}
	return outfits, skipped, nil
}

func parseRow(get func(string) string) (*model.CustomOutfit, string) {
	o := &model.CustomOutfit{UserID: get("user_id")}
	if o.UserID == "" {
		return nil, "user_id is empty"
	}
	o.Name = optional(get("name"))
	o.TopID = optional(get("top_id"))
	o.BottomID = optional(get("bottom_id"))
	o.ShoesID = optional(get("shoes_id"))
	o.Notes = optional(get("notes"))
	o.ThumbnailURL = optional(get("thumbnail_url"))

	// Exports write a JSON array. Hand-edited sheets may use a comma list.
	if v := get("accessory_ids"); v != "" {
		ids := strings.Split(v, ",")
		if strings.HasPrefix(v, "[") {
			ids = nil
			if err := json.Unmarshal([]byte(v), &ids); err != nil {
				return nil, "accessory_ids is not a JSON array of strings"
			}
		}
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				o.AccessoryIDs = append(o.AccessoryIDs, id)
			}
		}
	}

	if v := get("metadata"); v != "" {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(v), &obj); err != nil || obj == nil {
			return nil, "metadata is not a JSON object"
		}
		o.Metadata = datatypes.JSON(v)
	}

	if v := get("canvas_data"); v != "" {
		var canvas model.CanvasData
		if err := json.Unmarshal([]byte(v), &canvas); err != nil {
			return nil, "canvas_data is not valid JSON"
		}
		o.CanvasData = &canvas
	}

	if v := get("rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Sprintf("rating %q is not a number", v)
		}
		o.Rating = &rating
	}
	return o, ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
