package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// CustomOutfit is a user-assembled outfit from wardrobe items.
type CustomOutfit struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	UserID       string         `gorm:"size:128;not null;index" json:"user_id"`
	Name         *string        `json:"name"`
	TopID        *string        `json:"top_id"`
	BottomID     *string        `json:"bottom_id"`
	ShoesID      *string        `json:"shoes_id"`
	AccessoryIDs StringArray    `json:"accessory_ids"`
	Metadata     datatypes.JSON `json:"metadata"`                                      // free-form JSON object
	CanvasData   *CanvasData    `gorm:"serializer:json;type:jsonb" json:"canvas_data"` // outfit-builder layout
	Notes        *string        `json:"notes"`
	Rating       *float64       `json:"rating"`
	ThumbnailURL *string        `json:"thumbnail_url"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (CustomOutfit) TableName() string {
	return "custom_outfits"
}

// BeforeCreate assigns the primary key when the caller did not.
func (o *CustomOutfit) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// CanvasData describes where garment images sit on the outfit-builder canvas.
type CanvasData struct {
	Version     int          `json:"version" binding:"min=1"`
	PlacedItems []PlacedItem `json:"placedItems" binding:"dive"`
}

type PlacedItem struct {
	ID             string  `json:"id" binding:"required"`
	WardrobeItemID string  `json:"wardrobeItemId" binding:"required"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Scale          float64 `json:"scale" binding:"gt=0"`
	ZIndex         int     `json:"zIndex"`
}

// Value lets CanvasData be bound directly as a statement argument.
func (c CanvasData) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// StringArray is a text[] column on postgres and a text column holding the
// same array literal elsewhere.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	return pq.StringArray(a).Value()
}

func (a *StringArray) Scan(src interface{}) error {
	return (*pq.StringArray)(a).Scan(src)
}

func (StringArray) GormDataType() string {
	return "text[]"
}

func (StringArray) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// CreateCustomOutfitRequest is the body of POST /custom-outfits.
type CreateCustomOutfitRequest struct {
	UserID       string          `json:"user_id" binding:"required,max=128"`
	Name         *string         `json:"name" binding:"omitempty,max=200"`
	TopID        *string         `json:"top_id"`
	BottomID     *string         `json:"bottom_id"`
	ShoesID      *string         `json:"shoes_id"`
	AccessoryIDs []string        `json:"accessory_ids"`
	Metadata     json.RawMessage `json:"metadata"`
	CanvasData   *CanvasData     `json:"canvas_data"`
	Notes        *string         `json:"notes"`
	Rating       *float64        `json:"rating"`
	ThumbnailURL *string         `json:"thumbnail_url" binding:"omitempty,url"`
}

// Validate covers the rules binding tags cannot express. It returns
// field -> message, empty when the request is valid.
func (r *CreateCustomOutfitRequest) Validate() map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(r.UserID) == "" {
		fields["user_id"] = "user_id is required"
	}
	validateAccessoryIDs(r.AccessoryIDs, fields)
	if !isNullJSON(r.Metadata) {
		validateMetadata(r.Metadata, fields)
	}
	return fields
}

// ToModel converts the request into a row ready for insert.
func (r *CreateCustomOutfitRequest) ToModel() *CustomOutfit {
	outfit := &CustomOutfit{
		UserID:       strings.TrimSpace(r.UserID),
		Name:         r.Name,
		TopID:        r.TopID,
		BottomID:     r.BottomID,
		ShoesID:      r.ShoesID,
		CanvasData:   r.CanvasData,
		Notes:        r.Notes,
		Rating:       r.Rating,
		ThumbnailURL: r.ThumbnailURL,
	}
	if r.AccessoryIDs != nil {
		outfit.AccessoryIDs = StringArray(r.AccessoryIDs)
	}
	if !isNullJSON(r.Metadata) {
		outfit.Metadata = datatypes.JSON(r.Metadata)
	}
	return outfit
}

// UpdateCustomOutfitRequest is the body of PUT /custom-outfits/:id. Absent
// keys are left untouched and explicit nulls clear the column.
type UpdateCustomOutfitRequest struct {
	Name         Nullable[string]          `json:"name" binding:"-"`
	TopID        Nullable[string]          `json:"top_id" binding:"-"`
	BottomID     Nullable[string]          `json:"bottom_id" binding:"-"`
	ShoesID      Nullable[string]          `json:"shoes_id" binding:"-"`
	AccessoryIDs Nullable[[]string]        `json:"accessory_ids" binding:"-"`
	Metadata     Nullable[json.RawMessage] `json:"metadata" binding:"-"`
	CanvasData   Nullable[CanvasData]      `json:"canvas_data" binding:"-"`
	Notes        Nullable[string]          `json:"notes" binding:"-"`
	Rating       Nullable[float64]         `json:"rating" binding:"-"`
	ThumbnailURL Nullable[string]          `json:"thumbnail_url" binding:"-"`
}

// Validate checks the present fields. CanvasData item rules are enforced by
// the caller's struct validator.
func (r *UpdateCustomOutfitRequest) Validate() map[string]string {
	fields := map[string]string{}
	if r.Name.Valid && len(r.Name.Value) > 200 {
		fields["name"] = "name must be at most 200 characters"
	}
	if r.AccessoryIDs.Valid {
		validateAccessoryIDs(r.AccessoryIDs.Value, fields)
	}
	if r.Metadata.Valid {
		validateMetadata(r.Metadata.Value, fields)
	}
	if r.ThumbnailURL.Valid && fieldValidator.Var(r.ThumbnailURL.Value, "url") != nil {
		fields["thumbnail_url"] = "thumbnail_url must be a valid URL"
	}
	return fields
}

var fieldValidator = validator.New()

func validateAccessoryIDs(ids []string, fields map[string]string) {
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			fields["accessory_ids"] = fmt.Sprintf("accessory_ids[%d] must not be blank", i)
			return
		}
	}
}

func validateMetadata(raw json.RawMessage, fields map[string]string) {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		fields["metadata"] = "metadata must be a JSON object"
	}
}

func isNullJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
