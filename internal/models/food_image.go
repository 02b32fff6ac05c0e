package models

import (
	"path/filepath"
	"time"
)

// FoodImage links an uploaded food photo to its owner. FileID is the
// only handle ever exposed to clients; the storage filename is derived
// from it and stays internal.
type FoodImage struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OriginalFileName string    `gorm:"size:255;not null" json:"originalFileName"`
	FileID           string    `gorm:"uniqueIndex;size:64;not null" json:"fileId"`
	UserID           uint      `gorm:"index;not null" json:"userId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// TableName specifies the table name for FoodImage model
func (FoodImage) TableName() string {
	return "food_images"
}

// StorageName returns the blob store filename: the file id plus the
// original upload's extension.
func (f *FoodImage) StorageName() string {
	return f.FileID + filepath.Ext(f.OriginalFileName)
}

// Endpoint returns the public URL path for fetching the image.
func (f *FoodImage) Endpoint() string {
	return "/image/" + f.FileID
}
