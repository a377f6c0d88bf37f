package storage

import (
	"time"

	"github.com/jdziat/simple-uow/pkg/core"
)

// FileAttribute is one key of a file's attribute set. Values are stored as
// JSON so any patch value round-trips.
type FileAttribute struct {
	FileID    string    `gorm:"primaryKey;size:255"`
	Key       string    `gorm:"primaryKey;size:255"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (FileAttribute) TableName() string {
	return "file_attributes"
}

// ArtifactRecord is a stored artifact declaration.
type ArtifactRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	FileID    string    `gorm:"index;size:255;not null"`
	Kind      string    `gorm:"size:100;not null"`
	MIME      string    `gorm:"column:mime;size:255"`
	Bytes     int64     `gorm:"default:0"`
	Location  string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName returns the table name for GORM.
func (ArtifactRecord) TableName() string {
	return "artifacts"
}

// Artifact converts the record back to the wire type.
func (r ArtifactRecord) Artifact() core.Artifact {
	return core.Artifact{
		Kind:     r.Kind,
		MIME:     r.MIME,
		Bytes:    r.Bytes,
		Location: r.Location,
	}
}
