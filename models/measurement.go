package models

import (
	"time"
)

// Measurement is one imported stream record. Sequence ids restart with every monitor run
// and runs may be appended to the same file, so a record is identified by the stream it
// came from, the run inside that stream, its batch and its sensor.
type Measurement struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Source      string    `gorm:"uniqueIndex:idx_source_run_sequence_sensor;not null;size:255" json:"source"`
	Run         int       `gorm:"uniqueIndex:idx_source_run_sequence_sensor;not null;default:1" json:"run"`
	SequenceID  uint64    `gorm:"uniqueIndex:idx_source_run_sequence_sensor;not null" json:"sequence_id"`
	SensorID    int       `gorm:"uniqueIndex:idx_source_run_sequence_sensor;not null;index" json:"sensor_id"`
	TimestampMs int64     `gorm:"not null" json:"timestamp_ms"`
	Value       float64   `gorm:"not null" json:"value"`
	ImportID    string    `gorm:"size:36;index" json:"import_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName customizes the table name
func (Measurement) TableName() string {
	return "measurements"
}

// Sensor is the catalogue entry referenced by Measurement.SensorID
type Sensor struct {
	ID   int    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"not null;size:64" json:"name"`
	Unit string `gorm:"not null;size:16" json:"unit"`
}

func (Sensor) TableName() string {
	return "sensors"
}

// Import records one pass over one stream file
type Import struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Source     string    `gorm:"not null;size:255;index" json:"source"`
	Records    int       `json:"records"`
	Inserted   int64     `json:"inserted"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (Import) TableName() string {
	return "imports"
}

// GetAllModels returns all models for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&Sensor{},
		&Measurement{},
		&Import{},
	}
}
