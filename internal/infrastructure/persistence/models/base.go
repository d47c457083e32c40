package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel holds the identity and audit columns shared by aggregate tables
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// AggregateModel adds the optimistic locking column. Repositories own the
// value; it never round-trips through the domain aggregate.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func aggregateColumns(id uuid.UUID, createdAt, updatedAt time.Time) AggregateModel {
	return AggregateModel{BaseModel: BaseModel{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt}}
}
