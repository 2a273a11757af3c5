// Package events defines product change events and their sources.
package events

import (
	"context"
	"time"
)

// Type is the kind of catalog change an event describes.
type Type string

const (
	TypeAdd    Type = "agregar"
	TypeUpdate Type = "actualizar"
	TypeDelete Type = "eliminar"
)

// Valid reports whether the type is one the dispatcher understands.
func (t Type) Valid() bool {
	switch t {
	case TypeAdd, TypeUpdate, TypeDelete:
		return true
	}
	return false
}

// ProductEvent is a single catalog change notification.
type ProductEvent struct {
	EventType Type           `json:"event_type"`
	ProductID int64          `json:"product_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Source yields product events one at a time. Poll returns nil when no
// event is currently available.
type Source interface {
	Poll(ctx context.Context) (*ProductEvent, error)
}
