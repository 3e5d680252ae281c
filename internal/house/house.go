// Package house is the house resource: its persisted model, the partial input
// schema and the repository and service bound to the houses collection.
package house

import (
	"encoding/json"
	"time"

	"github.com/fct/fct/backend/go-services/internal/apperrors"
	"github.com/fct/fct/backend/go-services/internal/objectid"
	"github.com/fct/fct/backend/go-services/internal/repository"
	"github.com/fct/fct/backend/go-services/internal/service"
	"github.com/fct/fct/backend/go-services/internal/store"
	"github.com/fct/fct/backend/go-services/pkg/optional"
)

const Collection = "houses"

// Indexes declared on the houses collection.
var Indexes = []store.Index{{Keys: []string{"name"}, Unique: true}}

// Attribute names as stored.
const (
	FieldName   = "name"
	FieldWidth  = "width"
	FieldHeight = "height"
	FieldVolume = "volume"
)

// House is a persisted house document.
type House struct {
	ID          objectid.ID `json:"id" bson:"_id"`
	Name        string      `json:"name" bson:"name"`
	Width       float64     `json:"width" bson:"width"`
	Height      float64     `json:"height" bson:"height"`
	Volume      float64     `json:"volume" bson:"volume"`
	CreatedDate time.Time   `json:"created_date" bson:"created_date"`
	UpdatedDate time.Time   `json:"updated_date" bson:"updated_date"`
}

// Base is a house without its identifier and timestamps.
type Base struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Volume float64 `json:"volume"`
}

func (h House) Base() Base {
	return Base{Name: h.Name, Width: h.Width, Height: h.Height, Volume: h.Volume}
}

// Input carries the attributes a client sent. Absent keys stay unset.
type Input struct {
	Name   optional.Field[string]  `json:"name"`
	Width  optional.Field[float64] `json:"width"`
	Height optional.Field[float64] `json:"height"`
	Volume optional.Field[float64] `json:"volume"`
}

func (in Input) SetFields() map[string]any {
	m := make(map[string]any, 4)
	optional.Put(m, FieldName, in.Name)
	optional.Put(m, FieldWidth, in.Width)
	optional.Put(m, FieldHeight, in.Height)
	optional.Put(m, FieldVolume, in.Volume)
	return m
}

// Missing lists the required attributes left unset.
func (in Input) Missing() []string {
	var missing []string
	missing = optional.Require(missing, FieldName, in.Name)
	missing = optional.Require(missing, FieldWidth, in.Width)
	missing = optional.Require(missing, FieldHeight, in.Height)
	missing = optional.Require(missing, FieldVolume, in.Volume)
	return missing
}

// Validate checks the attributes that are set.
func (in Input) Validate() error {
	if v, ok := in.Name.Get(); ok && v == "" {
		return apperrors.Validation("name must not be empty")
	}
	for _, f := range []struct {
		name string
		v    optional.Field[float64]
	}{{FieldWidth, in.Width}, {FieldHeight, in.Height}, {FieldVolume, in.Volume}} {
		if v, ok := f.v.Get(); ok && v < 0 {
			return apperrors.Validationf("%s must not be negative", f.name)
		}
	}
	return nil
}

// Attribute decodes a single attribute value for a patch of that attribute alone.
func Attribute(name string, raw json.RawMessage) (any, error) {
	switch name {
	case FieldName, FieldWidth, FieldHeight, FieldVolume:
	default:
		return nil, apperrors.Validationf("unknown attribute %q", name)
	}
	doc, err := json.Marshal(map[string]json.RawMessage{name: raw})
	if err != nil {
		return nil, apperrors.Validationf("invalid value for %s", name)
	}
	var in Input
	if err := json.Unmarshal(doc, &in); err != nil {
		return nil, apperrors.Validationf("invalid value for %s: %v", name, err)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	v, ok := in.SetFields()[name]
	if !ok {
		return nil, apperrors.Validationf("%s requires a value", name)
	}
	return v, nil
}

type Repository = repository.Repository[House]

type Service = service.Service[House]

func NewRepository(st store.Store, opts ...repository.Option) *Repository {
	return repository.New[House](st, opts...)
}

func NewService(st store.Store, opts ...repository.Option) *Service {
	return service.New[House](NewRepository(st, opts...))
}
