// Package objectid provides the identifier used as primary key and reference target
// for every stored document. On the wire it is always the 24-character hex text; in
// MongoDB it is stored as a native ObjectID.
package objectid

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/fct/fct/backend/go-services/internal/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ID is an immutable 12-byte identifier.
type ID [12]byte

// Nil is the zero identifier. It is never assigned to a stored document.
var Nil ID

const invalid = "invalid identifier"

// New returns a fresh identifier.
func New() ID { return ID(primitive.NewObjectID()) }

// Parse accepts an ID, a primitive.ObjectID, a 24-hex string, a 24-byte hex text
// or a raw 12-byte slice.
func Parse(v any) (ID, error) {
	switch t := v.(type) {
	case ID:
		return t, nil
	case *ID:
		if t == nil {
			return Nil, apperrors.Validation(invalid)
		}
		return *t, nil
	case primitive.ObjectID:
		return ID(t), nil
	case string:
		return ParseHex(t)
	case []byte:
		if len(t) == len(ID{}) {
			var id ID
			copy(id[:], t)
			return id, nil
		}
		return ParseHex(string(t))
	}
	return Nil, apperrors.Validation(invalid)
}

// ParseHex parses the 24-character hex form.
func ParseHex(s string) (ID, error) {
	if len(s) != 2*len(ID{}) {
		return Nil, apperrors.Validation(invalid)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Nil, apperrors.Validation(invalid)
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// MustParse is Parse for fixtures; it panics on invalid input.
func MustParse(v any) ID {
	id, err := Parse(v)
	if err != nil {
		panic(fmt.Sprintf("objectid: %v: %v", err, v))
	}
	return id
}

// Hex returns the canonical lowercase text.
func (id ID) Hex() string { return hex.EncodeToString(id[:]) }

func (id ID) String() string { return id.Hex() }

func (id ID) IsZero() bool { return id == Nil }

func (id ID) Equal(other ID) bool { return id == other }

// Compare orders identifiers byte-wise. The order carries no meaning beyond being total.
func (id ID) Compare(other ID) int { return bytes.Compare(id[:], other[:]) }

// ObjectID converts to the driver type.
func (id ID) ObjectID() primitive.ObjectID { return primitive.ObjectID(id) }

func (id ID) MarshalText() ([]byte, error) { return []byte(id.Hex()), nil }

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseHex(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.TypeObjectID, append([]byte(nil), id[:]...), nil
}

// UnmarshalBSONValue accepts the native ObjectID and, for documents written by other
// tools, the hex string form.
func (id *ID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeObjectID:
		oid, ok := rv.ObjectIDOK()
		if !ok {
			return apperrors.Validation(invalid)
		}
		*id = ID(oid)
		return nil
	case bson.TypeString:
		s, ok := rv.StringValueOK()
		if !ok {
			return apperrors.Validation(invalid)
		}
		parsed, err := ParseHex(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	return apperrors.Validationf("%s: unexpected bson type %s", invalid, t)
}
