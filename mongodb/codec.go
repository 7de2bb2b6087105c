package mongodb

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/pilab-dev/identity-mongodb/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

var (
	tOccurrence = reflect.TypeOf(domain.Occurrence{})
	tUser       = reflect.TypeOf(domain.User{})
	tRole       = reflect.TypeOf(domain.Role{})
)

// camelCaseTagParser names every struct field without an explicit bson name
// in lower camel case (NormalizedUserName -> normalizedUserName). Options
// such as omitempty are parsed as usual.
type camelCaseTagParser struct{}

func (camelCaseTagParser) ParseStructTags(sf reflect.StructField) (bsoncodec.StructTags, error) {
	st, err := bsoncodec.DefaultStructTagParser.ParseStructTags(sf)
	if err != nil {
		return st, err
	}
	name, _, _ := strings.Cut(sf.Tag.Get("bson"), ",")
	if name == "" {
		st.Name = lowerCamel(sf.Name)
	}
	return st, nil
}

// lowerCamel lowers the leading upper-case run of name, keeping the last
// letter of an acronym that starts the next word: ID -> id, HTMLBody -> htmlBody.
func lowerCamel(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n > 1 && n < len(runes) {
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// occurrenceCodec stores a domain.Occurrence as {instant: <datetime>}.
type occurrenceCodec struct{}

func (occurrenceCodec) EncodeValue(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != tOccurrence {
		return bsoncodec.ValueEncoderError{Name: "OccurrenceEncodeValue", Types: []reflect.Type{tOccurrence}, Received: val}
	}
	o := val.Interface().(domain.Occurrence)

	dw, err := vw.WriteDocument()
	if err != nil {
		return err
	}
	ew, err := dw.WriteDocumentElement(fieldInstant)
	if err != nil {
		return err
	}
	if err := ew.WriteDateTime(o.Instant.UnixMilli()); err != nil {
		return err
	}
	return dw.WriteDocumentEnd()
}

func (occurrenceCodec) DecodeValue(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != tOccurrence {
		return bsoncodec.ValueDecoderError{Name: "OccurrenceDecodeValue", Types: []reflect.Type{tOccurrence}, Received: val}
	}

	var o domain.Occurrence
	switch vr.Type() {
	case bsontype.EmbeddedDocument:
		dr, err := vr.ReadDocument()
		if err != nil {
			return err
		}
		for {
			name, evr, err := dr.ReadElement()
			if err == bsonrw.ErrEOD {
				break
			}
			if err != nil {
				return err
			}
			if name != fieldInstant {
				if err := evr.Skip(); err != nil {
					return err
				}
				continue
			}
			if o, err = readInstant(evr); err != nil {
				return err
			}
		}
	case bsontype.DateTime:
		var err error
		if o, err = readInstant(vr); err != nil {
			return err
		}
	case bsontype.Null:
		if err := vr.ReadNull(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot decode %v into an Occurrence", vr.Type())
	}

	val.Set(reflect.ValueOf(o))
	return nil
}

func readInstant(vr bsonrw.ValueReader) (domain.Occurrence, error) {
	if vr.Type() != bsontype.DateTime {
		return domain.Occurrence{}, fmt.Errorf("occurrence instant: expected datetime, got %v", vr.Type())
	}
	ms, err := vr.ReadDateTime()
	if err != nil {
		return domain.Occurrence{}, err
	}
	return domain.OccurrenceAt(time.UnixMilli(ms)), nil
}

// hydratingDecoder decodes with the struct codec and then lets the entity
// repair its in-memory state.
type hydratingDecoder struct {
	inner bsoncodec.ValueDecoder
}

func (d hydratingDecoder) DecodeValue(dc bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if err := d.inner.DecodeValue(dc, vr, val); err != nil {
		return err
	}
	if val.CanAddr() {
		if h, ok := val.Addr().Interface().(domain.Hydrator); ok {
			h.Hydrate()
		}
	}
	return nil
}

// buildRegistry assembles the BSON registry used by every store collection.
func buildRegistry() (*bsoncodec.Registry, error) {
	sc, err := bsoncodec.NewStructCodec(camelCaseTagParser{})
	if err != nil {
		return nil, fmt.Errorf("struct codec: %w", err)
	}

	reg := bson.NewRegistry()
	reg.RegisterKindEncoder(reflect.Struct, sc)
	reg.RegisterKindDecoder(reflect.Struct, sc)
	reg.RegisterTypeEncoder(tOccurrence, occurrenceCodec{})
	reg.RegisterTypeDecoder(tOccurrence, occurrenceCodec{})
	reg.RegisterTypeDecoder(tUser, hydratingDecoder{inner: sc})
	reg.RegisterTypeDecoder(tRole, hydratingDecoder{inner: sc})

	return reg, nil
}
