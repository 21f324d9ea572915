package jam

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
)

// Marshal encodes v using the canonical encoding. Unsigned fixed-size
// integers are written little-endian at their natural width, int and uint use
// the general compact natural encoding, byte strings and slices are length
// prefixed, arrays and structs are written field by field without framing.
func Marshal(v interface{}) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	es := byteWriter{
		Writer: buffer,
	}
	err := es.marshal(v)
	if err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

type byteWriter struct {
	io.Writer
}

func (bw *byteWriter) marshal(in interface{}) error {
	if v, ok := in.(EncodeEnum); ok {
		return bw.encodeEnumType(v)
	}

	switch v := in.(type) {
	case []byte:
		return bw.encodeBytes(v)
	case bool:
		return bw.encodeBool(v)
	default:
		return bw.handleReflectTypes(v)
	}
}

func (bw *byteWriter) handleReflectTypes(in interface{}) error {
	val := reflect.ValueOf(in)
	switch val.Kind() {
	case reflect.Bool:
		return bw.encodeBool(val.Bool())
	case reflect.Int:
		if val.Int() < 0 {
			return fmt.Errorf(ErrUnsupportedType, in)
		}
		return bw.encodeCompact(uint64(val.Int()))
	case reflect.Uint:
		return bw.encodeCompact(val.Uint())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return bw.encodeFixedWidth(val.Uint(), uint(val.Type().Size()))
	case reflect.Ptr:
		err := bw.writePointerMarker(val.IsNil())
		if err != nil {
			return err
		}
		if val.IsNil() {
			return nil
		}
		return bw.marshal(val.Elem().Interface())
	case reflect.Struct:
		return bw.encodeStruct(val)
	case reflect.Array:
		return bw.encodeArray(val)
	case reflect.Slice:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return bw.encodeBytes(val.Bytes())
		}
		return bw.encodeSlice(val)
	default:
		return fmt.Errorf(ErrUnsupportedType, in)
	}
}

func (bw *byteWriter) encodeEnumType(enum EncodeEnum) error {
	index, value, err := enum.IndexValue()
	if err != nil {
		return err
	}

	_, err = bw.Write([]byte{byte(index)})
	if err != nil {
		return err
	}

	if value == nil {
		return nil
	}

	return bw.marshal(value)
}

func (bw *byteWriter) encodeSlice(v reflect.Value) error {
	err := bw.encodeLength(v.Len())
	if err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		err = bw.marshal(v.Index(i).Interface())
		if err != nil {
			return err
		}
	}
	return nil
}

func (bw *byteWriter) encodeArray(v reflect.Value) error {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		_, err := bw.Write(reflectToByteSlice(v))
		return err
	}
	for i := 0; i < v.Len(); i++ {
		err := bw.marshal(v.Index(i).Interface())
		if err != nil {
			return err
		}
	}
	return nil
}

// reflectToByteSlice converts a reflect.Value of an array (e.g., [32]byte) to a []byte
func reflectToByteSlice(v reflect.Value) []byte {
	byteSlice := make([]byte, v.Len())
	for i := 0; i < v.Len(); i++ {
		byteSlice[i] = byte(v.Index(i).Uint())
	}
	return byteSlice
}

func (bw *byteWriter) encodeBool(l bool) error {
	var err error
	switch l {
	case true:
		_, err = bw.Write([]byte{0x01})
	case false:
		_, err = bw.Write([]byte{0x00})
	}

	return err
}

func (bw *byteWriter) encodeBytes(b []byte) error {
	err := bw.encodeLength(len(b))
	if err != nil {
		return err
	}

	_, err = bw.Write(b)
	return err
}

func (bw *byteWriter) encodeFixedWidth(x uint64, l uint) error {
	_, err := bw.Write(serializeTrivialNatural(x, l))
	return err
}

func (bw *byteWriter) writePointerMarker(isNil bool) error {
	marker := byte(0x00)
	if !isNil {
		marker = byte(0x01)
	}
	_, err := bw.Write([]byte{marker})
	return err
}

func (bw *byteWriter) encodeStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// Skip unexported fields
		if !field.CanInterface() {
			continue
		}
		if tag, ok := fieldType.Tag.Lookup("jam"); ok {
			if tag == "-" {
				continue
			}
			if parseTag(tag)["encoding"] == "compact" {
				switch field.Kind() {
				case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
					if err := bw.encodeCompact(field.Uint()); err != nil {
						return fmt.Errorf(ErrEncodingStructField, fieldType.Name, err)
					}
					continue
				default:
					return fmt.Errorf(ErrEncodingStructField, fieldType.Name, fmt.Errorf(ErrUnsupportedType, field.Kind()))
				}
			}
		}

		err := bw.marshal(field.Interface())
		if err != nil {
			return fmt.Errorf(ErrEncodingStructField, fieldType.Name, err)
		}
	}

	return nil
}

func (bw *byteWriter) encodeLength(l int) error {
	return bw.encodeCompact(uint64(l))
}

// encodeCompact encodes an uint64 using the general compact natural number
// encoding. The result is 1 to 9 bytes long depending on the input.
func (bw *byteWriter) encodeCompact(i uint64) error {
	_, err := bw.Write(serializeUint64(i))
	return err
}
