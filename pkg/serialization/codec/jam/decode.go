package jam

import (
	"bytes"
	"fmt"
	"io"
	"math/bits"
	"reflect"
)

// Unmarshal decodes data into dst, which must be a non-nil pointer. The whole
// input must be consumed; leftover bytes are reported as ErrTrailingBytes.
func Unmarshal(data []byte, dst interface{}) error {
	dstv := reflect.ValueOf(dst)
	if dstv.Kind() != reflect.Ptr || dstv.IsNil() {
		return fmt.Errorf(ErrUnsupportedType, dst)
	}

	buf := bytes.NewReader(data)
	br := byteReader{Reader: buf}
	if err := br.unmarshal(dstv.Elem()); err != nil {
		return err
	}
	if buf.Len() != 0 {
		return ErrTrailingBytes
	}
	return nil
}

type byteReader struct {
	io.Reader
}

func (br *byteReader) unmarshal(value reflect.Value) error {
	if value.CanAddr() {
		if vdt, ok := value.Addr().Interface().(EnumType); ok {
			return br.decodeEnum(vdt)
		}
	}

	switch value.Kind() {
	case reflect.Bool:
		return br.decodeBool(value)
	case reflect.Int:
		u, err := br.decodeCompact()
		if err != nil {
			return err
		}
		value.SetInt(int64(u))
		return nil
	case reflect.Uint:
		u, err := br.decodeCompact()
		if err != nil {
			return err
		}
		value.SetUint(u)
		return nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return br.decodeFixedWidth(value, uint(value.Type().Size()))
	case reflect.Ptr:
		return br.decodePointer(value)
	case reflect.Struct:
		return br.decodeStruct(value)
	case reflect.Array:
		return br.decodeArray(value)
	case reflect.Slice:
		if value.Type().Elem().Kind() == reflect.Uint8 {
			return br.decodeBytes(value)
		}
		return br.decodeSlice(value)
	default:
		return fmt.Errorf(ErrUnsupportedType, value.Type())
	}
}

func (br *byteReader) decodeEnum(enum EnumType) error {
	b, err := br.readOne()
	if err != nil {
		return err
	}
	val, err := enum.ValueAt(uint(b))
	if err != nil {
		return err
	}
	if val == nil {
		return enum.SetValue(nil)
	}

	tempVal := reflect.New(reflect.TypeOf(val)).Elem()
	if err := br.unmarshal(tempVal); err != nil {
		return err
	}
	return enum.SetValue(tempVal.Interface())
}

func (br *byteReader) decodePointer(value reflect.Value) error {
	marker, err := br.readOne()
	if err != nil {
		return err
	}

	switch marker {
	case 0x00:
		value.Set(reflect.Zero(value.Type()))
		return nil
	case 0x01:
		elem := reflect.New(value.Type().Elem())
		if err := br.unmarshal(elem.Elem()); err != nil {
			return err
		}
		value.Set(elem)
		return nil
	default:
		return ErrInvalidPointerMarker
	}
}

func (br *byteReader) decodeStruct(value reflect.Value) error {
	t := value.Type()
	for i := 0; i < t.NumField(); i++ {
		field := value.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if tag, ok := fieldType.Tag.Lookup("jam"); ok {
			if tag == "-" {
				continue
			}
			if parseTag(tag)["encoding"] == "compact" {
				u, err := br.decodeCompact()
				if err != nil {
					return fmt.Errorf(ErrDecodingStructField, fieldType.Name, err)
				}
				field.SetUint(u)
				continue
			}
		}

		if err := br.unmarshal(field); err != nil {
			return fmt.Errorf(ErrDecodingStructField, fieldType.Name, err)
		}
	}
	return nil
}

func (br *byteReader) decodeArray(value reflect.Value) error {
	if value.Type().Elem().Kind() == reflect.Uint8 {
		buf := make([]byte, value.Len())
		if _, err := io.ReadFull(br.Reader, buf); err != nil {
			return fmt.Errorf(ErrReadingBytes, err)
		}
		reflect.Copy(value, reflect.ValueOf(buf))
		return nil
	}
	for i := 0; i < value.Len(); i++ {
		if err := br.unmarshal(value.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (br *byteReader) decodeSlice(value reflect.Value) error {
	length, err := br.decodeLength()
	if err != nil {
		return err
	}
	if length == 0 {
		value.Set(reflect.Zero(value.Type()))
		return nil
	}

	slice := reflect.MakeSlice(value.Type(), int(length), int(length))
	for i := 0; i < int(length); i++ {
		if err := br.unmarshal(slice.Index(i)); err != nil {
			return err
		}
	}
	value.Set(slice)
	return nil
}

// decodeBytes reads a length prefixed byte string. An empty string decodes to
// a nil slice.
func (br *byteReader) decodeBytes(value reflect.Value) error {
	length, err := br.decodeLength()
	if err != nil {
		return err
	}
	if length == 0 {
		value.Set(reflect.Zero(value.Type()))
		return nil
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(br.Reader, buf); err != nil {
		return fmt.Errorf(ErrReadingBytes, err)
	}
	value.SetBytes(buf)
	return nil
}

func (br *byteReader) decodeBool(value reflect.Value) error {
	b, err := br.readOne()
	if err != nil {
		return err
	}

	switch b {
	case 0x00:
		value.SetBool(false)
	case 0x01:
		value.SetBool(true)
	default:
		return ErrDecodingBool
	}
	return nil
}

func (br *byteReader) decodeFixedWidth(value reflect.Value, length uint) error {
	buf := make([]byte, length)
	if _, err := io.ReadFull(br.Reader, buf); err != nil {
		return fmt.Errorf(ErrReadingBytes, err)
	}
	value.SetUint(deserializeTrivialNatural(buf))
	return nil
}

func (br *byteReader) decodeLength() (uint64, error) {
	length, err := br.decodeCompact()
	if err != nil {
		return 0, err
	}
	if length > MaxSequenceLength {
		return 0, ErrExceedingLengthLimit
	}
	return length, nil
}

func (br *byteReader) decodeCompact() (uint64, error) {
	first, err := br.readOne()
	if err != nil {
		return 0, fmt.Errorf(ErrDecodingUint, err)
	}

	l := uint8(bits.LeadingZeros8(^first))
	serialized := make([]byte, l+1)
	serialized[0] = first
	if l > 0 {
		if _, err := io.ReadFull(br.Reader, serialized[1:]); err != nil {
			return 0, fmt.Errorf(ErrDecodingUint, err)
		}
	}

	var v uint64
	if err := deserializeUint64WithLength(serialized, l, &v); err != nil {
		return 0, fmt.Errorf(ErrDecodingUint, err)
	}
	return v, nil
}

func (br *byteReader) readOne() (byte, error) {
	b := make([]byte, 1)
	if _, err := io.ReadFull(br.Reader, b); err != nil {
		return 0, fmt.Errorf(ErrReadingByte, err)
	}
	return b[0], nil
}
