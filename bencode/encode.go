package bencode

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
)

// Encode serializes v into its bencoded form. Structs encode as
// dictionaries with keys taken from the `bencode:"name"` tag (or the
// field name), sorted lexicographically as required by the format;
// fields tagged `bencode:"-"` are omitted, as are empty fields tagged
// `empty:"omit"`.
func Encode(v interface{}) ([]byte, error) {
	var b bytes.Buffer
	if err := encode(reflect.ValueOf(v), &b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func encode(v reflect.Value, b *bytes.Buffer) error {
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("bencode: cannot encode nil %s", v.Type())
		}
		return encode(v.Elem(), b)
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fmt.Fprintf(b, "i%de", v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fmt.Fprintf(b, "i%de", v.Uint())
	case reflect.Bool:
		n := 0
		if v.Bool() {
			n = 1
		}
		fmt.Fprintf(b, "i%de", n)
	case reflect.String:
		s := v.String()
		fmt.Fprintf(b, "%d:%s", len(s), s)
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			var s []byte
			if v.Kind() == reflect.Array {
				s = make([]byte, v.Len())
				reflect.Copy(reflect.ValueOf(s), v)
			} else {
				s = v.Bytes()
			}
			fmt.Fprintf(b, "%d:", len(s))
			b.Write(s)
			return nil
		}
		b.WriteByte('l')
		for i := 0; i < v.Len(); i++ {
			if err := encode(v.Index(i), b); err != nil {
				return err
			}
		}
		b.WriteByte('e')
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("bencode: map keys must be strings, got %s", v.Type().Key())
		}
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		b.WriteByte('d')
		for _, k := range keys {
			fmt.Fprintf(b, "%d:%s", len(k), k)
			if err := encode(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())), b); err != nil {
				return err
			}
		}
		b.WriteByte('e')
	case reflect.Struct:
		return encodeStruct(v, b)
	default:
		return fmt.Errorf("bencode: unsupported type %s", v.Type())
	}
	return nil
}

type taggedField struct {
	key  string
	idx  int
	omit bool
}

func encodeStruct(v reflect.Value, b *bytes.Buffer) error {
	t := v.Type()
	fields := make([]taggedField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("bencode")
		if tag == "-" {
			continue
		}
		key := tag
		if key == "" {
			key = f.Name
		}
		fields = append(fields, taggedField{
			key:  key,
			idx:  i,
			omit: f.Tag.Get("empty") == "omit" && isEmptyValue(v.Field(i)),
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].key < fields[j].key })
	b.WriteByte('d')
	for _, f := range fields {
		if f.omit {
			continue
		}
		fmt.Fprintf(b, "%d:%s", len(f.key), f.key)
		if err := encode(v.Field(f.idx), b); err != nil {
			return err
		}
	}
	b.WriteByte('e')
	return nil
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.String:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	}
	return false
}
