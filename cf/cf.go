package cf

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Load copies the values found in data into the tagged fields of the struct cf points at. Fields tagged
// `cf:"-"` are ignored.
func Load(data map[string]interface{}, cf interface{}) error {
	cfV := reflect.ValueOf(cf)
	if cfV.Kind() != reflect.Ptr {
		return errors.Errorf("cf type [%s] not pointer", cfV.Type())
	}
	cfV = cfV.Elem()
	if cfV.Kind() != reflect.Struct {
		return errors.Errorf("cf type [%s] not struct", cfV.Type())
	}
	for i := 0; i < cfV.NumField(); i++ {
		field := cfV.Field(i)
		key, skip := keyName(cfV.Type().Field(i))
		if skip || !field.CanSet() {
			continue
		}
		v, found := data[key]
		if !found {
			continue
		}
		if err := set(key, field, v); err != nil {
			return err
		}
	}
	return nil
}

func set(key string, field reflect.Value, v interface{}) error {
	switch field.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		j, ok := v.(int)
		if !ok {
			return mismatch(key, field, v)
		}
		if field.OverflowInt(int64(j)) {
			return errors.Errorf("field '%s' value [%d] overflows [%s]", key, j, field.Type())
		}
		field.SetInt(int64(j))

	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		j, ok := v.(int)
		if !ok || j < 0 {
			return mismatch(key, field, v)
		}
		if field.OverflowUint(uint64(j)) {
			return errors.Errorf("field '%s' value [%d] overflows [%s]", key, j, field.Type())
		}
		field.SetUint(uint64(j))

	case reflect.Float64:
		switch f := v.(type) {
		case float64:
			field.SetFloat(f)
		case int:
			field.SetFloat(float64(f))
		default:
			return mismatch(key, field, v)
		}

	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return mismatch(key, field, v)
		}
		field.SetBool(b)

	case reflect.String:
		s, ok := v.(string)
		if !ok {
			return mismatch(key, field, v)
		}
		field.SetString(s)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return errors.Errorf("unsupported field type [%s]", field.Type())
		}
		in, ok := v.([]interface{})
		if !ok {
			return mismatch(key, field, v)
		}
		out := make([]string, 0, len(in))
		for _, e := range in {
			s, ok := e.(string)
			if !ok {
				return mismatch(key, field, v)
			}
			out = append(out, s)
		}
		field.Set(reflect.ValueOf(out))

	default:
		return errors.Errorf("unsupported field type [%s]", field.Type())
	}
	return nil
}

func mismatch(key string, field reflect.Value, v interface{}) error {
	return errors.Errorf("field '%s' type mismatch, got [%s], expected [%s]", key, reflect.TypeOf(v), field.Type())
}

func Dump(label string, cf interface{}) string {
	cfV := reflect.ValueOf(cf)
	if cfV.Kind() == reflect.Ptr {
		cfV = cfV.Elem()
	}
	if cfV.Kind() != reflect.Struct {
		return ""
	}
	out := label + " {\n"
	format := fmt.Sprintf("\t%%-%ds %%v\n", maxKeyLength(cfV))
	for i := 0; i < cfV.NumField(); i++ {
		key, skip := keyName(cfV.Type().Field(i))
		if skip || !cfV.Field(i).CanInterface() {
			continue
		}
		out += fmt.Sprintf(format, key, cfV.Field(i).Interface())
	}
	out += "}\n"
	return out
}

func keyName(v reflect.StructField) (string, bool) {
	tag := v.Tag.Get("cf")
	if tag == "-" {
		return "", true
	}
	if tag != "" {
		return tag, false
	}
	return v.Name, false
}

func maxKeyLength(cfV reflect.Value) int {
	maxKeyLength := 0
	for i := 0; i < cfV.NumField(); i++ {
		key, _ := keyName(cfV.Type().Field(i))
		if len(key) > maxKeyLength {
			maxKeyLength = len(key)
		}
	}
	return maxKeyLength
}
