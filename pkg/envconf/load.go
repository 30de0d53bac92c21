package envconf

import (
	"encoding"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingRequired = errors.New("missing required environment variable")
	ErrUnsupportedType = errors.New("unsupported field type")
)

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// Load fills dst, a pointer to a struct, from environment variables named by
// `env` tags. Untagged struct fields are walked recursively. An unset variable
// falls back to the field's `default` tag. Every required variable that is
// missing is reported in one error, each wrapping ErrMissingRequired.
func Load(dst any) error {
	if dst == nil {
		return errors.New("destination is nil")
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return errors.New("destination must be a non-nil pointer to a struct")
	}

	var l loader
	l.walk(v.Elem(), "")

	return errors.Join(l.errs...)
}

type loader struct {
	errs []error
}

func (l *loader) walk(v reflect.Value, path string) {
	t := v.Type()

	for i := range v.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		fv := v.Field(i)
		name := path + sf.Name

		tag := sf.Tag.Get("env")
		if tag == "-" {
			continue
		}

		if tag == "" {
			if nested, ok := nestedStruct(fv); ok {
				l.walk(nested, name+".")
			}

			continue
		}

		raw, ok := os.LookupEnv(tag)
		if !ok {
			raw, ok = sf.Tag.Lookup("default")
		}
		if !ok {
			l.errs = append(l.errs, fmt.Errorf("%w: %s (field %s)", ErrMissingRequired, tag, name))
			continue
		}

		err := setValue(fv, raw)
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("parse %s for field %s: %w", tag, name, err))
		}
	}
}

// nestedStruct returns the struct to descend into for an untagged field,
// allocating nil struct pointers on the way.
func nestedStruct(fv reflect.Value) (reflect.Value, bool) {
	switch {
	case fv.Kind() == reflect.Struct && fv.Type() != durationType:
		return fv, true
	case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.Struct:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}

		return fv.Elem(), true
	default:
		return reflect.Value{}, false
	}
}

func setValue(fv reflect.Value, raw string) error {
	if !fv.CanSet() {
		return fmt.Errorf("field not settable: %w", ErrUnsupportedType)
	}

	if fv.CanAddr() && fv.Addr().Type().Implements(textUnmarshalerType) {
		u, _ := fv.Addr().Interface().(encoding.TextUnmarshaler)

		err := u.UnmarshalText([]byte(raw))
		if err != nil {
			return fmt.Errorf("unmarshal text: %w", err)
		}

		return nil
	}

	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse duration: %w", err)
		}

		fv.SetInt(int64(d))

		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse bool: %w", err)
		}

		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse int: %w", err)
		}

		fv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse uint: %w", err)
		}

		fv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse float: %w", err)
		}

		fv.SetFloat(f)
	case reflect.Slice:
		return setSlice(fv, raw)
	case reflect.Pointer:
		elem := reflect.New(fv.Type().Elem())

		err := setValue(elem.Elem(), raw)
		if err != nil {
			return fmt.Errorf("parse pointer: %w", err)
		}

		fv.Set(elem)
	default:
		return fmt.Errorf("%s: %w", fv.Type(), ErrUnsupportedType)
	}

	return nil
}

// setSlice splits raw on commas; blank items are dropped.
func setSlice(fv reflect.Value, raw string) error {
	out := reflect.MakeSlice(fv.Type(), 0, strings.Count(raw, ",")+1)

	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		elem := reflect.New(fv.Type().Elem()).Elem()

		err := setValue(elem, item)
		if err != nil {
			return fmt.Errorf("parse item %q: %w", item, err)
		}

		out = reflect.Append(out, elem)
	}

	fv.Set(out)

	return nil
}
