// serialize.go

package resource

import (
	"context"
	"fmt"
	"reflect"

	"github.com/communityshare/server/internal/core"
)

// Serialize renders an entity for the requester's permission tier.
// A nil map with a nil error means the requester may not see the
// instance at all; the router maps that to Forbidden (or Unauthorized
// for anonymous requesters).
func (res *Resource[T]) Serialize(
	ctx context.Context,
	item T,
	req *Requester,
) (map[string]any, error) {
	if req == nil {
		if res.AllCanReadMany {
			return res.emit(ctx, item, nil, res.StandardReadable)
		}
		return nil, nil
	}

	if res.HasAdminRights(item, req) {
		return res.emit(ctx, item, req, res.AdminReadable)
	}

	if res.HasStandardRights(item, req) {
		return res.emit(ctx, item, req, res.StandardReadable)
	}

	return nil, nil
}

// SerializeStandard renders the standard-readable view regardless of
// the requester's tier. Used for nested entity expansion.
func (res *Resource[T]) SerializeStandard(
	ctx context.Context,
	item T,
	req *Requester,
) (map[string]any, error) {
	return res.emit(ctx, item, req, res.StandardReadable)
}

// SerializeAdmin renders the admin-readable view regardless of the
// requester's tier.
func (res *Resource[T]) SerializeAdmin(
	ctx context.Context,
	item T,
	req *Requester,
) (map[string]any, error) {
	return res.emit(ctx, item, req, res.AdminReadable)
}

func (res *Resource[T]) emit(
	ctx context.Context,
	item T,
	req *Requester,
	fields []string,
) (map[string]any, error) {
	out := make(map[string]any, len(fields))

	for _, name := range fields {
		if custom, ok := res.Serializers[name]; ok {
			value, err := custom(ctx, item, req)
			if err != nil {
				return nil, fmt.Errorf("serialize %s.%s: %w", res.Name, name, err)
			}
			out[name] = value
			continue
		}

		out[name] = res.fieldValue(item, name)
	}

	return out, nil
}

func (res *Resource[T]) fieldValue(item T, name string) any {
	idx, ok := res.fields[name]
	if !ok {
		return nil
	}
	return reflect.ValueOf(item).Elem().FieldByIndex(idx).Interface()
}

// DeserializeCreate applies an incoming payload to a fresh instance.
// Mandatory and writeable fields are accepted; anything else is
// silently ignored. A missing mandatory field is a validation error.
func (res *Resource[T]) DeserializeCreate(
	ctx context.Context,
	item T,
	data map[string]any,
	req *Requester,
) error {
	for _, name := range res.Mandatory {
		if _, ok := data[name]; !ok {
			return fmt.Errorf(
				"missing mandatory field %q: %w", name, core.ErrValidation,
			)
		}
	}

	allowed := make(map[string]struct{}, len(res.Mandatory)+len(res.Writeable))
	for _, name := range res.Mandatory {
		allowed[name] = struct{}{}
	}
	for _, name := range res.Writeable {
		allowed[name] = struct{}{}
	}

	for name, value := range data {
		if name == "id" {
			continue
		}
		if _, ok := allowed[name]; !ok {
			continue
		}
		if err := res.applyField(ctx, item, name, value, req); err != nil {
			return err
		}
	}

	return nil
}

// DeserializeUpdate applies writeable fields to an existing instance
// and reports whether anything actually changed. Fields with custom
// deserializers always count as changed since their effect cannot be
// compared.
func (res *Resource[T]) DeserializeUpdate(
	ctx context.Context,
	item T,
	data map[string]any,
	req *Requester,
) (bool, error) {
	changed := false

	for _, name := range res.Writeable {
		value, ok := data[name]
		if !ok {
			continue
		}

		if custom, ok := res.Deserializers[name]; ok {
			if err := custom(ctx, item, value, req); err != nil {
				return changed, fmt.Errorf(
					"deserialize %s.%s: %w", res.Name, name, err,
				)
			}
			changed = true
			continue
		}

		idx, ok := res.fields[name]
		if !ok {
			continue
		}

		field := reflect.ValueOf(item).Elem().FieldByIndex(idx)
		before := field.Interface()

		if err := assign(field, name, value); err != nil {
			return changed, err
		}

		if !reflect.DeepEqual(before, field.Interface()) {
			changed = true
		}
	}

	return changed, nil
}

func (res *Resource[T]) applyField(
	ctx context.Context,
	item T,
	name string,
	value any,
	req *Requester,
) error {
	if custom, ok := res.Deserializers[name]; ok {
		if err := custom(ctx, item, value, req); err != nil {
			return fmt.Errorf("deserialize %s.%s: %w", res.Name, name, err)
		}
		return nil
	}

	idx, ok := res.fields[name]
	if !ok {
		return nil
	}

	return assign(reflect.ValueOf(item).Elem().FieldByIndex(idx), name, value)
}

// assign writes a decoded JSON value into a struct field, coercing
// JSON's float64 numbers to the field's integer or float kind.
func assign(field reflect.Value, name string, value any) error {
	if value == nil {
		return nil
	}

	badType := func() error {
		return fmt.Errorf(
			"field %q: unexpected value type %T: %w",
			name, value, core.ErrInvalidInput,
		)
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return badType()
		}
		field.SetString(s)

	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return badType()
		}
		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := value.(float64)
		if !ok {
			return badType()
		}
		field.SetInt(int64(f))

	case reflect.Float32, reflect.Float64:
		f, ok := value.(float64)
		if !ok {
			return badType()
		}
		field.SetFloat(f)

	default:
		v := reflect.ValueOf(value)
		if !v.Type().AssignableTo(field.Type()) {
			return badType()
		}
		field.Set(v)
	}

	return nil
}
