// resource.go

package resource

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Entity is the minimal shape the generic layer needs: a numeric id and
// a soft-delete flag. Deactivate flips the flag for the default delete
// behavior.
type Entity interface {
	EntityID() int64
	IsActive() bool
	Deactivate()
}

// SerializeFunc renders one API field from an entity instance. Used for
// derived fields and nested entity expansion.
type SerializeFunc[T Entity] func(
	ctx context.Context,
	item T,
	req *Requester,
) (any, error)

// DeserializeFunc applies one incoming API field to an entity instance.
type DeserializeFunc[T Entity] func(
	ctx context.Context,
	item T,
	value any,
	req *Requester,
) error

// Resource describes how one entity type is exposed over HTTP. The five
// CRUD handlers are derived entirely from this descriptor.
type Resource[T Entity] struct {
	// URL segment, e.g. "users".
	Name string

	// Field names required on create.
	Mandatory []string
	// Field names settable on create and update.
	Writeable []string
	// Field names visible with standard rights on the instance.
	StandardReadable []string
	// Field names visible with admin rights on the instance.
	AdminReadable []string

	// Any authenticated requester may list instances.
	StandardCanReadMany bool
	// Anonymous requests may list instances.
	AllCanReadMany bool

	// New returns a zero instance, Get fetches by id, List runs the
	// type's query over URL parameters. Insert and Persist write the
	// instance; Persist also covers post-hook saves on create.
	New     func() T
	Get     func(ctx context.Context, id int64) (T, error)
	List    func(ctx context.Context, params url.Values, req *Requester) ([]T, error)
	Insert  func(ctx context.Context, item T) error
	Persist func(ctx context.Context, item T) error

	// Delete overrides the default soft-delete (Deactivate + Persist).
	Delete func(ctx context.Context, item T, req *Requester) error

	// Permission predicates. Nil predicates take the defaults applied
	// by Build.
	HasAddRights      func(ctx context.Context, data map[string]any, req *Requester) (bool, error)
	HasStandardRights func(item T, req *Requester) bool
	HasAdminRights    func(item T, req *Requester) bool
	HasDeleteRights   func(item T, req *Requester) bool

	// Per-field overrides keyed by API field name.
	Serializers   map[string]SerializeFunc[T]
	Deserializers map[string]DeserializeFunc[T]

	// OnAdd runs after the created instance is first persisted; a
	// second persist and re-fetch follow it. OnEdit runs after an
	// update with unchanged reporting whether any field moved, and is
	// likewise followed by a persist so hook mutations stick.
	OnAdd  func(ctx context.Context, item T, req *Requester) error
	OnEdit func(ctx context.Context, item T, unchanged bool, req *Requester) error

	fields map[string][]int
}

// Build validates the descriptor, applies default predicates, and
// constructs the field index. It panics on a malformed descriptor since
// descriptors are static program data.
func Build[T Entity](res Resource[T]) *Resource[T] {
	if res.Name == "" {
		panic("resource: missing name")
	}
	if res.New == nil || res.Get == nil || res.List == nil {
		panic(fmt.Sprintf("resource %s: New, Get and List are required", res.Name))
	}
	if res.Insert == nil || res.Persist == nil {
		panic(fmt.Sprintf("resource %s: Insert and Persist are required", res.Name))
	}

	if res.HasStandardRights == nil {
		res.HasStandardRights = func(_ T, req *Requester) bool {
			return req != nil
		}
	}
	if res.HasAdminRights == nil {
		res.HasAdminRights = func(_ T, req *Requester) bool {
			return req != nil && req.Administrator
		}
	}
	if res.HasDeleteRights == nil {
		res.HasDeleteRights = res.HasAdminRights
	}
	if res.HasAddRights == nil {
		res.HasAddRights = func(_ context.Context, _ map[string]any, req *Requester) (bool, error) {
			return req != nil && req.Administrator, nil
		}
	}

	res.fields = fieldIndex(res.New())
	res.validateFields()

	return &res
}

// fieldIndex maps API field names (json tags) to struct field indices.
func fieldIndex[T Entity](instance T) map[string][]int {
	t := reflect.TypeOf(instance)
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("resource: entity %T must be a struct pointer", instance))
	}

	index := make(map[string][]int)
	structType := t.Elem()

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}

		index[name] = field.Index
	}

	return index
}

func (res *Resource[T]) validateFields() {
	check := func(names []string, overrides func(string) bool, list string) {
		for _, name := range names {
			if _, ok := res.fields[name]; ok {
				continue
			}
			if overrides(name) {
				continue
			}
			panic(fmt.Sprintf(
				"resource %s: %s field %q has no struct field or override",
				res.Name, list, name,
			))
		}
	}

	hasSerializer := func(name string) bool {
		_, ok := res.Serializers[name]
		return ok
	}
	hasDeserializer := func(name string) bool {
		_, ok := res.Deserializers[name]
		return ok
	}

	check(res.StandardReadable, hasSerializer, "standard-readable")
	check(res.AdminReadable, hasSerializer, "admin-readable")
	check(res.Mandatory, hasDeserializer, "mandatory")
	check(res.Writeable, hasDeserializer, "writeable")
}

func (res *Resource[T]) deleteItem(
	ctx context.Context,
	item T,
	req *Requester,
) error {
	if res.Delete != nil {
		return res.Delete(ctx, item, req)
	}

	item.Deactivate()
	if err := res.Persist(ctx, item); err != nil {
		return fmt.Errorf("deactivate %s %d: %w", res.Name, item.EntityID(), err)
	}
	return nil
}
