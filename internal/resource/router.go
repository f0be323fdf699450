// router.go

package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/communityshare/server/internal/core"
)

// Register mounts the five CRUD handlers for a resource under its name.
func Register[T Entity](r chi.Router, res *Resource[T]) {
	r.Route("/"+res.Name, func(r chi.Router) {
		r.Get("/", res.handleList)
		r.Post("/", res.handleCreate)
		r.Get("/{id}", res.handleGet)
		r.Put("/{id}", res.handleUpdate)
		r.Patch("/{id}", res.handleUpdate)
		r.Delete("/{id}", res.handleDelete)
	})
}

func (res *Resource[T]) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, _ := RequesterFrom(ctx)

	if req == nil && !res.AllCanReadMany {
		core.Unauthorized(w, "")
		return
	}

	if req != nil && !req.Administrator &&
		!res.StandardCanReadMany && !res.AllCanReadMany {
		core.Forbidden(w, "")
		return
	}

	items, err := res.List(ctx, r.URL.Query(), req)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	// Items the requester may not see serialize to nil and are dropped
	// rather than failing the whole listing.
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		serialized, err := res.Serialize(ctx, item, req)
		if err != nil {
			core.RespondError(w, err)
			return
		}
		if serialized == nil {
			continue
		}
		out = append(out, serialized)
	}

	core.OK(w, out)
}

func (res *Resource[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, _ := RequesterFrom(ctx)

	// Single-item reads always need credentials; the read-by-anyone
	// grant covers listings only.
	if req == nil {
		core.Unauthorized(w, "")
		return
	}

	id, err := pathID(r)
	if err != nil {
		core.BadRequest(w, "invalid id")
		return
	}

	item, err := res.fetch(ctx, id)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	serialized, err := res.Serialize(ctx, item, req)
	if err != nil {
		core.RespondError(w, err)
		return
	}
	if serialized == nil {
		core.Forbidden(w, "")
		return
	}

	core.OK(w, serialized)
}

func (res *Resource[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, _ := RequesterFrom(ctx)

	data, err := decodeBody(r)
	if err != nil {
		core.BadRequest(w, "invalid JSON body")
		return
	}

	if req == nil {
		core.Unauthorized(w, "")
		return
	}

	allowed, err := res.HasAddRights(ctx, data, req)
	if err != nil {
		core.RespondError(w, err)
		return
	}
	if !allowed {
		core.Forbidden(w, "")
		return
	}

	item := res.New()
	if err := res.DeserializeCreate(ctx, item, data, req); err != nil {
		core.RespondError(w, err)
		return
	}

	if err := res.Insert(ctx, item); err != nil {
		if core.IsIntegrityError(err) {
			core.BadRequest(w, fmt.Sprintf("could not create %s", res.Name))
			return
		}
		core.RespondError(w, err)
		return
	}

	if res.OnAdd != nil {
		if err := res.OnAdd(ctx, item, req); err != nil {
			core.RespondError(w, err)
			return
		}
		if err := res.Persist(ctx, item); err != nil {
			core.RespondError(w, err)
			return
		}
	}

	// Re-fetch so database defaults and hook side effects are visible.
	created, err := res.fetch(ctx, item.EntityID())
	if err != nil {
		core.RespondError(w, err)
		return
	}

	serialized, err := res.Serialize(ctx, created, req)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	user, err := SerializeRequester(ctx, req)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	core.OKWithUser(w, serialized, user)
}

func (res *Resource[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, _ := RequesterFrom(ctx)

	id, err := pathID(r)
	if err != nil {
		core.BadRequest(w, "invalid id")
		return
	}

	data, err := decodeBody(r)
	if err != nil {
		core.BadRequest(w, "invalid JSON body")
		return
	}

	// An id in the body that disagrees with the path is rejected before
	// any rights check.
	if raw, ok := data["id"]; ok {
		bodyID, err := coerceID(raw)
		if err != nil {
			core.BadRequest(w, "invalid id in body")
			return
		}
		if bodyID != id {
			core.BadRequest(w, "id mismatch between path and body")
			return
		}
	}

	if req == nil {
		core.Unauthorized(w, "")
		return
	}

	item, err := res.fetch(ctx, id)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	if !res.HasAdminRights(item, req) {
		core.Forbidden(w, "")
		return
	}

	changed, err := res.DeserializeUpdate(ctx, item, data, req)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	if changed {
		if err := res.Persist(ctx, item); err != nil {
			if core.IsIntegrityError(err) {
				core.BadRequest(w, fmt.Sprintf("could not update %s", res.Name))
				return
			}
			core.RespondError(w, err)
			return
		}
	}

	// Like the create path, hook mutations get their own persist.
	if res.OnEdit != nil {
		if err := res.OnEdit(ctx, item, !changed, req); err != nil {
			core.RespondError(w, err)
			return
		}
		if err := res.Persist(ctx, item); err != nil {
			core.RespondError(w, err)
			return
		}
	}

	serialized, err := res.Serialize(ctx, item, req)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	core.OK(w, serialized)
}

func (res *Resource[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, _ := RequesterFrom(ctx)

	id, err := pathID(r)
	if err != nil {
		core.BadRequest(w, "invalid id")
		return
	}

	if req == nil {
		core.Unauthorized(w, "")
		return
	}

	item, err := res.fetch(ctx, id)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	if !res.HasDeleteRights(item, req) {
		core.Forbidden(w, "")
		return
	}

	if err := res.deleteItem(ctx, item, req); err != nil {
		core.RespondError(w, err)
		return
	}

	// The deactivated entity is returned so clients see its final state.
	serialized, err := res.Serialize(ctx, item, req)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	core.OK(w, serialized)
}

// fetch retrieves by id, treating soft-deleted rows the same as missing
// ones.
func (res *Resource[T]) fetch(ctx context.Context, id int64) (T, error) {
	var zero T

	item, err := res.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if !item.IsActive() {
		return zero, fmt.Errorf("%s %d: %w", res.Name, id, core.ErrNotFound)
	}
	return item, nil
}

// coerceID accepts a body id as a JSON number or a numeric string.
func coerceID(raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("id must be numeric")
	}
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func decodeBody(r *http.Request) (map[string]any, error) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}
