// resource.go

package institution

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/communityshare/server/internal/core"
	"github.com/communityshare/server/internal/resource"
)

// NewResource exposes institutions. They are world-readable; only
// administrators may create or change them directly (associations are
// how regular users attach themselves).
func NewResource(repo Repository) *resource.Resource[*Institution] {
	return resource.Build(resource.Resource[*Institution]{
		Name:      "institutions",
		Mandatory: []string{"name"},
		Writeable: []string{"name", "institution_type", "description"},
		StandardReadable: []string{
			"id", "name", "institution_type", "description",
		},
		AdminReadable: []string{
			"id", "name", "institution_type", "description", "date_created",
		},
		StandardCanReadMany: true,
		AllCanReadMany:      true,

		New: func() *Institution { return &Institution{} },
		Get: repo.GetByID,
		List: func(
			ctx context.Context,
			_ url.Values,
			_ *resource.Requester,
		) ([]*Institution, error) {
			return repo.List(ctx)
		},
		Insert:  repo.Create,
		Persist: repo.Update,
	})
}

// NewAssociationResource exposes institution associations. The
// "institution" field serializes as the institution's embedded standard
// view and deserializes from a name, resolving an existing institution
// or creating a bare one.
func NewAssociationResource(
	repo AssociationRepository,
	institutions Repository,
	institutionRes *resource.Resource[*Institution],
) *resource.Resource[*Association] {
	return resource.Build(resource.Resource[*Association]{
		Name:      "institution_associations",
		Mandatory: []string{"user_id", "institution", "role"},
		Writeable: []string{"institution", "role"},
		StandardReadable: []string{
			"id", "user_id", "role", "institution",
		},
		AdminReadable: []string{
			"id", "user_id", "role", "institution", "date_created",
		},
		StandardCanReadMany: true,

		New:     func() *Association { return &Association{} },
		Get:     repo.GetByID,
		List:    associationListFunc(repo),
		Insert:  repo.Create,
		Persist: repo.Update,

		HasAddRights: func(
			_ context.Context,
			data map[string]any,
			req *resource.Requester,
		) (bool, error) {
			if req.Administrator {
				return true, nil
			}
			userID, ok := data["user_id"].(float64)
			return ok && int64(userID) == req.ID, nil
		},
		HasAdminRights: func(a *Association, req *resource.Requester) bool {
			return req != nil && (req.Administrator || req.ID == a.UserID)
		},

		Serializers: map[string]resource.SerializeFunc[*Association]{
			"institution": serializeInstitution(institutions, institutionRes),
		},
		Deserializers: map[string]resource.DeserializeFunc[*Association]{
			"institution": deserializeInstitution(institutions),
		},
	})
}

func associationListFunc(
	repo AssociationRepository,
) func(context.Context, url.Values, *resource.Requester) ([]*Association, error) {
	return func(
		ctx context.Context,
		params url.Values,
		_ *resource.Requester,
	) ([]*Association, error) {
		listParams := AssociationListParams{}

		if raw := params.Get("user_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf(
					"user_id must be an integer: %w", core.ErrInvalidInput,
				)
			}
			listParams.UserID = id
		}

		return repo.List(ctx, listParams)
	}
}

func serializeInstitution(
	institutions Repository,
	institutionRes *resource.Resource[*Institution],
) resource.SerializeFunc[*Association] {
	return func(
		ctx context.Context,
		a *Association,
		req *resource.Requester,
	) (any, error) {
		inst, err := institutions.GetByID(ctx, a.InstitutionID)
		if err != nil {
			return nil, err
		}
		return institutionRes.SerializeStandard(ctx, inst, req)
	}
}

// deserializeInstitution accepts an institution name and resolves it to
// an id, creating the institution when it does not exist yet.
func deserializeInstitution(
	institutions Repository,
) resource.DeserializeFunc[*Association] {
	return func(
		ctx context.Context,
		a *Association,
		value any,
		_ *resource.Requester,
	) error {
		name, ok := value.(string)
		if !ok {
			return fmt.Errorf(
				"institution must be a name: %w", core.ErrInvalidInput,
			)
		}
		if name == "" {
			return fmt.Errorf(
				"institution name is required: %w", core.ErrValidation,
			)
		}
		if len(name) > maxNameLength {
			return fmt.Errorf(
				"institution name exceeds %d characters: %w",
				maxNameLength, core.ErrValidation,
			)
		}

		inst, err := institutions.GetByName(ctx, name)
		if errors.Is(err, core.ErrNotFound) {
			inst = &Institution{Name: name}
			if err := institutions.Create(ctx, inst); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		a.InstitutionID = inst.ID
		return nil
	}
}
