// resource.go

package user

import (
	"context"
	"fmt"
	"net/url"

	"github.com/communityshare/server/internal/core"
	"github.com/communityshare/server/internal/resource"
)

const minPasswordLength = 8

// SearchCounter reports how many active searches a user has posted in a
// given role. Backed by the search repository.
type SearchCounter interface {
	CountByRole(ctx context.Context, userID int64, role string) (int, error)
}

// NewResource exposes users over the generic CRUD surface. Creation is
// disabled here; accounts come from the signup flow.
func NewResource(repo Repository, searches SearchCounter) *resource.Resource[*User] {
	return resource.Build(resource.Resource[*User]{
		Name:      "users",
		Mandatory: []string{"name", "email"},
		Writeable: []string{"name", "password", "is_administrator"},
		StandardReadable: []string{
			"id", "name", "is_administrator", "last_active",
			"is_educator", "is_community_partner",
		},
		AdminReadable: []string{
			"id", "name", "email", "is_administrator", "last_active",
			"date_created", "is_educator", "is_community_partner",
		},

		New: func() *User { return &User{} },
		Get: repo.GetByID,
		List: func(
			ctx context.Context,
			params url.Values,
			_ *resource.Requester,
		) ([]*User, error) {
			return repo.List(ctx, ListParams{Email: params.Get("email")})
		},
		Insert:  repo.Create,
		Persist: repo.Update,

		HasAddRights: func(context.Context, map[string]any, *resource.Requester) (bool, error) {
			return false, nil
		},
		HasAdminRights: func(u *User, req *resource.Requester) bool {
			return req != nil && (req.Administrator || req.ID == u.ID)
		},

		Serializers: map[string]resource.SerializeFunc[*User]{
			"is_educator":          roleSerializer(searches, RoleEducator),
			"is_community_partner": roleSerializer(searches, RoleCommunityPartner),
		},
		Deserializers: map[string]resource.DeserializeFunc[*User]{
			"password":         deserializePassword,
			"is_administrator": deserializeAdministrator,
		},
	})
}

func roleSerializer(
	searches SearchCounter,
	role string,
) resource.SerializeFunc[*User] {
	return func(ctx context.Context, u *User, _ *resource.Requester) (any, error) {
		n, err := searches.CountByRole(ctx, u.ID, role)
		if err != nil {
			return nil, err
		}
		return n > 0, nil
	}
}

func deserializePassword(
	_ context.Context,
	u *User,
	value any,
	_ *resource.Requester,
) error {
	password, ok := value.(string)
	if !ok {
		return fmt.Errorf("password must be a string: %w", core.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf(
			"password must be at least %d characters: %w",
			minPasswordLength, core.ErrValidation,
		)
	}

	hash, err := core.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	u.PasswordHash = hash
	return nil
}

// Only administrators may grant or revoke the administrator flag; for
// anyone else the field is silently ignored like any other disallowed
// field.
func deserializeAdministrator(
	_ context.Context,
	u *User,
	value any,
	req *resource.Requester,
) error {
	if req == nil || !req.Administrator {
		return nil
	}

	flag, ok := value.(bool)
	if !ok {
		return fmt.Errorf(
			"is_administrator must be a boolean: %w", core.ErrInvalidInput,
		)
	}

	u.Administrator = flag
	return nil
}
