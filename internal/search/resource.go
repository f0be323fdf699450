// resource.go

package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/communityshare/server/internal/core"
	"github.com/communityshare/server/internal/resource"
)

func NewResource(repo Repository) *resource.Resource[*Search] {
	return resource.Build(resource.Resource[*Search]{
		Name:      "searches",
		Mandatory: []string{"searcher_user_id", "searcher_role", "target_role"},
		Writeable: []string{"searcher_role", "target_role", "description"},
		StandardReadable: []string{
			"id", "searcher_user_id", "searcher_role", "target_role",
			"description",
		},
		AdminReadable: []string{
			"id", "searcher_user_id", "searcher_role", "target_role",
			"description", "date_created",
		},
		StandardCanReadMany: true,

		New:     func() *Search { return &Search{} },
		Get:     repo.GetByID,
		List:    listFunc(repo),
		Insert:  repo.Create,
		Persist: repo.Update,

		// A user may only post searches on their own behalf.
		HasAddRights: func(
			_ context.Context,
			data map[string]any,
			req *resource.Requester,
		) (bool, error) {
			if req.Administrator {
				return true, nil
			}
			searcherID, ok := data["searcher_user_id"].(float64)
			return ok && int64(searcherID) == req.ID, nil
		},
		HasAdminRights: func(s *Search, req *resource.Requester) bool {
			return req != nil && (req.Administrator || req.ID == s.SearcherUserID)
		},
	})
}

func listFunc(
	repo Repository,
) func(context.Context, url.Values, *resource.Requester) ([]*Search, error) {
	return func(
		ctx context.Context,
		params url.Values,
		_ *resource.Requester,
	) ([]*Search, error) {
		listParams := ListParams{
			SearcherRole: params.Get("searcher_role"),
			TargetRole:   params.Get("target_role"),
		}

		if raw := params.Get("searcher_user_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf(
					"searcher_user_id must be an integer: %w",
					core.ErrInvalidInput,
				)
			}
			listParams.SearcherUserID = id
		}

		return repo.List(ctx, listParams)
	}
}
