package filestore

import (
	"context"

	"github.com/koustreak/bucketgate/internal/errs"
)

// PageFunc fetches the page that starts at token ("" for the first page).
type PageFunc func(ctx context.Context, token string) (*ListPage, error)

// Walk drains a continuation-token listing, handing each page to visit.
//
// The walk ends when a page carries no continuation token. A page whose
// token was already seen is discarded and the request retried once; a second
// echo aborts the walk with an ErrKindOperationFailed error.
func Walk(ctx context.Context, fetch PageFunc, visit func(*ListPage) error) error {
	seen := make(map[string]struct{})
	token := ""
	echoes := 0

	for {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.ErrKindTimeout, "listing interrupted", err)
		}

		page, err := fetch(ctx, token)
		if err != nil {
			return err
		}

		next := page.ContinuationToken
		if next != "" {
			if _, dup := seen[next]; dup {
				echoes++
				if echoes > 1 {
					return errs.New(errs.ErrKindOperationFailed, "listing returned a repeated continuation token")
				}
				continue
			}
		}
		echoes = 0

		if err := visit(page); err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		seen[next] = struct{}{}
		token = next
	}
}
