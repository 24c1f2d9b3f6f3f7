package addons

import (
	"context"
	"fmt"

	"github.com/qovery/addonctl/internal/state"
	"github.com/qovery/addonctl/internal/template"
	"github.com/qovery/addonctl/internal/util/retry"
)

// BucketClient is the subset of the Spaces client the applier needs.
type BucketClient interface {
	CreateBucket(ctx context.Context, bucket string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	DeleteBucket(ctx context.Context, bucket string) error
}

// BucketApplier applies bucket resources against object storage. Buckets
// cannot be renamed in place, so updates reduce to an idempotent create of
// the configured name.
type BucketApplier struct {
	client BucketClient
}

func NewBucketApplier(client BucketClient) *BucketApplier {
	return &BucketApplier{client: client}
}

func (a *BucketApplier) Exists(ctx context.Context, res *template.Resolved) (bool, error) {
	name, err := bucketName(res)
	if err != nil {
		return false, retry.Terminal(err)
	}
	return a.client.BucketExists(ctx, name)
}

func (a *BucketApplier) Create(ctx context.Context, res *template.Resolved) error {
	name, err := bucketName(res)
	if err != nil {
		return retry.Terminal(err)
	}
	return a.client.CreateBucket(ctx, name)
}

func (a *BucketApplier) Update(ctx context.Context, res *template.Resolved) error {
	return a.Create(ctx, res)
}

// Delete removes the bucket. The engine only calls this for unprotected
// kinds, so with the bucket kind protected it is reachable solely through
// direct client use, but the contract is kept complete.
func (a *BucketApplier) Delete(ctx context.Context, rec state.Record) error {
	name := rec.Attributes["name"]
	if name == "" {
		return retry.Terminal(fmt.Errorf("bucket record %s has no name attribute", rec.ID))
	}
	return a.client.DeleteBucket(ctx, name)
}

func bucketName(res *template.Resolved) (string, error) {
	name := res.Attributes["name"]
	if name == "" {
		return "", fmt.Errorf("bucket %s has no name attribute", res.ID)
	}
	return name, nil
}
