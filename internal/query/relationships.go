package query

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/verbflow/verbflow/internal/domain"
)

// relationKey identifies one reverse-relationship lookup: source entities of
// SourceType whose Field equals TargetID.
type relationKey struct {
	SourceType string
	Field      string
	TargetID   string
}

func (k relationKey) String() string {
	return k.SourceType + "\x1f" + k.Field + "\x1f" + k.TargetID
}

func (k relationKey) Raw() any {
	return k
}

// relationLoader batches reverse-relationship lookups through a dataloader
// so enriching a page of entities scans each source type once instead of
// once per entity. No cache: the store mutates between calls.
type relationLoader struct {
	loader *dataloader.Loader
}

func newRelationLoader(source EntitySource) *relationLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		// One scan per distinct source type, shared by every key using it.
		byType := make(map[string][]domain.EntityInstance)
		for i, raw := range keys {
			key, ok := raw.Raw().(relationKey)
			if !ok {
				results[i] = &dataloader.Result{Error: fmt.Errorf("unexpected loader key %q", raw.String())}
				continue
			}

			instances, scanned := byType[key.SourceType]
			if !scanned {
				instances = source.Find(key.SourceType, nil)
				byType[key.SourceType] = instances
			}

			var matches []domain.EntityInstance
			for _, inst := range instances {
				if inst.Fields[key.Field] == key.TargetID {
					matches = append(matches, inst)
				}
			}
			results[i] = &dataloader.Result{Data: matches}
		}

		return results
	}

	return &relationLoader{
		loader: dataloader.NewBatchedLoader(
			batchFn,
			dataloader.WithCache(&dataloader.NoCache{}),
			dataloader.WithWait(2*time.Millisecond),
		),
	}
}

func (rl *relationLoader) load(ctx context.Context, key relationKey) ([]domain.EntityInstance, error) {
	value, err := rl.loader.Load(ctx, key)()
	if err != nil {
		return nil, err
	}
	matches, _ := value.([]domain.EntityInstance)
	return matches, nil
}
