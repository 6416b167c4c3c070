package scraper

import (
	"context"

	"streamscout/pkg/helix"
	"streamscout/pkg/models"
)

// HelixAPI is the part of *helix.Client a collection run drives.
type HelixAPI interface {
	Streams(q helix.StreamsQuery) *helix.Pager[helix.Stream]
	SearchChannels(q helix.SearchChannelsQuery) *helix.Pager[helix.Channel]
	Users(ctx context.Context, ids []string) ([]helix.User, error)
	FindGame(ctx context.Context, name string) (*helix.Game, error)
}

// ProgressFunc observes progress snapshots. It is called on the collecting
// goroutine at every phase change and counter update, so it must not block.
type ProgressFunc func(models.CollectionProgress)
