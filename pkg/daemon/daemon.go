// Package daemon drives the sync cycle: pull changed items from the reading
// list, synthesize documents for the new ones, and push local read state back
// to the service.
package daemon

import (
	"context"
	"fmt"
	"sync"

	"repocket/pkg/article"
	"repocket/pkg/device/store"
	"repocket/pkg/pocket"
	"repocket/pkg/repocket/ident"
	"repocket/pkg/repocket/logging"
)

// SyncTag is applied to items on the remote service after they have been
// archived by a sync run.
const SyncTag = "repocket"

// RemoteClient is the slice of the reading-list API the cycle needs.
type RemoteClient interface {
	Retrieve(ctx context.Context, query *pocket.Query) (*pocket.RetrieveResult, error)
	Archive(ctx context.Context, itemIDs []uint64) error
	AddTags(ctx context.Context, itemID uint64, tags []string) error
}

// Synthesizer produces a packaged document for a source URL.
type Synthesizer interface {
	Synthesize(ctx context.Context, sourceURL string) *article.Document
}

// Options tunes a Daemon.
type Options struct {
	// Workers bounds concurrent synthesis runs. Values below 1 mean 1.
	Workers int
	// QueryCount limits items fetched per cycle.
	QueryCount int
	// Tag, when set, restricts the pull to items carrying it.
	Tag string
}

// Daemon owns one store and runs sync cycles against it. Cycles must not run
// concurrently; the store merge is sequential by design.
type Daemon struct {
	store    *store.Store
	client   RemoteClient
	pipeline Synthesizer
	opts     Options
	log      *logging.Logger
}

func New(st *store.Store, client RemoteClient, pipeline Synthesizer, opts Options) *Daemon {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Daemon{
		store:    st,
		client:   client,
		pipeline: pipeline,
		opts:     opts,
		log:      logging.Get("daemon"),
	}
}

// RunCycle performs one full sync pass. A failed remote pull aborts the cycle
// before anything is written; failures past that point degrade item by item.
func (d *Daemon) RunCycle(ctx context.Context) error {
	builder := pocket.NewQuery().
		State("unread").
		Since(d.store.Watermark()).
		Count(d.opts.QueryCount).
		Sort("oldest").
		DetailType("simple")
	if d.opts.Tag != "" {
		builder = builder.Tag(d.opts.Tag)
	}
	query, err := builder.Build()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}

	result, err := d.client.Retrieve(ctx, query)
	if err != nil {
		return fmt.Errorf("retrieving items: %w", err)
	}
	d.log.Info("retrieved items", "count", len(result.Items), "since", result.Since)

	items := d.filterUnknown(result.Items)
	docs := d.synthesizeAll(ctx, items)

	for i, doc := range docs {
		if doc == nil {
			continue
		}
		item := items[i]
		title := item.Title()
		if title == "" {
			title = doc.Title
		}
		if err := d.store.AddDocument(doc.ID, item.ID(), title, doc.FileType, doc.Payload); err != nil {
			d.log.Error("storing document failed", "url", item.URL(), "error", err)
			continue
		}
		d.log.Info("stored document",
			"title", title, "type", doc.FileType, "failed", doc.Failed)
	}

	// Fold the additions into the tracked set and pick up any documents the
	// reader moved to the archive folder since the last pass.
	d.store.Reconcile()
	d.pushReadState(ctx)

	if result.Since > 0 {
		d.store.SetWatermark(result.Since)
	}

	if err := d.store.Persist(); err != nil {
		return fmt.Errorf("persisting state: %w", err)
	}
	return nil
}

// filterUnknown drops items that are already tracked in any state or that
// carry no usable URL. Read items waiting on a remote archive retry count as
// tracked; re-synthesizing one would pull it back out of the archive folder.
func (d *Daemon) filterUnknown(items []pocket.Item) []pocket.Item {
	tracked := []map[ident.ID]uint64{
		d.store.CurrentItems(),
		d.store.ArchivedItems(),
		d.store.ReadItems(),
		d.store.NewItems(),
	}

	var out []pocket.Item
	for _, item := range items {
		if item.URL() == "" {
			d.log.Warn("skipping item without url", "id", item.ID())
			continue
		}
		id := ident.FromURL(item.URL())
		known := false
		for _, set := range tracked {
			if _, ok := set[id]; ok {
				known = true
				break
			}
		}
		if !known {
			out = append(out, item)
		}
	}
	return out
}

// synthesizeAll runs the pipeline over items with a bounded worker pool.
// Results line up index-for-index with items; a cancelled context leaves the
// remainder nil.
func (d *Daemon) synthesizeAll(ctx context.Context, items []pocket.Item) []*article.Document {
	docs := make([]*article.Document, len(items))
	if len(items) == 0 {
		return docs
	}

	workers := d.opts.Workers
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				docs[i] = d.pipeline.Synthesize(ctx, items[i].URL())
			}
		}()
	}

dispatch:
	for i := range items {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	return docs
}

// pushReadState archives locally-read items on the service, tags them, and
// moves them to the device trash. A failed archive call leaves everything in
// place for the next cycle.
func (d *Daemon) pushReadState(ctx context.Context) {
	ids := d.store.ReadyForRemoteArchive()
	if len(ids) == 0 {
		return
	}

	if err := d.client.Archive(ctx, ids); err != nil {
		d.log.Warn("remote archive failed, will retry", "items", len(ids), "error", err)
		return
	}
	for _, id := range ids {
		if err := d.client.AddTags(ctx, id, []string{SyncTag}); err != nil {
			d.log.Warn("tagging archived item failed", "id", id, "error", err)
		}
	}
	d.store.ClearRead()
	d.log.Info("archived read items", "count", len(ids))
}
