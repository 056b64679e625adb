package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/terraconstructs/iamctl/pkg/notify"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"go.uber.org/zap"
)

// Collection is the CRUD surface of one server-backed resource type.
// R is the record type, C the creation payload and U the partial update.
type Collection[R, C, U any] interface {
	List(ctx context.Context) ([]R, error)
	Get(ctx context.Context, id string) (*R, error)
	Create(ctx context.Context, input C) (*R, error)
	Update(ctx context.Context, id string, input U) (*R, error)
	Delete(ctx context.Context, id string) error
}

// ResourceState is the cached collection plus the selected record.
type ResourceState[R any] struct {
	Items     []R
	Current   *R
	IsLoading bool
	Error     string
}

// Resource keeps a local copy of a server collection. Local state changes
// only after the server confirms a mutation, so there is nothing to roll back.
// Fetches are tagged with a counter and a response older than the latest
// issued fetch of the same slot is discarded.
type Resource[R, C, U any] struct {
	name     string
	api      Collection[R, C, U]
	idOf     func(R) string
	notifier notify.Notifier
	logger   *zap.Logger

	state      *observable[ResourceState[R]]
	listSeq    atomic.Uint64
	currentSeq atomic.Uint64
}

// NewResource creates a resource store. name is the singular noun used in
// notifications ("user", "role").
func NewResource[R, C, U any](name string, api Collection[R, C, U], idOf func(R) string, opts ...Option) *Resource[R, C, U] {
	o := applyOptions(opts)
	return &Resource[R, C, U]{
		name:     name,
		api:      api,
		idOf:     idOf,
		notifier: o.notifier,
		logger:   o.logger.Named(name + "s"),
		state:    newObservable(ResourceState[R]{}),
	}
}

// State returns a snapshot of the store.
func (r *Resource[R, C, U]) State() ResourceState[R] {
	return r.state.get()
}

// Subscribe registers fn for state changes and returns the unsubscribe func.
func (r *Resource[R, C, U]) Subscribe(fn func(ResourceState[R])) func() {
	return r.state.subscribe(fn)
}

// Find returns the cached record with id.
func (r *Resource[R, C, U]) Find(id string) (R, bool) {
	for _, item := range r.State().Items {
		if r.idOf(item) == id {
			return item, true
		}
	}
	var zero R
	return zero, false
}

// SetCurrent selects a cached record, or clears the selection for "".
func (r *Resource[R, C, U]) SetCurrent(id string) bool {
	return r.state.update(func(st *ResourceState[R]) bool {
		if id == "" {
			st.Current = nil
			return true
		}
		for _, item := range st.Items {
			if r.idOf(item) == id {
				selected := item
				st.Current = &selected
				return true
			}
		}
		return false
	})
}

// FetchAll replaces the collection with the server's, in server order.
// Failures are recorded in State().Error, never returned.
func (r *Resource[R, C, U]) FetchAll(ctx context.Context) {
	r.fetchList(ctx, "list", r.api.List)
}

// fetchList runs a list call and replaces Items with its result.
func (r *Resource[R, C, U]) fetchList(ctx context.Context, op string, list func(context.Context) ([]R, error)) {
	seq := r.listSeq.Add(1)
	r.begin()

	items, err := list(ctx)
	r.state.update(func(st *ResourceState[R]) bool {
		if seq != r.listSeq.Load() {
			r.logger.Debug("discarding stale response", zap.String("op", op), zap.Uint64("seq", seq))
			return false
		}
		st.IsLoading = false
		if err != nil {
			st.Error = sdk.ErrorMessage(err, fmt.Sprintf("Failed to fetch %ss", r.name))
			return true
		}
		st.Items = append([]R(nil), items...)
		return true
	})
	if err != nil {
		r.logger.Warn("fetch failed", zap.String("op", op), zap.Error(err))
	}
}

// FetchByID loads one record into the Current slot.
func (r *Resource[R, C, U]) FetchByID(ctx context.Context, id string) {
	seq := r.currentSeq.Add(1)
	r.begin()

	record, err := r.api.Get(ctx, id)
	r.state.update(func(st *ResourceState[R]) bool {
		if seq != r.currentSeq.Load() {
			r.logger.Debug("discarding stale response", zap.String("op", "get"), zap.String("id", id))
			return false
		}
		st.IsLoading = false
		if err != nil {
			st.Error = sdk.ErrorMessage(err, fmt.Sprintf("Failed to fetch %s", r.name))
			return true
		}
		st.Current = record
		return true
	})
	if err != nil {
		r.logger.Warn("fetch failed", zap.String("op", "get"), zap.String("id", id), zap.Error(err))
	}
}

// Create sends input and appends the server's record to the collection.
// Errors are recorded and returned so forms can keep their input.
func (r *Resource[R, C, U]) Create(ctx context.Context, input C) (*R, error) {
	r.begin()

	record, err := r.api.Create(ctx, input)
	if err != nil {
		return nil, r.fail("create", err)
	}
	if record == nil {
		return nil, r.fail("create", &sdk.APIError{Kind: sdk.KindServer, Message: fmt.Sprintf("server returned no %s", r.name)})
	}

	created := *record
	r.state.set(func(st *ResourceState[R]) {
		items := make([]R, 0, len(st.Items)+1)
		for _, item := range st.Items {
			// the server id is authoritative; never keep two copies
			if r.idOf(item) != r.idOf(created) {
				items = append(items, item)
			}
		}
		st.Items = append(items, created)
		st.IsLoading = false
	})
	notify.Success(r.notifier, r.name+"s", fmt.Sprintf("%s created successfully", capitalize(r.name)))
	return &created, nil
}

// Update applies input and replaces the matching record in place.
func (r *Resource[R, C, U]) Update(ctx context.Context, id string, input U) (*R, error) {
	r.begin()

	record, err := r.api.Update(ctx, id, input)
	if err != nil {
		return nil, r.fail("update", err)
	}
	if record == nil {
		return nil, r.fail("update", &sdk.APIError{Kind: sdk.KindServer, Message: fmt.Sprintf("server returned no %s", r.name)})
	}

	updated := *record
	r.state.set(func(st *ResourceState[R]) {
		items := make([]R, len(st.Items))
		for i, item := range st.Items {
			if r.idOf(item) == id {
				items[i] = updated
				continue
			}
			items[i] = item
		}
		st.Items = items
		if st.Current != nil && r.idOf(*st.Current) == id {
			current := updated
			st.Current = &current
		}
		st.IsLoading = false
	})
	notify.Success(r.notifier, r.name+"s", fmt.Sprintf("%s updated successfully", capitalize(r.name)))
	return &updated, nil
}

// Delete removes the record and clears Current when it pointed at it.
func (r *Resource[R, C, U]) Delete(ctx context.Context, id string) error {
	r.begin()

	if err := r.api.Delete(ctx, id); err != nil {
		return r.fail("delete", err)
	}

	r.state.set(func(st *ResourceState[R]) {
		items := make([]R, 0, len(st.Items))
		for _, item := range st.Items {
			if r.idOf(item) != id {
				items = append(items, item)
			}
		}
		st.Items = items
		if st.Current != nil && r.idOf(*st.Current) == id {
			st.Current = nil
		}
		st.IsLoading = false
	})
	notify.Success(r.notifier, r.name+"s", fmt.Sprintf("%s deleted successfully", capitalize(r.name)))
	return nil
}

func (r *Resource[R, C, U]) begin() {
	r.state.set(func(st *ResourceState[R]) {
		st.IsLoading = true
		st.Error = ""
	})
}

// fail records a mutation failure, notifies, and returns err for the caller.
func (r *Resource[R, C, U]) fail(op string, err error) error {
	message := sdk.ErrorMessage(err, fmt.Sprintf("Failed to %s %s", op, r.name))
	r.state.set(func(st *ResourceState[R]) {
		st.IsLoading = false
		st.Error = message
	})
	if !errors.Is(err, sdk.ErrValidation) {
		r.logger.Info("mutation failed", zap.String("op", op), zap.Error(err))
	}
	notify.Error(r.notifier, r.name+"s", fmt.Sprintf("Failed to %s %s: %s", op, r.name, message))
	return err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
