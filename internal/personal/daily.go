package personal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/model"
)

var ErrClosed = errors.New("store closed")

// DailyRemote is the server side of the daily task list.
type DailyRemote interface {
	ListDailyTasks(ctx context.Context) ([]model.DailyTask, error)
	CreateDailyTask(ctx context.Context, d model.DailyTask) (*model.DailyTask, error)
	UpdateDailyTask(ctx context.Context, id int64, p model.DailyTaskPatch) (*model.DailyTask, error)
	DeleteDailyTask(ctx context.Context, id int64) error
}

type dailyOp struct {
	name string
	run  func(ctx context.Context) error
	undo func()
}

// DailyTasks applies every change in memory first, then pushes it through a single worker so the
// server sees changes in the order they were made. New items carry negative ids until the server
// assigns one.
type DailyTasks struct {
	remote    DailyRemote
	cache     Cache
	key       string
	opTimeout time.Duration

	// OnError receives every failed background push, after the local change was reverted.
	OnError func(error)

	mu        sync.Mutex
	items     []model.DailyTask
	loading   bool
	nextTemp  int64
	resolved  map[int64]int64 // temp id -> server id
	cancelled map[int64]bool  // temp ids deleted before their create finished
	queue     []dailyOp
	closed    bool

	wake    chan struct{}
	pending sync.WaitGroup
	done    chan struct{}
}

func NewDailyTasks(remote DailyRemote, cache Cache, key string) *DailyTasks {
	d := &DailyTasks{
		remote:    remote,
		cache:     cache,
		key:       key,
		opTimeout: 30 * time.Second,
		loading:   true,
		resolved:  map[int64]int64{},
		cancelled: map[int64]bool{},
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go d.worker()
	return d
}

// Load reads the list from the server, falling back to the cache when the server is unreachable.
func (d *DailyTasks) Load(ctx context.Context) error {
	items, err := d.remote.ListDailyTasks(ctx)
	if err != nil {
		logger.Warn("daily.load remote failed, using cache", "err", err)
		var cached []model.DailyTask
		if cerr := d.cache.Load(d.key, &cached); cerr != nil && !errors.Is(cerr, ErrCacheMiss) {
			logger.Warn("daily.load cache failed", "err", cerr)
		}
		d.mu.Lock()
		d.items = cached
		d.loading = false
		d.mu.Unlock()
		return fmt.Errorf("load daily tasks: %w", err)
	}
	d.mu.Lock()
	d.items = items
	d.loading = false
	d.persistLocked()
	d.mu.Unlock()
	return nil
}

func (d *DailyTasks) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// Items returns a copy of the current list.
func (d *DailyTasks) Items() []model.DailyTask {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.DailyTask(nil), d.items...)
}

// Add inserts a new item with a temporary id and queues its creation.
func (d *DailyTasks) Add(text string, priority model.Priority) (model.DailyTask, error) {
	if text == "" {
		return model.DailyTask{}, model.ErrTitleRequired
	}
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return model.DailyTask{}, model.ErrInvalidPriority
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return model.DailyTask{}, ErrClosed
	}
	d.nextTemp--
	temp := d.nextTemp
	item := model.DailyTask{ID: temp, Text: text, Status: model.StatusTodo, Priority: priority, CreatedAt: time.Now()}
	d.items = append(d.items, item)
	d.persistLocked()

	d.enqueueLocked(dailyOp{
		name: "create",
		run: func(ctx context.Context) error {
			d.mu.Lock()
			if d.cancelled[temp] {
				delete(d.cancelled, temp)
				d.mu.Unlock()
				return nil
			}
			d.mu.Unlock()

			created, err := d.remote.CreateDailyTask(ctx, model.DailyTask{Text: text, Priority: priority, Status: model.StatusTodo})
			if err != nil {
				return err
			}
			d.mu.Lock()
			if d.cancelled[temp] {
				delete(d.cancelled, temp)
				d.mu.Unlock()
				return d.remote.DeleteDailyTask(ctx, created.ID)
			}
			i := itemIndex(d.items, temp)
			d.resolved[temp] = created.ID
			if i >= 0 {
				// Keep local edits made while the create was in flight; they are queued behind it.
				local := d.items[i]
				local.ID = created.ID
				local.UserID = created.UserID
				local.CreatedAt = created.CreatedAt
				d.items[i] = local
			}
			d.persistLocked()
			d.mu.Unlock()
			return nil
		},
		undo: func() {
			d.items = removeItem(d.items, temp)
		},
	})
	return item, nil
}

func (d *DailyTasks) SetStatus(id int64, status model.Status) error {
	if !status.Valid() {
		return model.ErrInvalidStatus
	}
	return d.update(id, model.DailyTaskPatch{Status: &status}, func(t *model.DailyTask) { t.Status = status })
}

func (d *DailyTasks) SetPriority(id int64, priority model.Priority) error {
	if !priority.Valid() {
		return model.ErrInvalidPriority
	}
	return d.update(id, model.DailyTaskPatch{Priority: &priority}, func(t *model.DailyTask) { t.Priority = priority })
}

func (d *DailyTasks) update(id int64, patch model.DailyTaskPatch, apply func(*model.DailyTask)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	i := d.indexLocked(id)
	if i < 0 {
		return model.NotFoundError{Kind: "daily task", ID: fmt.Sprint(id)}
	}
	prev := d.items[i]
	apply(&d.items[i])
	d.persistLocked()

	d.enqueueLocked(dailyOp{
		name: "update",
		run: func(ctx context.Context) error {
			remoteID, ok := d.remoteID(id)
			if !ok {
				return nil
			}
			got, err := d.remote.UpdateDailyTask(ctx, remoteID, patch)
			if err != nil {
				return err
			}
			d.mu.Lock()
			if j := d.indexLocked(got.ID); j >= 0 {
				d.items[j] = *got
				d.persistLocked()
			}
			d.mu.Unlock()
			return nil
		},
		undo: func() {
			current := prev.ID
			if serverID, ok := d.resolved[prev.ID]; ok {
				current = serverID
			}
			if j := d.indexLocked(current); j >= 0 {
				restored := prev
				restored.ID = current
				d.items[j] = restored
			}
		},
	})
	return nil
}

// Delete removes the item locally. An item the server never saw is not sent to the server.
func (d *DailyTasks) Delete(id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	i := d.indexLocked(id)
	if i < 0 {
		return model.NotFoundError{Kind: "daily task", ID: fmt.Sprint(id)}
	}
	prev := d.items[i]
	d.items = removeItem(d.items, prev.ID)
	d.persistLocked()

	if prev.ID < 0 {
		d.cancelled[prev.ID] = true
		return nil
	}
	d.enqueueLocked(dailyOp{
		name: "delete",
		run: func(ctx context.Context) error {
			return d.remote.DeleteDailyTask(ctx, prev.ID)
		},
		undo: func() {
			at := min(i, len(d.items))
			d.items = append(d.items[:at], append([]model.DailyTask{prev}, d.items[at:]...)...)
		},
	})
	return nil
}

// Flush waits until every queued change has been pushed or ctx ends.
func (d *DailyTasks) Flush(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting changes, drains the queue and stops the worker.
func (d *DailyTasks) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	d.signal()
	<-d.done
	return nil
}

func (d *DailyTasks) remoteID(id int64) (int64, bool) {
	if id > 0 {
		return id, true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	serverID, ok := d.resolved[id]
	return serverID, ok
}

func (d *DailyTasks) enqueueLocked(op dailyOp) {
	d.pending.Add(1)
	d.queue = append(d.queue, op)
	d.signal()
}

func (d *DailyTasks) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *DailyTasks) worker() {
	defer close(d.done)
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			closed := d.closed
			d.mu.Unlock()
			if closed {
				return
			}
			<-d.wake
			continue
		}
		op := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), d.opTimeout)
		err := op.run(ctx)
		cancel()
		if err != nil {
			logger.Warn("daily.sync failed", "op", op.name, "err", err)
			d.mu.Lock()
			op.undo()
			d.persistLocked()
			d.mu.Unlock()
			if d.OnError != nil {
				d.OnError(fmt.Errorf("%s daily task: %w", op.name, err))
			}
		}
		d.pending.Done()
	}
}

// persistLocked mirrors the synced items to the cache. Items still waiting for a server id are
// left out; their create is only held in memory.
func (d *DailyTasks) persistLocked() {
	synced := make([]model.DailyTask, 0, len(d.items))
	for _, it := range d.items {
		if it.ID > 0 {
			synced = append(synced, it)
		}
	}
	if err := d.cache.Store(d.key, synced); err != nil {
		logger.Warn("daily.cache store failed", "err", err)
	}
}

// indexLocked finds id, following a temporary id to the server id it was swapped for.
func (d *DailyTasks) indexLocked(id int64) int {
	if serverID, ok := d.resolved[id]; ok {
		id = serverID
	}
	return itemIndex(d.items, id)
}

func itemIndex(items []model.DailyTask, id int64) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func removeItem(items []model.DailyTask, id int64) []model.DailyTask {
	for i := range items {
		if items[i].ID == id {
			return append(items[:i:i], items[i+1:]...)
		}
	}
	return items
}
