package ecs

// World owns the ID pool of the scripted entities and a deferred destruction
// queue. Entities are marked during a processing pass and destroyed in one
// flush at the end of it, so the pass never mutates the set it walks.
type World struct {
	pool         *Pool
	destroyQueue []ID
}

func NewWorld() *World {
	return &World{
		pool:         NewPool(),
		destroyQueue: make([]ID, 0, 16),
	}
}

func (w *World) CreateEntity() ID {
	return w.pool.Create()
}

func (w *World) Alive(id ID) bool {
	return w.pool.Alive(id)
}

func (w *World) Count() int {
	return w.pool.Len()
}

// MarkForDestruction queues an entity for the next flush. Marking twice is a no-op.
func (w *World) MarkForDestruction(id ID) {
	for _, q := range w.destroyQueue {
		if q == id {
			return
		}
	}
	w.destroyQueue = append(w.destroyQueue, id)
}

func (w *World) Marked(id ID) bool {
	for _, q := range w.destroyQueue {
		if q == id {
			return true
		}
	}
	return false
}

// FlushDestroyQueue calls release for every queued live entity in marking
// order, then frees its ID.
func (w *World) FlushDestroyQueue(release func(ID)) {
	for _, id := range w.destroyQueue {
		if !w.pool.Alive(id) {
			continue
		}
		if release != nil {
			release(id)
		}
		w.pool.Destroy(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}

// DestroyNow frees an ID immediately, outside of a processing pass.
func (w *World) DestroyNow(id ID) {
	w.pool.Destroy(id)
}
