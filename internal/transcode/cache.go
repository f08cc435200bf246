package transcode

import (
	"container/list"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/sonorafm/sonora/internal/metrics"
)

// Config holds the cache's capacity and encoder settings, sourced from
// config.Config.
type Config struct {
	TranscodeDir string
	MaxRunning   int
	MaxCompleted int
	Options      Options
}

// Cache maps a request fingerprint to a shared Transcoder, guaranteeing at
// most one concurrent transcode per fingerprint and bounding how many
// running and completed instances are kept alive beyond the requests
// actively serving them.
//
// The index itself does not keep entries alive: a Transcoder disappears
// from it automatically once its reference count (retention-list holds
// plus serving requests) reaches zero. The two retention lists are each a
// strong hold in their own right.
type Cache struct {
	cfg Config
	sf  singleflight.Group

	mu             sync.Mutex
	index          map[string]*Transcoder
	running        *list.List
	completed      *list.List
	runningElems   map[string]*list.Element
	completedElems map[string]*list.Element

	nextIndex atomic.Int64
}

// NewCache builds an empty cache. cfg.MaxRunning of 0 disables transcoding:
// TranscodingEnabled reports false, and the dispatcher checks that before
// calling GetOrCreate. GetOrCreate itself does not check the capacity.
func NewCache(cfg Config) *Cache {
	return &Cache{
		cfg:            cfg,
		index:          make(map[string]*Transcoder),
		running:        list.New(),
		completed:      list.New(),
		runningElems:   make(map[string]*list.Element),
		completedElems: make(map[string]*list.Element),
	}
}

// GetOrCreate returns the live Transcoder for fingerprint, creating one if
// none exists. Concurrent calls for the same fingerprint collapse onto one
// spawn via singleflight; every caller still receives its own strong
// reference and must call Release when done with it.
func (c *Cache) GetOrCreate(fingerprint, sourcePath, targetExt string) (*Transcoder, error) {
	v, err, _ := c.sf.Do(fingerprint, func() (any, error) {
		return c.getOrCreate(fingerprint, sourcePath, targetExt)
	})
	if err != nil {
		return nil, err
	}
	t := v.(*Transcoder)
	t.acquire()
	return t, nil
}

func (c *Cache) getOrCreate(fingerprint, sourcePath, targetExt string) (*Transcoder, error) {
	c.mu.Lock()
	if t, ok := c.index[fingerprint]; ok {
		c.mu.Unlock()
		return t, nil
	}
	idx := c.nextIndex.Add(1) - 1
	outputPath := filepath.Join(c.cfg.TranscodeDir, fmt.Sprintf("TRANSCODE_%d%s", idx, targetExt))
	c.mu.Unlock()

	// Spawning the child happens outside the lock: it's the one step in
	// this path that isn't guaranteed fast.
	t, err := spawn(fingerprint, sourcePath, targetExt, outputPath, c.cfg.Options)
	if err != nil {
		return nil, err
	}
	metrics.TranscodeStartsTotal.Inc()
	t.onZero = func() { c.forget(fingerprint, t) }

	c.mu.Lock()
	c.index[fingerprint] = t
	c.mu.Unlock()

	return t, nil
}

// forget removes fingerprint from the index, but only if it still points
// at t: a newer Transcoder may already have replaced it by the time this
// one's last reference drops.
func (c *Cache) forget(fingerprint string, t *Transcoder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index[fingerprint] == t {
		delete(c.index, fingerprint)
	}
}

// Touch promotes t in the appropriate retention list: removed from
// whichever list currently holds it, then appended to the running list if
// still Running, else the completed list. Runs housekeeping afterward.
//
// Release (and the child-process teardown / file removal it can trigger)
// never runs while c.mu is held: every list mutation below only collects
// the Transcoders that dropped out of a list into toRelease, and the
// actual Release calls happen after the lock is dropped.
func (c *Cache) Touch(t *Transcoder) {
	var toRelease []*Transcoder

	c.mu.Lock()
	c.removeFromListsLocked(t, &toRelease)
	if t.IsFinished() {
		c.appendLocked(c.completed, c.completedElems, t)
	} else {
		c.appendLocked(c.running, c.runningElems, t)
	}
	c.housekeepLocked(&toRelease)
	c.mu.Unlock()

	releaseAll(toRelease)
}

// Housekeep re-applies the retention rules without touching any particular
// Transcoder: useful to call after an operation that may have changed a
// Transcoder's Running/Finished state without an explicit Touch.
func (c *Cache) Housekeep() {
	var toRelease []*Transcoder

	c.mu.Lock()
	c.housekeepLocked(&toRelease)
	c.mu.Unlock()

	releaseAll(toRelease)
}

func (c *Cache) removeFromListsLocked(t *Transcoder, toRelease *[]*Transcoder) {
	if el, ok := c.runningElems[t.Fingerprint]; ok {
		c.running.Remove(el)
		delete(c.runningElems, t.Fingerprint)
		*toRelease = append(*toRelease, t)
	}
	if el, ok := c.completedElems[t.Fingerprint]; ok {
		c.completed.Remove(el)
		delete(c.completedElems, t.Fingerprint)
		*toRelease = append(*toRelease, t)
	}
}

func (c *Cache) appendLocked(l *list.List, elems map[string]*list.Element, t *Transcoder) {
	t.acquire()
	elems[t.Fingerprint] = l.PushBack(t)
}

// housekeepLocked applies the three-step rule from the cache design: move
// finished running entries to completed (preserving arrival order), then
// truncate both lists to their configured capacities, oldest first.
// Transcoders evicted by truncation are appended to toRelease rather than
// released immediately, since the caller is still holding c.mu.
func (c *Cache) housekeepLocked(toRelease *[]*Transcoder) {
	var next *list.Element
	for el := c.running.Front(); el != nil; el = next {
		next = el.Next()
		t := el.Value.(*Transcoder)
		if !t.IsFinished() {
			continue
		}
		c.running.Remove(el)
		delete(c.runningElems, t.Fingerprint)
		// The hold transfers directly from one list to the other; no
		// Release/acquire pair, so the reference count is unaffected.
		c.completedElems[t.Fingerprint] = c.completed.PushBack(t)
	}

	for c.running.Len() > c.cfg.MaxRunning {
		c.evictFrontLocked(c.running, c.runningElems, toRelease)
	}
	for c.completed.Len() > c.cfg.MaxCompleted {
		c.evictFrontLocked(c.completed, c.completedElems, toRelease)
	}

	metrics.SetRetentionOccupancy(c.running.Len(), c.completed.Len())
}

func (c *Cache) evictFrontLocked(l *list.List, elems map[string]*list.Element, toRelease *[]*Transcoder) {
	el := l.Front()
	if el == nil {
		return
	}
	t := el.Value.(*Transcoder)
	l.Remove(el)
	delete(elems, t.Fingerprint)
	*toRelease = append(*toRelease, t)
}

// releaseAll calls Release on every Transcoder that was removed from a
// retention list, after the caller has dropped c.mu. Release can run
// onZero (which re-locks c.mu via forget) and destroy (child-process
// signal, file removal), none of which may run under the cache lock.
func releaseAll(ts []*Transcoder) {
	for _, t := range ts {
		t.Release()
	}
}

// Stats reports the current fingerprints held in each retention list, for
// operator visibility (e.g. the admin API's cache-stats endpoint).
type Stats struct {
	Running   []string
	Completed []string
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{}
	for el := c.running.Front(); el != nil; el = el.Next() {
		s.Running = append(s.Running, el.Value.(*Transcoder).Fingerprint)
	}
	for el := c.completed.Front(); el != nil; el = el.Next() {
		s.Completed = append(s.Completed, el.Value.(*Transcoder).Fingerprint)
	}
	return s
}

// TranscodingEnabled reports whether R > 0, i.e. whether the dispatcher
// should even attempt a transcode.
func (c *Cache) TranscodingEnabled() bool {
	return c.cfg.MaxRunning > 0
}

// PurgeStale removes any leftover TRANSCODE_*.* files from a previous
// instance's transcode directory. Must only be called after the listening
// socket is bound, so a genuinely still-running instance's bind fails
// first and its files are left alone.
func PurgeStale(transcodeDir string) error {
	return purgeStale(transcodeDir)
}
