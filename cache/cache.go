package cache

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/config"
)

// The cache holds large read-only objects, such as opening books, that
// should only be loaded once per process no matter how many solvers or
// shells ask for them.

type entry struct {
	once sync.Once
	obj  any
	err  error
}

type cache struct {
	sync.Mutex
	objects map[string]*entry
}

type loadFunc func(cfg *config.Config, key string) (any, error)

// GlobalObjectCache is our global object cache, of course.
var GlobalObjectCache *cache

var createOnce sync.Once

func (c *cache) get(cfg *config.Config, key string, loadFunc loadFunc) (any, error) {
	c.Lock()
	e, ok := c.objects[key]
	if !ok {
		e = &entry{}
		c.objects[key] = e
	}
	c.Unlock()

	loaded := false
	// concurrent callers for the same key wait here for a single load
	e.once.Do(func() {
		log.Debug().Str("key", key).Msg("loading-into-cache")
		e.obj, e.err = loadFunc(cfg, key)
		loaded = true
	})
	if e.err != nil {
		// failed loads are not kept, so a later call can try again
		c.Lock()
		if c.objects[key] == e {
			delete(c.objects, key)
		}
		c.Unlock()
		return nil, e.err
	}
	if !loaded {
		log.Debug().Str("key", key).Msg("getting-obj-from-cache")
	}
	return e.obj, nil
}

func (c *cache) remove(key string) {
	c.Lock()
	defer c.Unlock()
	delete(c.objects, key)
}

func CreateGlobalObjectCache() {
	GlobalObjectCache = &cache{objects: make(map[string]*entry)}
}

func global() *cache {
	createOnce.Do(func() {
		if GlobalObjectCache == nil {
			CreateGlobalObjectCache()
		}
	})
	return GlobalObjectCache
}

// Load returns the object cached under name, calling loadFunc to create it
// the first time.
func Load(cfg *config.Config, name string, loadFunc loadFunc) (any, error) {
	return global().get(cfg, name, loadFunc)
}

// Remove drops the object cached under name.
func Remove(name string) {
	global().remove(name)
}

// Clear drops every cached object.
func Clear() {
	c := global()
	c.Lock()
	defer c.Unlock()
	clear(c.objects)
}
