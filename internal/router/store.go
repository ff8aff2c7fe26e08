package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/goLoRaRouter/internal/keys"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
	"github.com/LeJamon/goLoRaRouter/internal/storage/database"
)

// DefaultCacheSize is the number of trusted channels kept in memory.
const DefaultCacheSize = 64

// Store is the client's view of persisted state channels for one router.
type Store interface {
	// StateChannelCount returns the number of trusted channels.
	StateChannelCount(ctx context.Context) (int, error)

	// StateChannel returns the trusted channel with the given id. When none
	// exists it returns the router's active trusted channel, or nil if no
	// channel has been trusted yet.
	StateChannel(ctx context.Context, id []byte) (*statechannel.StateChannel, error)

	// OverwriteStateChannel replaces the trusted record for sc's id and
	// makes it the active channel.
	OverwriteStateChannel(ctx context.Context, sc *statechannel.StateChannel) error

	// AppendStateChannel records an untrusted channel for audit. It never
	// changes the trusted records.
	AppendStateChannel(ctx context.Context, sc *statechannel.StateChannel) error
}

// RouterStore is a Store over a key-value database, scoped to one router
// identity.
type RouterStore struct {
	mu      sync.Mutex
	db      database.DB
	peer    string
	cache   *lru.Cache[string, *statechannel.StateChannel]
	count   int
	active  string
	nextSeq uint64
}

// NewRouterStore opens the store for the router identified by peer,
// loading the trusted count, active channel and audit sequence from db.
func NewRouterStore(ctx context.Context, db database.DB, peer keys.PublicKey, cacheSize int) (*RouterStore, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *statechannel.StateChannel](cacheSize)
	if err != nil {
		return nil, err
	}

	s := &RouterStore{
		db:    db,
		peer:  peer.String(),
		cache: cache,
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RouterStore) trustedPrefix() []byte {
	return []byte("sc/" + s.peer + "/")
}

func (s *RouterStore) trustedKey(id string) []byte {
	return []byte("sc/" + s.peer + "/" + id)
}

func (s *RouterStore) activeKey() []byte {
	return []byte("sca/" + s.peer)
}

func (s *RouterStore) auditPrefix() []byte {
	return []byte("scx/" + s.peer + "/")
}

func (s *RouterStore) auditKey(id string, seq uint64) []byte {
	return []byte(fmt.Sprintf("scx/%s/%s/%020d", s.peer, id, seq))
}

func (s *RouterStore) load(ctx context.Context) error {
	prefix := s.trustedPrefix()
	it, err := s.db.Iterator(ctx, prefix, database.PrefixEnd(prefix))
	if err != nil {
		return fmt.Errorf("scanning trusted channels: %w", err)
	}
	for it.Next() {
		s.count++
	}
	err = errors.Join(it.Error(), it.Close())
	if err != nil {
		return fmt.Errorf("scanning trusted channels: %w", err)
	}

	active, err := s.db.Read(ctx, s.activeKey())
	switch {
	case err == nil:
		s.active = string(active)
	case !errors.Is(err, database.ErrKeyNotFound):
		return fmt.Errorf("reading active channel: %w", err)
	}

	prefix = s.auditPrefix()
	it, err = s.db.Iterator(ctx, prefix, database.PrefixEnd(prefix))
	if err != nil {
		return fmt.Errorf("scanning channel audit log: %w", err)
	}
	for it.Next() {
		key := it.Key()
		idx := bytes.LastIndexByte(key, '/')
		seq, perr := strconv.ParseUint(string(key[idx+1:]), 10, 64)
		if perr == nil && seq >= s.nextSeq {
			s.nextSeq = seq + 1
		}
	}
	if err := errors.Join(it.Error(), it.Close()); err != nil {
		return fmt.Errorf("scanning channel audit log: %w", err)
	}
	return nil
}

// StateChannelCount implements Store.
func (s *RouterStore) StateChannelCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, nil
}

// StateChannel implements Store.
func (s *RouterStore) StateChannel(ctx context.Context, id []byte) (*statechannel.StateChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := statechannel.IDKey(id)
	sc, err := s.get(ctx, key)
	if err != nil || sc != nil {
		return sc, err
	}
	if s.active == "" || s.active == key {
		return nil, nil
	}
	return s.get(ctx, s.active)
}

func (s *RouterStore) get(ctx context.Context, id string) (*statechannel.StateChannel, error) {
	if sc, ok := s.cache.Get(id); ok {
		return sc, nil
	}
	data, err := s.db.Read(ctx, s.trustedKey(id))
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state channel %s: %w", id, err)
	}
	sc, err := statechannel.Decode(data)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, sc)
	return sc, nil
}

// OverwriteStateChannel implements Store.
func (s *RouterStore) OverwriteStateChannel(ctx context.Context, sc *statechannel.StateChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := sc.IDKey()
	existing, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	data, err := sc.Encode()
	if err != nil {
		return err
	}

	ops := []database.BatchOperation{
		{Type: database.BatchPut, Key: s.trustedKey(id), Value: data},
		{Type: database.BatchPut, Key: s.activeKey(), Value: []byte(id)},
	}
	if err := s.db.Batch(ctx, ops); err != nil {
		return fmt.Errorf("writing state channel %s: %w", id, err)
	}

	if existing == nil {
		s.count++
	}
	s.active = id
	s.cache.Add(id, sc)
	return nil
}

// AppendStateChannel implements Store.
func (s *RouterStore) AppendStateChannel(ctx context.Context, sc *statechannel.StateChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := sc.Encode()
	if err != nil {
		return err
	}
	if err := s.db.Write(ctx, s.auditKey(sc.IDKey(), s.nextSeq), data); err != nil {
		return fmt.Errorf("appending state channel %s: %w", sc.IDKey(), err)
	}
	s.nextSeq++
	return nil
}

// ActiveID returns the hex id of the active channel, or "".
func (s *RouterStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// StateChannels returns every trusted channel ordered by id.
func (s *RouterStore) StateChannels(ctx context.Context) ([]*statechannel.StateChannel, error) {
	return s.scan(ctx, s.trustedPrefix())
}

// Conflicts returns the audit log ordered by channel id, then by the order
// entries were appended.
func (s *RouterStore) Conflicts(ctx context.Context) ([]*statechannel.StateChannel, error) {
	return s.scan(ctx, s.auditPrefix())
}

// ConflictsFor returns the audit entries for one channel id.
func (s *RouterStore) ConflictsFor(ctx context.Context, id []byte) ([]*statechannel.StateChannel, error) {
	return s.scan(ctx, []byte("scx/"+s.peer+"/"+statechannel.IDKey(id)+"/"))
}

func (s *RouterStore) scan(ctx context.Context, prefix []byte) ([]*statechannel.StateChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.db.Iterator(ctx, prefix, database.PrefixEnd(prefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []*statechannel.StateChannel
	for it.Next() {
		sc, err := statechannel.Decode(it.Value())
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", it.Key(), err)
		}
		out = append(out, sc)
	}
	return out, it.Error()
}
