package store

import (
	"sort"

	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/registry"
)

type memEntry struct {
	value  []byte
	handle registry.Handle
	hlc    uint64
}

type memPeer struct {
	id       peerid.ID
	bookmark uint64
}

// MemoryBackend is a map-backed Backend, the default for tests and for
// embedding the engine without a SQLite dependency.
type MemoryBackend struct {
	hasMeta     bool
	localHandle registry.Handle
	peers       map[registry.Handle]memPeer
	cs          map[registry.Handle][]byte
	entries     map[string]memEntry       // key -> entry
	byVersion   map[registry.Handle]map[uint64]string // handle -> hlc -> key
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		peers:     make(map[registry.Handle]memPeer),
		cs:        make(map[registry.Handle][]byte),
		entries:   make(map[string]memEntry),
		byVersion: make(map[registry.Handle]map[uint64]string),
	}
}

func (m *MemoryBackend) ReadMetadata() (registry.Handle, bool, error) {
	return m.localHandle, m.hasMeta, nil
}

func (m *MemoryBackend) WriteMetadata(localHandle registry.Handle) error {
	m.localHandle = localHandle
	m.hasMeta = true
	return nil
}

func (m *MemoryBackend) UpsertPeer(handle registry.Handle, id peerid.ID, bookmark uint64) error {
	m.peers[handle] = memPeer{id: peerid.FromBytes(id), bookmark: bookmark}
	return nil
}

func (m *MemoryBackend) LoadPeers() ([]PeerRow, error) {
	out := make([]PeerRow, 0, len(m.peers))
	for h, p := range m.peers {
		out = append(out, PeerRow{Handle: h, ID: p.id, Bookmark: p.bookmark})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

func (m *MemoryBackend) LoadCS(handle registry.Handle) ([]byte, bool, error) {
	data, ok := m.cs[handle]
	return data, ok, nil
}

func (m *MemoryBackend) StoreCS(handle registry.Handle, data []byte) error {
	m.cs[handle] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) UpsertEntry(key, value []byte, handle registry.Handle, hlc uint64) error {
	k := string(key)
	if old, ok := m.entries[k]; ok {
		if byH, ok := m.byVersion[old.handle]; ok {
			delete(byH, old.hlc)
		}
	}
	m.entries[k] = memEntry{value: append([]byte(nil), value...), handle: handle, hlc: hlc}
	byH, ok := m.byVersion[handle]
	if !ok {
		byH = make(map[uint64]string)
		m.byVersion[handle] = byH
	}
	byH[hlc] = k
	return nil
}

func (m *MemoryBackend) DeleteEntry(key []byte) error {
	k := string(key)
	if old, ok := m.entries[k]; ok {
		if byH, ok := m.byVersion[old.handle]; ok {
			delete(byH, old.hlc)
		}
		delete(m.entries, k)
	}
	return nil
}

func (m *MemoryBackend) LookupByVersion(handle registry.Handle, hlc uint64) ([]byte, bool, error) {
	byH, ok := m.byVersion[handle]
	if !ok {
		return nil, false, nil
	}
	k, ok := byH[hlc]
	if !ok {
		return nil, false, nil
	}
	return []byte(k), true, nil
}

func (m *MemoryBackend) IterateEntries(fn func(key, value []byte, handle registry.Handle, hlc uint64) error) error {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := m.entries[k]
		if err := fn([]byte(k), e.value, e.handle, e.hlc); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

var _ Backend = (*MemoryBackend)(nil)
