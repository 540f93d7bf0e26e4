package memory

import (
	"context"
	"sync"

	"inventory-backend/domain/core/entities"
)

// RecordStore keeps catalogs, work items and lookup rows in memory.
type RecordStore struct {
	mu        sync.RWMutex
	catalogs  map[string][]entities.Catalog
	workItems map[string][]entities.WorkItem
	lookups   map[string]entities.Lookup
}

// NewRecordStore creates an empty record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		catalogs:  make(map[string][]entities.Catalog),
		workItems: make(map[string][]entities.WorkItem),
		lookups:   make(map[string]entities.Lookup),
	}
}

// PutCatalog records a catalog for its node.
func (s *RecordStore) PutCatalog(ctx context.Context, catalog entities.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs[catalog.NodeID] = append(s.catalogs[catalog.NodeID], catalog)
	return nil
}

// PutWorkItem records a poller work item for its node.
func (s *RecordStore) PutWorkItem(ctx context.Context, item entities.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workItems[item.NodeID] = append(s.workItems[item.NodeID], item)
	return nil
}

// PutLookup inserts or replaces the lookup row keyed by MAC address.
func (s *RecordStore) PutLookup(ctx context.Context, lookup entities.Lookup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups[lookup.MACAddress] = lookup
	return nil
}

func (s *RecordStore) DeleteCatalogs(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.catalogs, nodeID)
	return nil
}

func (s *RecordStore) DeleteWorkItems(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workItems, nodeID)
	return nil
}

// ClearLookups unsets NodeID on every row that references nodeID.
func (s *RecordStore) ClearLookups(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for mac, lookup := range s.lookups {
		if lookup.NodeID == nodeID {
			lookup.NodeID = ""
			s.lookups[mac] = lookup
		}
	}
	return nil
}

// Catalogs returns the catalogs recorded for nodeID.
func (s *RecordStore) Catalogs(nodeID string) []entities.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Catalog(nil), s.catalogs[nodeID]...)
}

// WorkItems returns the work items recorded for nodeID.
func (s *RecordStore) WorkItems(nodeID string) []entities.WorkItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.WorkItem(nil), s.workItems[nodeID]...)
}

// Lookup returns the row for mac.
func (s *RecordStore) Lookup(mac string) (entities.Lookup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lookup, ok := s.lookups[mac]
	return lookup, ok
}
