package backup

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memBlobStore is an in-memory BlobStore for tests.
type memBlobStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	uploadErr error
	removeErr error
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (m *memBlobStore) Upload(ctx context.Context, key string, data []byte) error {
	if err := validateBlobKey(key); err != nil {
		return err
	}
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, NewNotFoundError(fmt.Sprintf("blob %s not found", key), nil)
	}
	return data, nil
}

func (m *memBlobStore) Remove(ctx context.Context, keys ...string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.blobs, key)
	}
	return nil
}

func (m *memBlobStore) Provider() string { return "memory" }

func (m *memBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// memMetadataStore is an in-memory MetadataStore for tests.
type memMetadataStore struct {
	mu          sync.Mutex
	records     []*SnapshotRecord
	schedules   map[string]*ScheduleConfig
	listErr     error
	scheduleErr error
}

func newMemMetadataStore() *memMetadataStore {
	return &memMetadataStore{schedules: make(map[string]*ScheduleConfig)}
}

func (m *memMetadataStore) InsertSnapshotRecord(ctx context.Context, record *SnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.records = append(m.records, &copied)
	return nil
}

func (m *memMetadataStore) UpdateSnapshotRecord(ctx context.Context, record *SnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.records {
		if existing.ID == record.ID && existing.OrganizationID == record.OrganizationID {
			copied := *record
			m.records[i] = &copied
			return nil
		}
	}
	return NewNotFoundError(fmt.Sprintf("snapshot record %s not found", record.ID), nil)
}

func (m *memMetadataStore) GetSnapshotRecord(ctx context.Context, id, organizationID string) (*SnapshotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.ID == id && record.OrganizationID == organizationID {
			copied := *record
			return &copied, nil
		}
	}
	return nil, NewNotFoundError(fmt.Sprintf("snapshot record %s not found", id), nil)
}

func (m *memMetadataStore) ListSnapshotRecords(ctx context.Context, organizationID string, filter RecordFilter) ([]*SnapshotRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*SnapshotRecord
	for _, record := range m.records {
		if record.OrganizationID != organizationID {
			continue
		}
		if filter.Status != nil && record.Status != *filter.Status {
			continue
		}
		copied := *record
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (m *memMetadataStore) DeleteSnapshotRecord(ctx context.Context, id, organizationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, record := range m.records {
		if record.ID == id && record.OrganizationID == organizationID {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return NewNotFoundError(fmt.Sprintf("snapshot record %s not found", id), nil)
}

func (m *memMetadataStore) UpsertScheduleConfig(ctx context.Context, config *ScheduleConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *config
	m.schedules[config.OrganizationID] = &copied
	return nil
}

func (m *memMetadataStore) GetScheduleConfig(ctx context.Context, organizationID string) (*ScheduleConfig, error) {
	if m.scheduleErr != nil {
		return nil, m.scheduleErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	config, ok := m.schedules[organizationID]
	if !ok {
		return nil, nil
	}
	copied := *config
	return &copied, nil
}

// memTenantStore is an in-memory TenantStore for tests. Rows are keyed by
// organization so reads and writes stay tenant-scoped. It deliberately does not
// implement TableReplacer, exercising the delete-then-insert restore path.
type memTenantStore struct {
	mu         sync.Mutex
	data       map[string]map[TableName][]Row
	selectErrs map[TableName]error
	deleteErrs map[TableName]error
	insertErrs map[TableName]error
}

func newMemTenantStore() *memTenantStore {
	return &memTenantStore{
		data:       make(map[string]map[TableName][]Row),
		selectErrs: make(map[TableName]error),
		deleteErrs: make(map[TableName]error),
		insertErrs: make(map[TableName]error),
	}
}

func (m *memTenantStore) seed(organizationID string, table TableName, rows []Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[organizationID] == nil {
		m.data[organizationID] = make(map[TableName][]Row)
	}
	m.data[organizationID][table] = rows
}

func (m *memTenantStore) rows(organizationID string, table TableName) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[organizationID][table]
}

func (m *memTenantStore) SelectRows(ctx context.Context, table TableName, organizationID string) ([]Row, error) {
	if err := m.selectErrs[table]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[organizationID][table], nil
}

func (m *memTenantStore) DeleteRows(ctx context.Context, table TableName, organizationID string) error {
	if err := m.deleteErrs[table]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[organizationID] != nil {
		delete(m.data[organizationID], table)
	}
	return nil
}

func (m *memTenantStore) InsertRows(ctx context.Context, table TableName, rows []Row) error {
	if err := m.insertErrs[table]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		org, _ := row["organization_id"].(string)
		if table == TableOrganizations {
			org, _ = row["id"].(string)
		}
		if m.data[org] == nil {
			m.data[org] = make(map[TableName][]Row)
		}
		m.data[org][table] = append(m.data[org][table], row)
	}
	return nil
}

// replacingTenantStore wraps memTenantStore with a TableReplacer implementation
// so tests can confirm the transactional path is preferred.
type replacingTenantStore struct {
	*memTenantStore
	replaced []TableName
}

func (r *replacingTenantStore) ReplaceRows(ctx context.Context, table TableName, organizationID string, rows []Row) error {
	if err := r.deleteErrs[table]; err != nil {
		return err
	}
	r.mu.Lock()
	if r.data[organizationID] == nil {
		r.data[organizationID] = make(map[TableName][]Row)
	}
	r.data[organizationID][table] = rows
	r.mu.Unlock()
	r.replaced = append(r.replaced, table)
	return nil
}
