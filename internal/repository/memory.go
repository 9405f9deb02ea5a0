package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rpattn/fieldgate/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore keeps schemas, definitions and change logs in process memory.
// It backs the "memory" storage driver and the package tests elsewhere in the
// module.
type MemoryStore struct {
	mu          sync.Mutex
	schemas     map[string]domain.DocumentSchema
	definitions map[string]domain.WorkflowDefinition
	logs        []domain.ChangeLogEntry
	now         func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schemas:     make(map[string]domain.DocumentSchema),
		definitions: make(map[string]domain.WorkflowDefinition),
		now:         time.Now,
	}
}

// Schemas exposes the store as a DocumentSchemaRepository.
func (s *MemoryStore) Schemas() DocumentSchemaRepository { return memorySchemas{s} }

// Definitions exposes the store as a WorkflowDefinitionRepository.
func (s *MemoryStore) Definitions() WorkflowDefinitionRepository { return memoryDefinitions{s} }

// ChangeLogs exposes the store as a ChangeLogRepository.
func (s *MemoryStore) ChangeLogs() ChangeLogRepository { return memoryChangeLogs{s} }

type memorySchemas struct{ s *MemoryStore }

func (m memorySchemas) Upsert(_ context.Context, schema domain.DocumentSchema) (domain.DocumentSchema, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	now := m.s.now()
	if existing, ok := m.s.schemas[schema.Name]; ok {
		schema.ID = existing.ID
		schema.CreatedAt = existing.CreatedAt
	} else {
		if schema.ID == uuid.Nil {
			schema.ID = uuid.New()
		}
		schema.CreatedAt = now
	}
	schema.UpdatedAt = now
	schema = cloneSchema(schema)
	m.s.schemas[schema.Name] = schema
	return cloneSchema(schema), nil
}

func (m memorySchemas) GetByName(_ context.Context, name string) (domain.DocumentSchema, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	schema, ok := m.s.schemas[name]
	if !ok {
		return domain.DocumentSchema{}, fmt.Errorf("document schema %s: %w", name, domain.ErrNotFound)
	}
	return cloneSchema(schema), nil
}

func (m memorySchemas) GetByNames(_ context.Context, names []string) ([]domain.DocumentSchema, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	result := []domain.DocumentSchema{}
	for _, name := range names {
		if schema, ok := m.s.schemas[name]; ok {
			result = append(result, cloneSchema(schema))
		}
	}
	return result, nil
}

func (m memorySchemas) List(_ context.Context) ([]domain.DocumentSchema, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	result := make([]domain.DocumentSchema, 0, len(m.s.schemas))
	for _, schema := range m.s.schemas {
		result = append(result, cloneSchema(schema))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type memoryDefinitions struct{ s *MemoryStore }

func (m memoryDefinitions) Save(_ context.Context, def domain.WorkflowDefinition) (domain.WorkflowDefinition, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	now := m.s.now()
	if def.IsActive {
		for name, other := range m.s.definitions {
			if name != def.Name && other.IsActive && other.DocumentType == def.DocumentType {
				other.IsActive = false
				other.UpdatedAt = now
				m.s.definitions[name] = other
			}
		}
	}

	if existing, ok := m.s.definitions[def.Name]; ok {
		def.ID = existing.ID
		def.CreatedAt = existing.CreatedAt
	} else {
		if def.ID == uuid.Nil {
			def.ID = uuid.New()
		}
		def.CreatedAt = now
	}
	def.UpdatedAt = now
	def = cloneDefinition(def)
	m.s.definitions[def.Name] = def
	return cloneDefinition(def), nil
}

func (m memoryDefinitions) GetByName(_ context.Context, name string) (domain.WorkflowDefinition, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	def, ok := m.s.definitions[name]
	if !ok {
		return domain.WorkflowDefinition{}, fmt.Errorf("workflow definition %s: %w", name, domain.ErrNotFound)
	}
	return cloneDefinition(def), nil
}

func (m memoryDefinitions) GetActiveByDocumentTypes(_ context.Context, documentTypes []string) (map[string]domain.WorkflowDefinition, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	wanted := make(map[string]struct{}, len(documentTypes))
	for _, documentType := range documentTypes {
		wanted[documentType] = struct{}{}
	}

	result := make(map[string]domain.WorkflowDefinition, len(documentTypes))
	for _, def := range m.s.definitions {
		if !def.IsActive {
			continue
		}
		if _, ok := wanted[def.DocumentType]; ok {
			result[def.DocumentType] = cloneDefinition(def)
		}
	}
	return result, nil
}

func (m memoryDefinitions) List(_ context.Context) ([]domain.WorkflowDefinition, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	result := make([]domain.WorkflowDefinition, 0, len(m.s.definitions))
	for _, def := range m.s.definitions {
		result = append(result, cloneDefinition(def))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type memoryChangeLogs struct{ s *MemoryStore }

func (m memoryChangeLogs) Insert(_ context.Context, entry domain.ChangeLogEntry) (uuid.UUID, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	for _, existing := range m.s.logs {
		if existing.ID == entry.ID {
			return uuid.Nil, fmt.Errorf("change log entry %s already exists", entry.ID)
		}
	}
	m.s.logs = append(m.s.logs, cloneEntry(entry))
	return entry.ID, nil
}

func (m memoryChangeLogs) GetByID(_ context.Context, id uuid.UUID) (domain.ChangeLogEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, entry := range m.s.logs {
		if entry.ID == id {
			return cloneEntry(entry), nil
		}
	}
	return domain.ChangeLogEntry{}, fmt.Errorf("change log entry %s: %w", id, domain.ErrNotFound)
}

func (m memoryChangeLogs) List(_ context.Context, filter domain.ChangeLogFilter) ([]domain.ChangeLogEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultChangeLogLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	result := []domain.ChangeLogEntry{}
	skipped := 0
	for _, entry := range m.s.logs {
		if filter.ReferenceType != "" && entry.ReferenceType != filter.ReferenceType {
			continue
		}
		if filter.ReferenceName != "" && entry.ReferenceName != filter.ReferenceName {
			continue
		}
		if filter.WorkflowName != "" && entry.WorkflowName != filter.WorkflowName {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(result) == limit {
			break
		}
		result = append(result, cloneEntry(entry))
	}
	return result, nil
}

func (m memoryChangeLogs) Update(ctx context.Context, entry domain.ChangeLogEntry) error {
	if _, err := m.GetByID(ctx, entry.ID); err != nil {
		return err
	}
	return &domain.ImmutabilityViolation{EntryID: entry.ID, Operation: "update"}
}

func (m memoryChangeLogs) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := m.GetByID(ctx, id); err != nil {
		return err
	}
	return &domain.ImmutabilityViolation{EntryID: id, Operation: "delete"}
}

func cloneSchema(schema domain.DocumentSchema) domain.DocumentSchema {
	schema.Fields = slices.Clone(schema.Fields)
	return schema
}

func cloneDefinition(def domain.WorkflowDefinition) domain.WorkflowDefinition {
	def.TrackedFields = slices.Clone(def.TrackedFields)
	return def
}

// cloneEntry copies the value pointers so stored entries stay write-once.
func cloneEntry(entry domain.ChangeLogEntry) domain.ChangeLogEntry {
	entry.OldValue = cloneString(entry.OldValue)
	entry.NewValue = cloneString(entry.NewValue)
	return entry
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}
