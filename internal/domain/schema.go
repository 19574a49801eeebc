package domain

// FieldType represents the declared type of a schema field.
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInteger   FieldType = "integer"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBoolean   FieldType = "boolean"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeJSON      FieldType = "json"
	// FieldTypeReference holds the id of an entity of another type. The
	// relationship entry for the field names the target type and, when a
	// reverse lookup is wanted, a back-reference field.
	FieldTypeReference FieldType = "reference"
)

// FieldDefinition describes one declared field of an entity type.
type FieldDefinition struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Relationship declares a forward reference from a field to a target entity
// type. Backref, when non-empty, names the field under which matching source
// entities are attached to a fetched target.
type Relationship struct {
	TargetType string `json:"targetType"`
	Backref    string `json:"backref,omitempty"`
}

// Schema is the slice of an entity type definition this engine consumes:
// which verbs exist, which are disabled, how fields relate to other types,
// and what fields are declared. The definition language itself is owned by a
// separate registry service.
type Schema struct {
	DeclaredVerbs []string                `json:"declaredVerbs,omitempty"`
	DisabledVerbs []string                `json:"disabledVerbs,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Fields        []FieldDefinition       `json:"fields,omitempty"`
}

// Declares reports whether the verb is declared on the schema.
func (s Schema) Declares(verb string) bool {
	for _, v := range s.DeclaredVerbs {
		if v == verb {
			return true
		}
	}
	return false
}

// Disabled reports whether the verb is in the schema's disabled set.
func (s Schema) Disabled(verb string) bool {
	for _, v := range s.DisabledVerbs {
		if v == verb {
			return true
		}
	}
	return false
}

// Field returns the declared field definition by name.
func (s Schema) Field(name string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// SchemaRegistry is the injected schema collaborator. A missing registration
// is not an error; validation is simply skipped for that type.
type SchemaRegistry interface {
	GetSchema(entityType string) (Schema, bool)
	Types() []string
}

// Registry is an in-memory SchemaRegistry keeping registration order.
type Registry struct {
	order   []string
	schemas map[string]Schema
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Schema)}
}

// Register adds or replaces the schema for an entity type.
func (r *Registry) Register(entityType string, schema Schema) {
	if _, exists := r.schemas[entityType]; !exists {
		r.order = append(r.order, entityType)
	}
	r.schemas[entityType] = schema
}

// GetSchema returns the schema registered for the entity type.
func (r *Registry) GetSchema(entityType string) (Schema, bool) {
	s, ok := r.schemas[entityType]
	return s, ok
}

// Types returns registered type names in registration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
