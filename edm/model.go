// Minimal entity data model consumed by the reader: named types, navigation sources
// and the built-in core model.
package edm

import (
	"strings"
	"sync"
)

type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindComplex
	KindEntity
	KindCollection
)

// Type is any model type.
type Type interface {
	// Qualified name such as "Edm.String" or "NS.Customer". Collections are named
	// "Collection(<element name>)".
	FullName() string
	Kind() TypeKind
}

// Returns true for entity and complex types.
func IsStructured(typ Type) bool {
	return typ != nil && (typ.Kind() == KindEntity || typ.Kind() == KindComplex)
}

type PrimitiveType struct {
	name string
}

func (primitive *PrimitiveType) FullName() string { return "Edm." + primitive.name }

func (primitive *PrimitiveType) Kind() TypeKind { return KindPrimitive }

// StructuredType is an entity or complex type.
type StructuredType struct {
	Namespace  string
	Name       string
	IsEntity   bool
	BaseType   *StructuredType
	Properties map[string]Type
}

func (structured *StructuredType) FullName() string {
	return structured.Namespace + "." + structured.Name
}

func (structured *StructuredType) Kind() TypeKind {
	if structured.IsEntity {
		return KindEntity
	}
	return KindComplex
}

// Returns true if structured is other or derives from it.
func (structured *StructuredType) IsAssignableTo(other *StructuredType) bool {
	for current := structured; current != nil; current = current.BaseType {
		if current == other {
			return true
		}
	}
	return false
}

// Looks up a declared property, including inherited ones.
func (structured *StructuredType) Property(name string) (Type, bool) {
	for current := structured; current != nil; current = current.BaseType {
		if propertyType, ok := current.Properties[name]; ok {
			return propertyType, true
		}
	}
	return nil, false
}

type CollectionType struct {
	Element Type
}

func (collection *CollectionType) FullName() string {
	return "Collection(" + collection.Element.FullName() + ")"
}

func (collection *CollectionType) Kind() TypeKind { return KindCollection }

// Returns a collection type of element.
func CollectionOf(element Type) *CollectionType {
	return &CollectionType{Element: element}
}

// NavigationSource is an entity set or singleton.
type NavigationSource interface {
	Name() string
	EntityType() Type
}

type EntitySet struct {
	name       string
	entityType *StructuredType
}

func (entitySet *EntitySet) Name() string { return entitySet.name }

func (entitySet *EntitySet) EntityType() Type { return entitySet.entityType }

// Model is the metadata a reader consults for typed reads.
type Model interface {
	// Returns the type with the qualified name, or nil.
	FindType(fullName string) Type
	// Returns the navigation source with the name, or nil.
	FindNavigationSource(name string) NavigationSource
	// Whether this is the built-in core model rather than a user model.
	IsCore() bool
}

// Returns true if model is a real user-supplied model.
func IsUserModel(model Model) bool {
	return model != nil && !model.IsCore()
}

var primitiveNames = []string{
	"Binary", "Boolean", "Byte", "Date", "DateTimeOffset", "Decimal", "Double",
	"Duration", "Guid", "Int16", "Int32", "Int64", "SByte", "Single", "Stream",
	"String", "TimeOfDay",
}

type coreModel struct {
	primitives map[string]*PrimitiveType
}

var (
	coreOnce     sync.Once
	coreInstance *coreModel
)

// Returns the core model, which only knows the Edm primitive types.
func CoreModel() Model {
	coreOnce.Do(func() {
		coreInstance = &coreModel{primitives: make(map[string]*PrimitiveType)}
		for _, name := range primitiveNames {
			coreInstance.primitives["Edm."+name] = &PrimitiveType{name: name}
		}
	})
	return coreInstance
}

// Returns the primitive type with the qualified name, e.g. "Edm.Int32", or nil.
func Primitive(fullName string) Type {
	return CoreModel().FindType(fullName)
}

func (core *coreModel) FindType(fullName string) Type {
	if primitive, ok := core.primitives[fullName]; ok {
		return primitive
	}
	if inner, ok := collectionElementName(fullName); ok {
		if element := core.FindType(inner); element != nil {
			return CollectionOf(element)
		}
	}
	return nil
}

func (core *coreModel) FindNavigationSource(string) NavigationSource { return nil }

func (core *coreModel) IsCore() bool { return true }

// UserModel is a model built in code. Primitive types come from the core model.
type UserModel struct {
	types             map[string]Type
	navigationSources map[string]NavigationSource
}

func NewModel() *UserModel {
	return &UserModel{
		types:             make(map[string]Type),
		navigationSources: make(map[string]NavigationSource),
	}
}

// Adds a structured type and returns it for chaining.
func (model *UserModel) AddType(structured *StructuredType) *StructuredType {
	if structured.Properties == nil {
		structured.Properties = make(map[string]Type)
	}
	model.types[structured.FullName()] = structured
	return structured
}

// Adds an entity set of entityType.
func (model *UserModel) AddEntitySet(name string, entityType *StructuredType) *EntitySet {
	entitySet := &EntitySet{name: name, entityType: entityType}
	model.navigationSources[name] = entitySet
	return entitySet
}

func (model *UserModel) FindType(fullName string) Type {
	if found, ok := model.types[fullName]; ok {
		return found
	}
	if inner, ok := collectionElementName(fullName); ok {
		if element := model.FindType(inner); element != nil {
			return CollectionOf(element)
		}
		return nil
	}
	return CoreModel().FindType(fullName)
}

func (model *UserModel) FindNavigationSource(name string) NavigationSource {
	return model.navigationSources[name]
}

func (model *UserModel) IsCore() bool { return false }

func collectionElementName(fullName string) (string, bool) {
	if strings.HasPrefix(fullName, "Collection(") && strings.HasSuffix(fullName, ")") {
		return fullName[len("Collection(") : len(fullName)-1], true
	}
	return "", false
}
