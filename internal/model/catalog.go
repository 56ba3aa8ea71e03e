package model

// Layer partitions the ArchiMate element catalog.
type Layer string

const (
	LayerStrategy       Layer = "strategy"
	LayerBusiness        Layer = "business"
	LayerApplication     Layer = "application"
	LayerTechnology      Layer = "technology"
	LayerPhysical        Layer = "physical"
	LayerMotivation      Layer = "motivation"
	LayerImplementation  Layer = "implementation"
	LayerOther           Layer = "other"
)

// ElementType is a closed catalog of ArchiMate concept types. The set below
// covers the canonical ArchiMate 3.x metamodel; archiplane treats it as an
// input per spec.md's Non-goals ("does not define the ArchiMate semantic
// metamodel itself") but must still validate against it.
type ElementType string

const (
	// Strategy
	ElementResource        ElementType = "resource"
	ElementCapability       ElementType = "capability"
	ElementCourseOfAction   ElementType = "course-of-action"
	ElementValueStream      ElementType = "value-stream"

	// Business
	ElementBusinessActor       ElementType = "business-actor"
	ElementBusinessRole        ElementType = "business-role"
	ElementBusinessCollaboration ElementType = "business-collaboration"
	ElementBusinessInterface   ElementType = "business-interface"
	ElementBusinessProcess     ElementType = "business-process"
	ElementBusinessFunction    ElementType = "business-function"
	ElementBusinessInteraction ElementType = "business-interaction"
	ElementBusinessEvent       ElementType = "business-event"
	ElementBusinessService     ElementType = "business-service"
	ElementBusinessObject      ElementType = "business-object"
	ElementContract            ElementType = "contract"
	ElementRepresentation       ElementType = "representation"
	ElementProduct              ElementType = "product"

	// Application
	ElementApplicationComponent ElementType = "application-component"
	ElementApplicationCollaboration ElementType = "application-collaboration"
	ElementApplicationInterface ElementType = "application-interface"
	ElementApplicationFunction  ElementType = "application-function"
	ElementApplicationInteraction ElementType = "application-interaction"
	ElementApplicationProcess   ElementType = "application-process"
	ElementApplicationEvent     ElementType = "application-event"
	ElementApplicationService   ElementType = "application-service"
	ElementDataObject           ElementType = "data-object"

	// Technology
	ElementNode               ElementType = "node"
	ElementDevice              ElementType = "device"
	ElementSystemSoftware      ElementType = "system-software"
	ElementTechnologyCollaboration ElementType = "technology-collaboration"
	ElementTechnologyInterface ElementType = "technology-interface"
	ElementPath                ElementType = "path"
	ElementCommunicationNetwork ElementType = "communication-network"
	ElementTechnologyFunction  ElementType = "technology-function"
	ElementTechnologyProcess   ElementType = "technology-process"
	ElementTechnologyInteraction ElementType = "technology-interaction"
	ElementTechnologyEvent     ElementType = "technology-event"
	ElementTechnologyService   ElementType = "technology-service"
	ElementArtifact            ElementType = "artifact"

	// Physical
	ElementEquipment  ElementType = "equipment"
	ElementFacility   ElementType = "facility"
	ElementDistributionNetwork ElementType = "distribution-network"
	ElementMaterial   ElementType = "material"

	// Motivation
	ElementStakeholder ElementType = "stakeholder"
	ElementDriver      ElementType = "driver"
	ElementAssessment  ElementType = "assessment"
	ElementGoal        ElementType = "goal"
	ElementOutcome     ElementType = "outcome"
	ElementPrinciple   ElementType = "principle"
	ElementRequirement ElementType = "requirement"
	ElementConstraint  ElementType = "constraint"
	ElementMeaning     ElementType = "meaning"
	ElementValue       ElementType = "value"

	// Implementation & migration
	ElementWorkPackage  ElementType = "work-package"
	ElementDeliverable  ElementType = "deliverable"
	ElementImplementationEvent ElementType = "implementation-event"
	ElementPlateau      ElementType = "plateau"
	ElementGap          ElementType = "gap"

	// Other
	ElementLocation ElementType = "location"
	ElementGrouping ElementType = "grouping"
	ElementJunction ElementType = "junction"
)

var elementLayers = map[ElementType]Layer{
	ElementResource: LayerStrategy, ElementCapability: LayerStrategy,
	ElementCourseOfAction: LayerStrategy, ElementValueStream: LayerStrategy,

	ElementBusinessActor: LayerBusiness, ElementBusinessRole: LayerBusiness,
	ElementBusinessCollaboration: LayerBusiness, ElementBusinessInterface: LayerBusiness,
	ElementBusinessProcess: LayerBusiness, ElementBusinessFunction: LayerBusiness,
	ElementBusinessInteraction: LayerBusiness, ElementBusinessEvent: LayerBusiness,
	ElementBusinessService: LayerBusiness, ElementBusinessObject: LayerBusiness,
	ElementContract: LayerBusiness, ElementRepresentation: LayerBusiness,
	ElementProduct: LayerBusiness,

	ElementApplicationComponent: LayerApplication, ElementApplicationCollaboration: LayerApplication,
	ElementApplicationInterface: LayerApplication, ElementApplicationFunction: LayerApplication,
	ElementApplicationInteraction: LayerApplication, ElementApplicationProcess: LayerApplication,
	ElementApplicationEvent: LayerApplication, ElementApplicationService: LayerApplication,
	ElementDataObject: LayerApplication,

	ElementNode: LayerTechnology, ElementDevice: LayerTechnology,
	ElementSystemSoftware: LayerTechnology, ElementTechnologyCollaboration: LayerTechnology,
	ElementTechnologyInterface: LayerTechnology, ElementPath: LayerTechnology,
	ElementCommunicationNetwork: LayerTechnology, ElementTechnologyFunction: LayerTechnology,
	ElementTechnologyProcess: LayerTechnology, ElementTechnologyInteraction: LayerTechnology,
	ElementTechnologyEvent: LayerTechnology, ElementTechnologyService: LayerTechnology,
	ElementArtifact: LayerTechnology,

	ElementEquipment: LayerPhysical, ElementFacility: LayerPhysical,
	ElementDistributionNetwork: LayerPhysical, ElementMaterial: LayerPhysical,

	ElementStakeholder: LayerMotivation, ElementDriver: LayerMotivation,
	ElementAssessment: LayerMotivation, ElementGoal: LayerMotivation,
	ElementOutcome: LayerMotivation, ElementPrinciple: LayerMotivation,
	ElementRequirement: LayerMotivation, ElementConstraint: LayerMotivation,
	ElementMeaning: LayerMotivation, ElementValue: LayerMotivation,

	ElementWorkPackage: LayerImplementation, ElementDeliverable: LayerImplementation,
	ElementImplementationEvent: LayerImplementation, ElementPlateau: LayerImplementation,
	ElementGap: LayerImplementation,

	ElementLocation: LayerOther, ElementGrouping: LayerOther, ElementJunction: LayerOther,
}

// IsValidElementType reports whether t belongs to the closed catalog.
func IsValidElementType(t ElementType) bool {
	_, ok := elementLayers[t]
	return ok
}

// LayerOf returns the layer an element type belongs to.
func LayerOf(t ElementType) (Layer, bool) {
	l, ok := elementLayers[t]
	return l, ok
}

// RelationshipType is a closed catalog of ArchiMate relationship types.
type RelationshipType string

const (
	RelComposition    RelationshipType = "composition"
	RelAggregation    RelationshipType = "aggregation"
	RelAssignment     RelationshipType = "assignment"
	RelRealization    RelationshipType = "realization"
	RelServing        RelationshipType = "serving"
	RelAccess         RelationshipType = "access"
	RelInfluence      RelationshipType = "influence"
	RelTriggering     RelationshipType = "triggering"
	RelFlow           RelationshipType = "flow"
	RelSpecialization RelationshipType = "specialization"
	RelAssociation    RelationshipType = "association"
)

var relationshipTypes = map[RelationshipType]bool{
	RelComposition: true, RelAggregation: true, RelAssignment: true,
	RelRealization: true, RelServing: true, RelAccess: true,
	RelInfluence: true, RelTriggering: true, RelFlow: true,
	RelSpecialization: true, RelAssociation: true,
}

// IsValidRelationshipType reports whether t belongs to the closed catalog.
func IsValidRelationshipType(t RelationshipType) bool {
	return relationshipTypes[t]
}

// AllowsSelfLoop reports whether a relationship of type t may have the same
// element as both source and target. Per spec.md §3, only association and
// flow permit this.
func AllowsSelfLoop(t RelationshipType) bool {
	return t == RelAssociation || t == RelFlow
}

// AccessVariant qualifies an access-relationship.
type AccessVariant string

const (
	AccessRead      AccessVariant = "read"
	AccessWrite     AccessVariant = "write"
	AccessReadWrite AccessVariant = "readwrite"
	AccessGeneric   AccessVariant = "generic"
)

// InfluenceStrength qualifies an influence-relationship, e.g. "+", "++", "-".
type InfluenceStrength string
