package model

// AllowedMatrix decides which (source type, relationship type, target type)
// triples are permitted. spec.md treats the concrete matrix as an external
// input ("it does not define the ArchiMate semantic metamodel itself...
// allowed-relationships matrix — they are inputs"); AllowedMatrix is the
// pluggable contract the Validation layer checks against, with
// DefaultAllowedMatrix providing a layer-based ArchiMate-standard default
// that a deployment may override by loading its own rule set.
type AllowedMatrix struct {
	// rules maps a relationship type to the set of (source layer, target
	// layer) pairs it may connect; the pair {anyLayer, anyLayer} admits
	// every combination. A rule set keyed by layer rather than by exact
	// type keeps the default matrix small.
	rules map[RelationshipType]map[layerPair]bool
}

type layerPair struct {
	src Layer
	tgt Layer
}

// Allows reports whether relType may connect an element of srcType to an
// element of tgtType.
func (m *AllowedMatrix) Allows(srcType ElementType, relType RelationshipType, tgtType ElementType) bool {
	srcLayer, ok := LayerOf(srcType)
	if !ok {
		return false
	}
	tgtLayer, ok := LayerOf(tgtType)
	if !ok {
		return false
	}
	pairs, ok := m.rules[relType]
	if !ok {
		return false
	}
	if pairs[layerPair{srcLayer, tgtLayer}] {
		return true
	}
	return pairs[layerPair{anyLayer, anyLayer}]
}

const anyLayer Layer = "*"

// DefaultAllowedMatrix returns the built-in ArchiMate-standard layer rule
// set: composition, aggregation, assignment, realization, association,
// serving, triggering, flow and access are permitted between any two
// layers, in either direction; influence and specialization are permitted
// within the same layer plus any pair with a motivation-layer end.
func DefaultAllowedMatrix() *AllowedMatrix {
	allLayers := []Layer{
		LayerStrategy, LayerBusiness, LayerApplication, LayerTechnology,
		LayerPhysical, LayerMotivation, LayerImplementation, LayerOther,
	}

	m := &AllowedMatrix{rules: map[RelationshipType]map[layerPair]bool{}}
	for _, rt := range []RelationshipType{
		RelComposition, RelAggregation, RelAssignment, RelAssociation,
		RelServing, RelAccess, RelTriggering, RelFlow, RelRealization,
	} {
		m.rules[rt] = map[layerPair]bool{{anyLayer, anyLayer}: true}
	}

	// Specialization and influence are restricted to same-layer pairs plus
	// motivation, which cross-cuts every layer by design.
	same := map[layerPair]bool{}
	for _, l := range allLayers {
		same[layerPair{l, l}] = true
		same[layerPair{LayerMotivation, l}] = true
		same[layerPair{l, LayerMotivation}] = true
	}
	m.rules[RelSpecialization] = same
	m.rules[RelInfluence] = same

	return m
}
