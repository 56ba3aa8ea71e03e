package model

// Relationship is a directed connection between two elements.
type Relationship struct {
	ID         RelationshipID
	Type       RelationshipType
	SourceID   ElementID
	TargetID   ElementID
	Name       string
	Properties PropertyMap
	FolderID   FolderID

	// AccessType qualifies access-relationships; zero value elsewhere.
	AccessType AccessVariant
	// Strength qualifies influence-relationships; zero value elsewhere.
	Strength InfluenceStrength
}

// Clone returns a deep copy suitable for snapshotting.
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}
	c := *r
	c.Properties = r.Properties.Clone()
	return &c
}

// IdentityKey returns the duplicate-detection key for relationships: type,
// source, target, plus accessType/strength since those participate in
// relationship identity per spec.md §4.2 ("an (access-rel, read) and
// (access-rel, write) between the same pair are not duplicates").
func (r *Relationship) IdentityKey() RelationshipIdentity {
	return RelationshipIdentity{
		Type:       r.Type,
		SourceID:   r.SourceID,
		TargetID:   r.TargetID,
		AccessType: r.AccessType,
		Strength:   r.Strength,
	}
}

// RelationshipIdentity is the duplicate-detection key for relationships.
type RelationshipIdentity struct {
	Type       RelationshipType
	SourceID   ElementID
	TargetID   ElementID
	AccessType AccessVariant
	Strength   InfluenceStrength
}
