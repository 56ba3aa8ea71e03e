package bom

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// decoder turns the raw JSON of one change entry into its typed Fields.
type decoder func(raw json.RawMessage) (ChangeFields, error)

var validate = validator.New()

func simpleDecoder[T ChangeFields]() decoder {
	return func(raw json.RawMessage) (ChangeFields, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding fields: %w", err)
		}
		if err := validate.Struct(v); err != nil {
			return nil, fmt.Errorf("validating fields: %w", err)
		}
		return v, nil
	}
}

var decoders = map[Op]decoder{
	OpCreateElement:            simpleDecoder[CreateElementFields](),
	OpCreateOrGetElement:       simpleDecoder[CreateElementFields](),
	OpCreateRelationship:       simpleDecoder[CreateRelationshipFields](),
	OpCreateOrGetRelationship:  simpleDecoder[CreateRelationshipFields](),
	OpUpdateElement:            simpleDecoder[UpdateElementFields](),
	OpUpdateRelationship:       simpleDecoder[UpdateRelationshipFields](),
	OpDeleteElement:            simpleDecoder[DeleteElementFields](),
	OpDeleteRelationship:       simpleDecoder[DeleteRelationshipFields](),
	OpSetProperty:              simpleDecoder[SetPropertyFields](),
	OpMoveToFolder:             simpleDecoder[MoveToFolderFields](),
	OpCreateFolder:             simpleDecoder[CreateFolderFields](),
	OpCreateView:               simpleDecoder[CreateViewFields](),
	OpDeleteView:               simpleDecoder[DeleteViewFields](),
	OpAddToView:                simpleDecoder[AddToViewFields](),
	OpNestInView:               simpleDecoder[NestInViewFields](),
	OpAddConnectionToView:      simpleDecoder[AddConnectionToViewFields](),
	OpDeleteConnectionFromView: simpleDecoder[DeleteConnectionFromViewFields](),
	OpStyleViewObject:          simpleDecoder[StyleViewObjectFields](),
	OpStyleConnection:          simpleDecoder[StyleConnectionFields](),
	OpMoveViewObject:           simpleDecoder[MoveViewObjectFields](),
	OpCreateNote:               simpleDecoder[CreateNoteFields](),
	OpCreateGroup:              simpleDecoder[CreateGroupFields](),
}

// envelope captures the discriminator fields common to every change entry;
// the remainder of the raw JSON is re-decoded into the op-specific struct.
type envelope struct {
	Op     Op     `json:"op"`
	TempID string `json:"tempId"`
}

// DecodeChange decodes one raw change entry at the given index.
func DecodeChange(index int, raw json.RawMessage) (Change, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Change{}, fmt.Errorf("change %d: %w", index, err)
	}
	if env.Op == "" {
		return Change{}, fmt.Errorf("change %d: missing op", index)
	}
	dec, ok := decoders[env.Op]
	if !ok {
		return Change{}, fmt.Errorf("change %d: unknown op %q", index, env.Op)
	}
	fields, err := dec(raw)
	if err != nil {
		return Change{}, fmt.Errorf("change %d (%s): %w", index, env.Op, err)
	}
	return Change{Index: index, Op: env.Op, TempID: env.TempID, Fields: fields}, nil
}

// IsUpsertOp reports whether op resolves via lookup-then-create semantics.
func IsUpsertOp(op Op) bool {
	return op == OpCreateOrGetElement || op == OpCreateOrGetRelationship
}

// IsCreationOp reports whether op assigns a new real ID a tempId may bind to.
func IsCreationOp(op Op) bool {
	switch op {
	case OpCreateElement, OpCreateOrGetElement, OpCreateRelationship, OpCreateOrGetRelationship,
		OpCreateFolder, OpCreateView, OpAddToView, OpAddConnectionToView, OpCreateNote, OpCreateGroup:
		return true
	default:
		return false
	}
}
