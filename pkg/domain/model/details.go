package model

import (
	"encoding/json"

	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Details is the type-specific part of a memory's metadata. Each memory type
// has exactly one implementation; the set is closed.
type Details interface {
	MemoryType() types.MemoryType
	isDetails()
}

// ConversationalDetails records an interest the child expressed
type ConversationalDetails struct {
	Trigger string `json:"trigger,omitempty"` // keyword that signalled interest
}

// LearningDetails records curiosity or a learning moment
type LearningDetails struct {
	Trigger  string `json:"trigger,omitempty"`
	Question bool   `json:"question,omitempty"`
}

// EmotionalDetails records a detected feeling
type EmotionalDetails struct {
	Emotion types.Emotion `json:"emotion"`
	Trigger string        `json:"trigger,omitempty"`
}

// RelationshipDetails records a bonding moment between Appu and the child
type RelationshipDetails struct {
	Interaction string `json:"interaction,omitempty"`
	Quote       string `json:"quote,omitempty"`
}

// VisualDetails records something the child showed on camera
type VisualDetails struct {
	Description string   `json:"description,omitempty"`
	Objects     []string `json:"objects,omitempty"`
}

// BehavioralDetails records a recurring behavior
type BehavioralDetails struct {
	Pattern string `json:"pattern,omitempty"`
}

// CulturalDetails records a festival, tradition or custom the child mentioned
type CulturalDetails struct {
	Tradition string `json:"tradition,omitempty"`
}

// PreferenceDetails records a like or dislike
type PreferenceDetails struct {
	Subject string `json:"subject,omitempty"`
	Likes   bool   `json:"likes"`
}

func (ConversationalDetails) MemoryType() types.MemoryType { return types.MemoryTypeConversational }
func (LearningDetails) MemoryType() types.MemoryType       { return types.MemoryTypeLearning }
func (EmotionalDetails) MemoryType() types.MemoryType      { return types.MemoryTypeEmotional }
func (RelationshipDetails) MemoryType() types.MemoryType   { return types.MemoryTypeRelationship }
func (VisualDetails) MemoryType() types.MemoryType         { return types.MemoryTypeVisual }
func (BehavioralDetails) MemoryType() types.MemoryType     { return types.MemoryTypeBehavioral }
func (CulturalDetails) MemoryType() types.MemoryType       { return types.MemoryTypeCultural }
func (PreferenceDetails) MemoryType() types.MemoryType     { return types.MemoryTypePreference }

func (ConversationalDetails) isDetails() {}
func (LearningDetails) isDetails()       {}
func (EmotionalDetails) isDetails()      {}
func (RelationshipDetails) isDetails()   {}
func (VisualDetails) isDetails()         {}
func (BehavioralDetails) isDetails()     {}
func (CulturalDetails) isDetails()       {}
func (PreferenceDetails) isDetails()     {}

// EncodeDetails serializes d for storage. nil encodes to nil.
func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode memory details", goerr.V("type", d.MemoryType()))
	}
	return data, nil
}

// DecodeDetails restores the Details variant for memory type t. Empty data
// decodes to nil.
func DecodeDetails(t types.MemoryType, data []byte) (Details, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var (
		d   Details
		err error
	)
	switch t {
	case types.MemoryTypeConversational:
		var v ConversationalDetails
		err = json.Unmarshal(data, &v)
		d = v
	case types.MemoryTypeLearning:
		var v LearningDetails
		err = json.Unmarshal(data, &v)
		d = v
	case types.MemoryTypeEmotional:
		var v EmotionalDetails
		err = json.Unmarshal(data, &v)
		d = v
	case types.MemoryTypeRelationship:
		var v RelationshipDetails
		err = json.Unmarshal(data, &v)
		d = v
	case types.MemoryTypeVisual:
		var v VisualDetails
		err = json.Unmarshal(data, &v)
		d = v
	case types.MemoryTypeBehavioral:
		var v BehavioralDetails
		err = json.Unmarshal(data, &v)
		d = v
	case types.MemoryTypeCultural:
		var v CulturalDetails
		err = json.Unmarshal(data, &v)
		d = v
	case types.MemoryTypePreference:
		var v PreferenceDetails
		err = json.Unmarshal(data, &v)
		d = v
	default:
		return nil, goerr.Wrap(ErrInvalidMemory, "unknown memory type for details", goerr.V("type", t))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode memory details", goerr.V("type", t))
	}
	return d, nil
}
