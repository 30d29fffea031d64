package replication

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/entity"
)

const (
	KindGameState = "game:state"
	KindProfiles  = "profiles:context"

	EnvelopeVersion = 1
)

var (
	ErrDecode          = errors.New("failed to decode peer payload")
	ErrUnknownKind     = errors.New("unknown envelope kind")
	ErrUnknownVersion  = errors.New("unsupported envelope version")
	ErrMissingEnvelope = errors.New("envelope payload is empty")
)

// Envelope - wire frame shared by both channels. Kind selects how Payload is decoded.
type Envelope struct {
	Kind    string          `json:"kind"`
	Version int             `json:"version"`
	ID      string          `json:"id"`
	Sender  string          `json:"sender"`
	Payload json.RawMessage `json:"payload"`
}

func encodeEnvelope(kind, sender string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	data, err := json.Marshal(Envelope{
		Kind:    kind,
		Version: EnvelopeVersion,
		ID:      uuid.NewString(),
		Sender:  sender,
		Payload: body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return data, nil
}

func EncodeGameModel(sender string, model *entity.GameModel) ([]byte, error) {
	return encodeEnvelope(KindGameState, sender, model)
}

func EncodeProfiles(sender string, profiles *entity.Profiles) ([]byte, error) {
	return encodeEnvelope(KindProfiles, sender, profiles)
}

// DecodeEnvelope - parses the frame and checks version and kind. Every error wraps ErrDecode.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if envelope.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: %w %d", ErrDecode, ErrUnknownVersion, envelope.Version)
	}

	switch envelope.Kind {
	case KindGameState, KindProfiles:
	default:
		return nil, fmt.Errorf("%w: %w %q", ErrDecode, ErrUnknownKind, envelope.Kind)
	}

	if len(envelope.Payload) == 0 || string(envelope.Payload) == "null" {
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrMissingEnvelope)
	}

	return &envelope, nil
}

func (that *Envelope) GameModel() (*entity.GameModel, error) {
	if that.Kind != KindGameState {
		return nil, fmt.Errorf("%w: %w %q", ErrDecode, ErrUnknownKind, that.Kind)
	}

	var model entity.GameModel
	if err := json.Unmarshal(that.Payload, &model); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return &model, nil
}

func (that *Envelope) Profiles() (*entity.Profiles, error) {
	if that.Kind != KindProfiles {
		return nil, fmt.Errorf("%w: %w %q", ErrDecode, ErrUnknownKind, that.Kind)
	}

	var profiles entity.Profiles
	if err := json.Unmarshal(that.Payload, &profiles); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if err := profiles.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return &profiles, nil
}
