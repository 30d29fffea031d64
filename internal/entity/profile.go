package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-peersync/internal/apperror"
)

var ErrIncompleteProfiles = errors.New("profile pair is incomplete")

type Color string

const (
	ColorRed  Color = "red"
	ColorBlue Color = "blue"
)

// PlayerProfile - display identity of a slot. Profiles are identified by ColorName.
type PlayerProfile struct {
	Name      string `json:"name"`
	Color     Color  `json:"color"`
	ColorName string `json:"color_name"`
	Symbol    string `json:"symbol"`
}

func (that PlayerProfile) ID() string {
	return that.ColorName
}

func (that PlayerProfile) SameAs(other PlayerProfile) bool {
	return that.ID() == other.ID()
}

// Profiles - the pair of profiles, one per slot.
type Profiles struct {
	PlayerOne PlayerProfile `json:"playerOne"`
	PlayerTwo PlayerProfile `json:"playerTwo"`
}

func DefaultProfiles() Profiles {
	return Profiles{
		PlayerOne: PlayerProfile{Name: "Blue", Color: ColorBlue, ColorName: "Blue", Symbol: "circle"},
		PlayerTwo: PlayerProfile{Name: "Red", Color: ColorRed, ColorName: "Red", Symbol: "xmark"},
	}
}

func (that *Profiles) ProfileFor(slot Slot) (PlayerProfile, error) {
	switch slot {
	case PlayerOne:
		return that.PlayerOne, nil
	case PlayerTwo:
		return that.PlayerTwo, nil
	default:
		return PlayerProfile{}, fmt.Errorf("%w: %q", apperror.ErrUnknownSlot, slot)
	}
}

// SetName - changes the display name only; color, color name and symbol stay fixed.
func (that *Profiles) SetName(slot Slot, name string) error {
	switch slot {
	case PlayerOne:
		that.PlayerOne.Name = name
	case PlayerTwo:
		that.PlayerTwo.Name = name
	default:
		return fmt.Errorf("%w: %q", apperror.ErrUnknownSlot, slot)
	}

	return nil
}

func (that *Profiles) Validate() error {
	if that.PlayerOne.ColorName == "" || that.PlayerTwo.ColorName == "" {
		return ErrIncompleteProfiles
	}

	return nil
}
