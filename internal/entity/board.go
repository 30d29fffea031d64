package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-peersync/internal/apperror"
)

const (
	PlayerOne Slot = "playerOne"
	PlayerTwo Slot = "playerTwo"

	EmptyCell Slot = ""
)

const boardSize = 3

// Slot - one of the two fixed player identities, or EmptyCell for an unoccupied cell.
type Slot string

func (that Slot) IsValid() bool {
	return that == PlayerOne || that == PlayerTwo
}

// Other - returns the opposite slot.
func (that Slot) Other() Slot {
	if that == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

func ParseSlot(value string) (Slot, error) {
	slot := Slot(value)
	if !slot.IsValid() {
		return EmptyCell, fmt.Errorf("%w: %q", apperror.ErrUnknownSlot, value)
	}

	return slot, nil
}

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (that Position) IsValid() bool {
	return that.Row >= 0 && that.Row < boardSize && that.Col >= 0 && that.Col < boardSize
}

func (that Position) index() int {
	return that.Row*boardSize + that.Col
}

// Board - 3x3 grid stored row by row.
type Board [boardSize * boardSize]Slot

func (that *Board) Get(pos Position) (Slot, error) {
	if !pos.IsValid() {
		return EmptyCell, fmt.Errorf("%w: row %d col %d", apperror.ErrInvalidPosition, pos.Row, pos.Col)
	}

	return that[pos.index()], nil
}

// Set - overwrites the cell unconditionally.
func (that *Board) Set(pos Position, value Slot) error {
	if !pos.IsValid() {
		return fmt.Errorf("%w: row %d col %d", apperror.ErrInvalidPosition, pos.Row, pos.Col)
	}

	that[pos.index()] = value

	return nil
}

func (that *Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}
