package entity

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/tictactoe-peersync/internal/apperror"
)

const (
	StatusOngoing = "ongoing"
	StatusTie     = "tie"
	StatusVictory = "victory"
)

var (
	ErrUnknownGameStatus = errors.New("unknown game status")
	ErrInconsistentState = errors.New("game state does not match board")
	ErrInvalidTurn       = errors.New("invalid current turn")

	// WinLines - rows, then columns, then diagonals. The first complete line in this order decides the winner.
	WinLines = [8][3]Position{
		{{0, 0}, {0, 1}, {0, 2}},
		{{1, 0}, {1, 1}, {1, 2}},
		{{2, 0}, {2, 1}, {2, 2}},
		{{0, 0}, {1, 0}, {2, 0}},
		{{0, 1}, {1, 1}, {2, 1}},
		{{0, 2}, {1, 2}, {2, 2}},
		{{0, 0}, {1, 1}, {2, 2}},
		{{0, 2}, {1, 1}, {2, 0}},
	}
)

// Revision - unix nanoseconds of the last local mutation.
type Revision int64

// NextRevision - wall clock time, forced past prev so local mutations are strictly increasing.
func NextRevision(prev Revision, now time.Time) Revision {
	next := Revision(now.UnixNano())
	if next <= prev {
		return prev + 1
	}

	return next
}

type GameState struct {
	Status string `json:"status"`
	Winner Slot   `json:"winner,omitempty"`
}

func Ongoing() GameState {
	return GameState{Status: StatusOngoing}
}

func Tie() GameState {
	return GameState{Status: StatusTie}
}

func Victory(winner Slot) GameState {
	return GameState{Status: StatusVictory, Winner: winner}
}

func (that GameState) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that GameState) IsTerminal() bool {
	return that.Status == StatusTie || that.Status == StatusVictory
}

func (that GameState) String() string {
	if that.Status == StatusVictory {
		return fmt.Sprintf("%s(%s)", that.Status, that.Winner)
	}

	return that.Status
}

type GameModel struct {
	Board       Board     `json:"board"`
	State       GameState `json:"state"`
	CurrentTurn Slot      `json:"current_turn"`
	Revision    Revision  `json:"revision"`
}

func NewGameModel(now time.Time) *GameModel {
	model := &GameModel{}
	model.Reset(now)

	return model
}

// Reset - clears the board, picks a random starting slot and bumps the revision.
func (that *GameModel) Reset(now time.Time) {
	that.Board = Board{}
	that.State = Ongoing()
	that.CurrentTurn = randomSlot()
	that.Revision = NextRevision(that.Revision, now)
}

// AttemptMove - occupies pos with the current slot. Returns false without touching the model
// if the game is over, the position is off the board or the cell is taken.
func (that *GameModel) AttemptMove(pos Position, now time.Time) bool {
	if !that.State.IsOngoing() {
		return false
	}

	cell, err := that.Board.Get(pos)
	if err != nil || cell != EmptyCell {
		return false
	}

	_ = that.Board.Set(pos, that.CurrentTurn)

	that.State = DetermineGameState(&that.Board)
	if that.State.IsOngoing() {
		that.CurrentTurn = that.CurrentTurn.Other()
	}

	that.Revision = NextRevision(that.Revision, now)

	return true
}

// Validate - checks a model received from outside before it may replace the local one.
func (that *GameModel) Validate() error {
	for i, cell := range that.Board {
		if cell != EmptyCell && !cell.IsValid() {
			return fmt.Errorf("cell %d: %w: %q", i, apperror.ErrUnknownSlot, cell)
		}
	}

	if !that.CurrentTurn.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTurn, that.CurrentTurn)
	}

	switch that.State.Status {
	case StatusOngoing, StatusTie, StatusVictory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGameStatus, that.State.Status)
	}

	if expected := DetermineGameState(&that.Board); expected != that.State {
		return fmt.Errorf("%w: got %s, board says %s", ErrInconsistentState, that.State, expected)
	}

	return nil
}

// DetermineGameState - evaluates the win lines in fixed order, then checks for a full board.
func DetermineGameState(board *Board) GameState {
	for _, line := range WinLines {
		if winner := lineOwner(board, line); winner != EmptyCell {
			return Victory(winner)
		}
	}

	if board.IsFull() {
		return Tie()
	}

	return Ongoing()
}

func lineOwner(board *Board, line [3]Position) Slot {
	first, _ := board.Get(line[0])
	if first == EmptyCell {
		return EmptyCell
	}

	for _, pos := range line[1:] {
		if cell, _ := board.Get(pos); cell != first {
			return EmptyCell
		}
	}

	return first
}

func randomSlot() Slot {
	if rand.Intn(2) == 0 { //nolint: gosec // it's ok
		return PlayerOne
	}
	return PlayerTwo
}
