package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newOngoingModel(turn Slot) *GameModel {
	return &GameModel{
		State:       Ongoing(),
		CurrentTurn: turn,
		Revision:    Revision(baseTime.UnixNano()),
	}
}

func TestNewGameModel(t *testing.T) {
	// When: a new model is created
	model := NewGameModel(baseTime)

	// Then: the board is empty, the game is ongoing and the turn belongs to a valid slot
	assert.Equal(t, Board{}, model.Board)
	assert.Equal(t, Ongoing(), model.State)
	assert.True(t, model.CurrentTurn.IsValid())
	assert.Equal(t, Revision(baseTime.UnixNano()), model.Revision)
}

func TestGameModel_AttemptMove(t *testing.T) {
	t.Run("Accepted move occupies the cell and flips the turn", func(t *testing.T) {
		// Given: an ongoing game where PlayerOne moves
		model := newOngoingModel(PlayerOne)
		before := model.Revision

		// When: PlayerOne plays the center
		ok := model.AttemptMove(Position{Row: 1, Col: 1}, baseTime.Add(time.Second))

		// Then: the move is accepted, the cell is taken and PlayerTwo is next
		require.True(t, ok)
		cell, err := model.Board.Get(Position{Row: 1, Col: 1})
		require.NoError(t, err)
		assert.Equal(t, PlayerOne, cell)
		assert.Equal(t, PlayerTwo, model.CurrentTurn)
		assert.Equal(t, Ongoing(), model.State)
		assert.Greater(t, model.Revision, before)
	})

	t.Run("Every empty cell accepts a move", func(t *testing.T) {
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				model := newOngoingModel(PlayerTwo)
				pos := Position{Row: row, Col: col}

				require.True(t, model.AttemptMove(pos, baseTime.Add(time.Second)))

				cell, err := model.Board.Get(pos)
				require.NoError(t, err)
				assert.Equal(t, PlayerTwo, cell)
				assert.Equal(t, PlayerOne, model.CurrentTurn)
			}
		}
	})

	t.Run("Occupied cell is rejected without changes", func(t *testing.T) {
		// Given: a game with the corner already taken
		model := newOngoingModel(PlayerOne)
		require.True(t, model.AttemptMove(Position{Row: 0, Col: 0}, baseTime.Add(time.Second)))
		snapshot := *model

		// When: PlayerTwo tries the same corner
		ok := model.AttemptMove(Position{Row: 0, Col: 0}, baseTime.Add(2*time.Second))

		// Then: the move is refused and nothing changed, revision included
		assert.False(t, ok)
		assert.Equal(t, snapshot, *model)
	})

	t.Run("Off-board position is rejected", func(t *testing.T) {
		model := newOngoingModel(PlayerOne)
		snapshot := *model

		assert.False(t, model.AttemptMove(Position{Row: 3, Col: 0}, baseTime.Add(time.Second)))
		assert.Equal(t, snapshot, *model)
	})

	t.Run("Winning move ends the game and keeps the turn", func(t *testing.T) {
		// Given: PlayerOne has two in the top row
		model := newOngoingModel(PlayerOne)
		model.Board = Board{
			PlayerOne, PlayerOne, EmptyCell,
			PlayerTwo, PlayerTwo, EmptyCell,
			EmptyCell, EmptyCell, EmptyCell,
		}

		// When: PlayerOne completes the row
		ok := model.AttemptMove(Position{Row: 0, Col: 2}, baseTime.Add(time.Second))

		// Then: PlayerOne wins and the turn does not flip
		require.True(t, ok)
		assert.Equal(t, Victory(PlayerOne), model.State)
		assert.Equal(t, PlayerOne, model.CurrentTurn)
	})

	t.Run("Filling the last cell without a line is a tie", func(t *testing.T) {
		// Given: one empty cell left and no line possible
		model := newOngoingModel(PlayerTwo)
		model.Board = Board{
			PlayerOne, PlayerTwo, PlayerOne,
			PlayerTwo, PlayerOne, PlayerTwo,
			PlayerTwo, PlayerOne, EmptyCell,
		}

		// When: PlayerTwo fills it
		ok := model.AttemptMove(Position{Row: 2, Col: 2}, baseTime.Add(time.Second))

		// Then: the game is a tie
		require.True(t, ok)
		assert.Equal(t, Tie(), model.State)
		assert.Equal(t, PlayerTwo, model.CurrentTurn)
	})

	t.Run("Moves after victory are refused", func(t *testing.T) {
		model := &GameModel{
			Board: Board{
				PlayerOne, PlayerOne, PlayerOne,
				PlayerTwo, PlayerTwo, EmptyCell,
				EmptyCell, EmptyCell, EmptyCell,
			},
			State:       Victory(PlayerOne),
			CurrentTurn: PlayerOne,
		}
		snapshot := *model

		assert.False(t, model.AttemptMove(Position{Row: 2, Col: 2}, baseTime))
		assert.Equal(t, snapshot, *model)
	})

	t.Run("Moves after a tie are refused", func(t *testing.T) {
		model := &GameModel{State: Tie(), CurrentTurn: PlayerTwo}
		snapshot := *model

		assert.False(t, model.AttemptMove(Position{Row: 0, Col: 0}, baseTime))
		assert.Equal(t, snapshot, *model)
	})
}

func TestGameModel_Reset(t *testing.T) {
	// Given: a finished game
	model := &GameModel{
		Board: Board{
			PlayerOne, PlayerOne, PlayerOne,
			PlayerTwo, PlayerTwo, EmptyCell,
			EmptyCell, EmptyCell, EmptyCell,
		},
		State:       Victory(PlayerOne),
		CurrentTurn: PlayerOne,
		Revision:    Revision(baseTime.UnixNano()),
	}

	// When: the game is reset several times with the same clock reading
	seen := map[Slot]bool{}
	prev := model.Revision
	for i := 0; i < 64; i++ {
		model.Reset(baseTime)

		// Then: each reset yields an empty ongoing game with a strictly newer revision
		assert.Equal(t, Board{}, model.Board)
		assert.Equal(t, Ongoing(), model.State)
		assert.Greater(t, model.Revision, prev)
		prev = model.Revision
		seen[model.CurrentTurn] = true
	}

	// Then: both slots get to start at some point
	assert.True(t, seen[PlayerOne])
	assert.True(t, seen[PlayerTwo])
}

func TestNextRevision(t *testing.T) {
	t.Run("Uses the wall clock when it moved forward", func(t *testing.T) {
		assert.Equal(t, Revision(baseTime.UnixNano()), NextRevision(10, baseTime))
	})

	t.Run("Steps past the previous revision when the clock stalls or goes back", func(t *testing.T) {
		prev := Revision(baseTime.UnixNano())
		assert.Equal(t, prev+1, NextRevision(prev, baseTime))
		assert.Equal(t, prev+1, NextRevision(prev, baseTime.Add(-time.Hour)))
	})
}

func TestDetermineGameState(t *testing.T) {
	t.Run("Top row wins", func(t *testing.T) {
		board := Board{
			PlayerOne, PlayerOne, PlayerOne,
			EmptyCell, EmptyCell, EmptyCell,
			EmptyCell, EmptyCell, EmptyCell,
		}
		assert.Equal(t, Victory(PlayerOne), DetermineGameState(&board))
	})

	t.Run("Column and anti-diagonal win", func(t *testing.T) {
		column := Board{
			EmptyCell, PlayerTwo, EmptyCell,
			EmptyCell, PlayerTwo, EmptyCell,
			EmptyCell, PlayerTwo, EmptyCell,
		}
		assert.Equal(t, Victory(PlayerTwo), DetermineGameState(&column))

		diagonal := Board{
			EmptyCell, EmptyCell, PlayerOne,
			EmptyCell, PlayerOne, EmptyCell,
			PlayerOne, EmptyCell, EmptyCell,
		}
		assert.Equal(t, Victory(PlayerOne), DetermineGameState(&diagonal))
	})

	t.Run("Full board without a line is a tie", func(t *testing.T) {
		board := Board{
			PlayerOne, PlayerTwo, PlayerOne,
			PlayerTwo, PlayerOne, PlayerTwo,
			PlayerTwo, PlayerOne, PlayerTwo,
		}
		assert.Equal(t, Tie(), DetermineGameState(&board))
	})

	t.Run("First complete line in enumeration order wins", func(t *testing.T) {
		// Given: a board where both the top and the bottom row are complete
		board := Board{
			PlayerOne, PlayerOne, PlayerOne,
			EmptyCell, EmptyCell, EmptyCell,
			PlayerTwo, PlayerTwo, PlayerTwo,
		}

		// Then: the top row is found first
		assert.Equal(t, Victory(PlayerOne), DetermineGameState(&board))
	})

	t.Run("Partial board is ongoing", func(t *testing.T) {
		board := Board{
			PlayerOne, PlayerTwo, EmptyCell,
			EmptyCell, PlayerOne, EmptyCell,
			EmptyCell, EmptyCell, PlayerTwo,
		}
		assert.Equal(t, Ongoing(), DetermineGameState(&board))
	})
}

func TestGameModel_Validate(t *testing.T) {
	t.Run("Consistent model passes", func(t *testing.T) {
		model := NewGameModel(baseTime)
		require.True(t, model.AttemptMove(Position{Row: 0, Col: 0}, baseTime.Add(time.Second)))

		assert.NoError(t, model.Validate())
	})

	t.Run("Unknown slot in a cell fails", func(t *testing.T) {
		model := newOngoingModel(PlayerOne)
		model.Board[4] = "playerThree"

		assert.Error(t, model.Validate())
	})

	t.Run("Missing turn fails", func(t *testing.T) {
		model := newOngoingModel(EmptyCell)

		assert.ErrorIs(t, model.Validate(), ErrInvalidTurn)
	})

	t.Run("Unknown status fails", func(t *testing.T) {
		model := newOngoingModel(PlayerOne)
		model.State = GameState{Status: "paused"}

		assert.ErrorIs(t, model.Validate(), ErrUnknownGameStatus)
	})

	t.Run("State that contradicts the board fails", func(t *testing.T) {
		model := newOngoingModel(PlayerOne)
		model.State = Victory(PlayerTwo)

		assert.ErrorIs(t, model.Validate(), ErrInconsistentState)
	})
}
