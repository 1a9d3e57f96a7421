package bot

import (
	"errors"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

var (
	ErrNoBotSeat        = errors.New("room has no bot seat")
	ErrNoAvailableMoves = errors.New("no available moves")
)

// ChooseCell - picks the bot's next cell for a room whose turn belongs to
// the bot. The board is read only; applying the move is the caller's job.
func ChooseCell(room *entity.Room) (int, error) {
	if room.Mode != entity.ModeBot || room.BotMark == entity.EmptyCell {
		return 0, ErrNoBotSeat
	}

	cells := emptyCells(room.Board)
	if len(cells) == 0 {
		return 0, ErrNoAvailableMoves
	}

	if room.Difficulty == entity.DifficultyHard {
		return bestCell(room.Board, room.BotMark), nil
	}

	return cells[rand.Intn(len(cells))], nil //nolint: gosec // not a security boundary
}

func emptyCells(board [9]string) []int {
	cells := make([]int, 0, len(board))
	for i, cell := range board {
		if cell == entity.EmptyCell {
			cells = append(cells, i)
		}
	}
	return cells
}

// bestCell - exhaustive minimax over the remaining empty cells. The search
// space is at most 9!, so no pruning or memoization is needed. Ties go to
// the lowest cell index, which keeps the choice deterministic for a fixed
// board.
func bestCell(board [9]string, botMark string) int {
	bestScore := -100
	best := -1

	for cell := range board {
		if board[cell] != entity.EmptyCell {
			continue
		}

		board[cell] = botMark
		score := minimax(board, entity.OtherMark(botMark), botMark, 1)
		board[cell] = entity.EmptyCell

		if score > bestScore {
			bestScore = score
			best = cell
		}
	}

	return best
}

// minimax - scores a position from the bot's point of view: 10-depth for a
// bot win, depth-10 for an opponent win, 0 for a full board. The board is
// an array value, so every call works on its own copy and sibling branches
// never alias.
func minimax(board [9]string, turn, botMark string, depth int) int {
	switch winner, full := entity.CheckBoard(board); {
	case winner == botMark:
		return 10 - depth
	case winner != entity.EmptyCell:
		return depth - 10
	case full:
		return 0
	}

	maximizing := turn == botMark

	best := 100
	if maximizing {
		best = -100
	}

	for cell := range board {
		if board[cell] != entity.EmptyCell {
			continue
		}

		board[cell] = turn
		score := minimax(board, entity.OtherMark(turn), botMark, depth+1)
		board[cell] = entity.EmptyCell

		if maximizing && score > best {
			best = score
		}
		if !maximizing && score < best {
			best = score
		}
	}

	return best
}
