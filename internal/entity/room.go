package entity

import (
	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

const (
	MarkX     = "X"
	MarkO     = "O"
	EmptyCell = ""

	ModePVP = "pvp"
	ModeBot = "bot"

	DifficultyEasy = "easy"
	DifficultyHard = "hard"

	// LobbyRoomID is used when a join request carries no room id.
	LobbyRoomID = "lobby"
)

var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Marks in seat assignment order.
var Marks = [2]string{MarkX, MarkO}

// Room is the complete mutable state of one match. The registry owns the
// lock that serializes access to it; Room itself is not goroutine-safe.
type Room struct {
	ID         string           `json:"id"`
	Board      [9]string        `json:"board"`
	Turn       string           `json:"turn"`
	Seats      map[string]*Seat `json:"seats"`
	Winner     string           `json:"winner,omitempty"`
	Draw       bool             `json:"is_draw,omitempty"`
	Mode       string           `json:"mode"`
	Difficulty string           `json:"difficulty,omitempty"`
	BotMark    string           `json:"bot_mark,omitempty"`
}

func NewRoom(id string) *Room {
	return &Room{
		ID:    id,
		Turn:  MarkX,
		Mode:  ModePVP,
		Seats: make(map[string]*Seat, 2),
	}
}

// CheckBoard - returns the winning mark if a win combo is fully occupied,
// and whether the board is full.
func CheckBoard(board [9]string) (string, bool) {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a, false
		}
	}

	for _, cell := range board {
		if cell == EmptyCell {
			return EmptyCell, false
		}
	}

	return EmptyCell, true
}

func (that *Room) IsFinished() bool {
	return that.Winner != EmptyCell || that.Draw
}

// ApplyMove - validates and applies one move. This is the only place that
// mutates board, turn or outcome outside of a reset.
func (that *Room) ApplyMove(mark string, cell int) error {
	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if that.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	if cell < 0 || cell >= len(that.Board) {
		return apperror.ErrInvalidCell
	}

	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = mark

	switch winner, full := CheckBoard(that.Board); {
	case winner != EmptyCell:
		that.Winner = winner
	case full:
		that.Draw = true
	default:
		that.Turn = OtherMark(mark)
	}

	return nil
}

// ResetBoard - clears board, turn and outcome. Mode, difficulty and seats
// are left untouched.
func (that *Room) ResetBoard() {
	that.Board = [9]string{}
	that.Turn = MarkX
	that.Winner = EmptyCell
	that.Draw = false
}

// Configure - resets the room and rebuilds it for a mode-establishing join.
// Only valid while no human occupies a seat.
func (that *Room) Configure(mode, difficulty, preferredMark string) {
	that.ResetBoard()
	that.Seats = make(map[string]*Seat, 2)
	that.Mode = mode

	if mode == ModeBot {
		that.Difficulty = difficulty
		that.BotMark = OtherMark(preferredMark)
		that.Seats[that.BotMark] = NewBotSeat(difficulty)
		return
	}

	that.Difficulty = ""
	that.BotMark = ""
}

func (that *Room) HumanCount() int {
	count := 0
	for _, seat := range that.Seats {
		if seat.IsHuman() {
			count++
		}
	}
	return count
}

func OtherMark(mark string) string {
	if mark == MarkX {
		return MarkO
	}
	return MarkX
}
