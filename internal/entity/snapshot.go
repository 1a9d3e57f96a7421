package entity

// Snapshot is the canonical room state pushed to every connection in a
// room after an accepted change. Empty cells and empty seats serialize as
// null so the payload stays loosely-typed-client friendly.
type Snapshot struct {
	Board      [9]*string      `json:"board"`
	Turn       string          `json:"turn"`
	Players    SnapshotPlayers `json:"players"`
	Winner     *string         `json:"winner"`
	IsDraw     bool            `json:"isDraw"`
	Mode       string          `json:"mode"`
	Difficulty string          `json:"difficulty,omitempty"`
}

type SnapshotPlayers struct {
	X *SnapshotPlayer `json:"X"`
	O *SnapshotPlayer `json:"O"`
}

type SnapshotPlayer struct {
	Name string `json:"name"`
}

func (that *Room) Snapshot() *Snapshot {
	snapshot := &Snapshot{
		Turn:       that.Turn,
		Mode:       that.Mode,
		Difficulty: that.Difficulty,
		IsDraw:     that.Draw,
	}

	for i, cell := range that.Board {
		if cell != EmptyCell {
			mark := cell
			snapshot.Board[i] = &mark
		}
	}

	if that.Winner != EmptyCell {
		winner := that.Winner
		snapshot.Winner = &winner
	}

	snapshot.Players.X = snapshotPlayer(that.Seats[MarkX])
	snapshot.Players.O = snapshotPlayer(that.Seats[MarkO])

	return snapshot
}

func snapshotPlayer(seat *Seat) *SnapshotPlayer {
	if seat == nil {
		return nil
	}
	return &SnapshotPlayer{Name: seat.Name}
}
