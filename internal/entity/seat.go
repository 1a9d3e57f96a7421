package entity

// Seat is one occupant of a symbol slot: a connected human or the bot.
type Seat struct {
	ConnID string `json:"conn_id,omitempty"`
	Name   string `json:"name"`
	Bot    bool   `json:"bot,omitempty"`
}

func NewBotSeat(difficulty string) *Seat {
	return &Seat{
		Name: "Computer (" + difficulty + ")",
		Bot:  true,
	}
}

func (that *Seat) IsHuman() bool {
	return that != nil && !that.Bot
}

func (that *Seat) IsBot() bool {
	return that != nil && that.Bot
}
