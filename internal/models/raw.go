package models

// RawPlayRecord is one pitch or play as served by an upstream source.
// Numeric fields keep their raw decoded value (float64, json.Number, string or nil)
// so that coercion happens in exactly one place.
type RawPlayRecord struct {
	Source   string
	GamePk   int
	Order    int // arrival order within the source payload
	GameDate string

	Inning      any
	Half        string
	AtBatNumber any
	PitchNumber any
	SvID        string

	BatterName  string
	BatterID    any
	PitcherName string
	PitcherID   any

	EventType   string
	Description string
	PitchType   string

	LaunchSpeed any
	LaunchAngle any
	EstimatedBA any
	HitDistance any

	// Win expectancy, home-relative. WinExpInPercent is set by sources that
	// report 0-100 instead of 0-1.
	DeltaHomeWinExp any
	HomeWinExp      any
	WinExpInPercent bool

	Outs          any
	Balls         any
	Strikes       any
	HomeScore     any
	AwayScore     any
	PostHomeScore any
	PostAwayScore any
	OnFirst       any
	OnSecond      any
	OnThird       any

	PlayID string
}
