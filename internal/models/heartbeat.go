package models

// HeartbeatPoint is one point on a game's win probability curve
type HeartbeatPoint struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	PrevY        float64 `json:"prev_y"`
	WPA          float64 `json:"wpa"`
	Batter       string  `json:"batter"`
	Pitcher      string  `json:"pitcher"`
	Event        string  `json:"event"`
	Description  string  `json:"description"`
	Situation    string  `json:"situation,omitempty"`
	ScoreContext string  `json:"score_context,omitempty"`
}

// DramaCategory buckets a drama score
type DramaCategory struct {
	Level string `json:"level"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Heartbeat is the reconstructed win probability timeline for one game
type Heartbeat struct {
	Points        []HeartbeatPoint `json:"heartbeat_points"`
	DramaScore    float64          `json:"drama_score"`
	DramaCategory DramaCategory    `json:"drama_category"`
	TotalEvents   int              `json:"total_events"`
	HasData       bool             `json:"has_data"`
}
