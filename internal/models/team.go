package models

import "strings"

// Team represents an MLB club in the static reference table
type Team struct {
	TeamID int
	Code   string
	Name   string
}

// Teams maps the abbreviations used when recording games to MLB StatsAPI team ids
var Teams = map[string]Team{
	"ARI": {TeamID: 109, Code: "ARI", Name: "Arizona Diamondbacks"},
	"ATL": {TeamID: 144, Code: "ATL", Name: "Atlanta Braves"},
	"BAL": {TeamID: 110, Code: "BAL", Name: "Baltimore Orioles"},
	"BOS": {TeamID: 111, Code: "BOS", Name: "Boston Red Sox"},
	"CHC": {TeamID: 112, Code: "CHC", Name: "Chicago Cubs"},
	"CWS": {TeamID: 145, Code: "CWS", Name: "Chicago White Sox"},
	"CIN": {TeamID: 113, Code: "CIN", Name: "Cincinnati Reds"},
	"CLE": {TeamID: 114, Code: "CLE", Name: "Cleveland Guardians"},
	"COL": {TeamID: 115, Code: "COL", Name: "Colorado Rockies"},
	"DET": {TeamID: 116, Code: "DET", Name: "Detroit Tigers"},
	"HOU": {TeamID: 117, Code: "HOU", Name: "Houston Astros"},
	"KC":  {TeamID: 118, Code: "KC", Name: "Kansas City Royals"},
	"LAA": {TeamID: 108, Code: "LAA", Name: "Los Angeles Angels"},
	"LAD": {TeamID: 119, Code: "LAD", Name: "Los Angeles Dodgers"},
	"MIA": {TeamID: 146, Code: "MIA", Name: "Miami Marlins"},
	"MIL": {TeamID: 158, Code: "MIL", Name: "Milwaukee Brewers"},
	"MIN": {TeamID: 142, Code: "MIN", Name: "Minnesota Twins"},
	"NYM": {TeamID: 121, Code: "NYM", Name: "New York Mets"},
	"NYY": {TeamID: 147, Code: "NYY", Name: "New York Yankees"},
	"OAK": {TeamID: 133, Code: "OAK", Name: "Oakland Athletics"},
	"PHI": {TeamID: 143, Code: "PHI", Name: "Philadelphia Phillies"},
	"PIT": {TeamID: 134, Code: "PIT", Name: "Pittsburgh Pirates"},
	"SD":  {TeamID: 135, Code: "SD", Name: "San Diego Padres"},
	"SF":  {TeamID: 137, Code: "SF", Name: "San Francisco Giants"},
	"SEA": {TeamID: 136, Code: "SEA", Name: "Seattle Mariners"},
	"STL": {TeamID: 138, Code: "STL", Name: "St. Louis Cardinals"},
	"TB":  {TeamID: 139, Code: "TB", Name: "Tampa Bay Rays"},
	"TEX": {TeamID: 140, Code: "TEX", Name: "Texas Rangers"},
	"TOR": {TeamID: 141, Code: "TOR", Name: "Toronto Blue Jays"},
	"WSH": {TeamID: 120, Code: "WSH", Name: "Washington Nationals"},
}

// teamAliases covers alternate abbreviations seen on scorecards and older feeds
var teamAliases = map[string]string{
	"AZ":  "ARI",
	"ATH": "OAK",
	"CHW": "CWS",
	"KCR": "KC",
	"SDP": "SD",
	"SFG": "SF",
	"TBR": "TB",
	"WAS": "WSH",
	"WSN": "WSH",
	"ANA": "LAA",
	"FLA": "MIA",
}

// LookupTeam resolves an abbreviation (case-insensitive, aliases allowed)
func LookupTeam(code string) (Team, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if canonical, ok := teamAliases[code]; ok {
		code = canonical
	}
	team, ok := Teams[code]
	return team, ok
}
