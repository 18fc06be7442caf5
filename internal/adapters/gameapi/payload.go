// Package gameapi talks to the remote game API: one authenticated GET per
// tick per region, and parsing of the returned leaderboard payload into
// normalized rankings.
package gameapi

import "encoding/json"

// Payload is the raw leaderboard response for one event. Both sections must
// be present; a response missing either is malformed.
type Payload struct {
	Top100 *TopSection    `json:"top100"`
	Border *BorderSection `json:"border"`
}

// TopSection carries the top-100 rankings, plus per-chapter sub-rankings for
// multi-chapter events.
type TopSection struct {
	Rankings        []RankingEntry    `json:"rankings"`
	ChapterRankings []ChapterRankings `json:"userWorldBloomChapterRankings"`
}

// BorderSection carries the border rankings (selected ranks beyond the top
// 100), plus per-chapter borders for multi-chapter events.
type BorderSection struct {
	BorderRankings []RankingEntry   `json:"borderRankings"`
	ChapterBorders []ChapterBorders `json:"userWorldBloomChapterRankingBorders"`
}

// ChapterRankings is one chapter's top-100 sub-section, keyed by the
// chapter's character.
type ChapterRankings struct {
	GameCharacterID int            `json:"gameCharacterId"`
	Rankings        []RankingEntry `json:"rankings"`
}

// ChapterBorders is one chapter's border sub-section.
type ChapterBorders struct {
	GameCharacterID int            `json:"gameCharacterId"`
	BorderRankings  []RankingEntry `json:"borderRankings"`
}

// RankingEntry is one raw leaderboard row. UserID arrives as a JSON number
// from the remote but is treated as an opaque string everywhere else.
type RankingEntry struct {
	UserID json.Number `json:"userId"`
	Name   string      `json:"name"`
	Score  int64       `json:"score"`
	Rank   int         `json:"rank"`
}
