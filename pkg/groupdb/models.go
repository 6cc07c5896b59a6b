// Package groupdb holds the talkgroup and channel/LCN tables a trunking
// session consults on every grant: GroupEntry policy (allow/block/data/
// private marking, display name, last algorithm ID seen) and the LCN
// frequency table used as a fallback when the control-channel hunter has
// no neighbor candidates left to try. Tables load from CSV and are cached
// in SQLite so a restart doesn't have to re-parse a multi-thousand-row
// file.
package groupdb

import "time"

// GroupEntry is one row of the talkgroup policy table: tg,mode,name,alg.
// Mode is one of "A" (allow), "B" (block), "D" (data-only), "DE"
// (data-encrypted, also marks the TG as requiring a key to unmute).
type GroupEntry struct {
	TG          uint32 `gorm:"primarykey" json:"tg"`
	Mode        string `gorm:"size:2" json:"mode"`
	DisplayName string `gorm:"size:64" json:"display_name"`
	LastAlgID   int    `json:"last_alg_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName pins the GORM table name.
func (GroupEntry) TableName() string { return "group_entries" }

// Blocked reports whether this entry's mode mutes the talkgroup outright.
func (g GroupEntry) Blocked() bool { return g.Mode == "B" }

// RequiresKey reports whether this entry marks traffic as encrypted,
// requiring a loaded key before it can be unmuted.
func (g GroupEntry) RequiresKey() bool { return g.Mode == "DE" }

// LCNEntry maps a logical channel number to its tuned frequency, used as
// the hunter's last-resort candidate list when neighbor/CC lists are
// exhausted.
type LCNEntry struct {
	LCN  uint32 `gorm:"primarykey" json:"lcn"`
	Freq uint32 `json:"freq_hz"`
}

// TableName pins the GORM table name.
func (LCNEntry) TableName() string { return "lcn_entries" }
