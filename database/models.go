package database

import (
	"time"

	"github.com/uptrace/bun"
)

// Source is the persisted state of one configured feed
type Source struct {
	bun.BaseModel `bun:"table:sources,alias:src"`

	ID                     string     `bun:"id,pk"`
	Name                   string     `bun:"name,notnull"`
	Kind                   string     `bun:"kind,notnull"`
	Priority               int        `bun:"priority,notnull,default:1"`
	Active                 bool       `bun:"active,notnull,default:true"`
	LastCheckedAt          *time.Time `bun:"last_checked_at"`
	LastUpdatedAt          *time.Time `bun:"last_updated_at"`
	LastKnownVersionMarker string     `bun:"last_known_version_marker,notnull,default:''"`
}

// AuditEntry is one row of the update history
type AuditEntry struct {
	bun.BaseModel `bun:"table:update_audit,alias:ua"`

	ID            int64      `bun:"id,pk,autoincrement"`
	TaskID        string     `bun:"task_id,unique,notnull"`
	SourceID      string     `bun:"source_id,notnull"`
	DateBucket    string     `bun:"date_bucket,notnull"`
	UpdateType    string     `bun:"update_type,notnull"`
	TriggerKind   string     `bun:"trigger_kind,notnull"`
	Status        string     `bun:"status,notnull"`
	Added         int        `bun:"added,notnull,default:0"`
	Modified      int        `bun:"modified,notnull,default:0"`
	Skipped       int        `bun:"skipped,notnull,default:0"`
	DurationMS    int64      `bun:"duration_ms,notnull,default:0"`
	VersionMarker string     `bun:"version_marker,notnull,default:''"`
	ErrorMessage  string     `bun:"error_message,notnull,default:''"`
	StartedAt     time.Time  `bun:"started_at,notnull"`
	EndedAt       *time.Time `bun:"ended_at"`
}

// Pokemon is base game data for one species form
type Pokemon struct {
	bun.BaseModel `bun:"table:pokemon,alias:pk"`

	ID           int64     `bun:"id,pk,autoincrement"`
	SpeciesID    string    `bun:"species_id,unique,notnull"`
	Dex          int       `bun:"dex,notnull"`
	Name         string    `bun:"name,notnull"`
	Types        string    `bun:"types,notnull,default:''"`
	Attack       float64   `bun:"attack,notnull,default:0"`
	Defense      float64   `bun:"defense,notnull,default:0"`
	Stamina      float64   `bun:"stamina,notnull,default:0"`
	FastMoves    string    `bun:"fast_moves,notnull,default:''"`
	ChargedMoves string    `bun:"charged_moves,notnull,default:''"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// Move is base game data for one move
type Move struct {
	bun.BaseModel `bun:"table:moves,alias:mv"`

	ID         int64     `bun:"id,pk,autoincrement"`
	MoveID     string    `bun:"move_id,unique,notnull"`
	Name       string    `bun:"name,notnull"`
	Type       string    `bun:"type,notnull,default:''"`
	Power      int       `bun:"power,notnull,default:0"`
	Energy     int       `bun:"energy,notnull,default:0"`
	EnergyGain int       `bun:"energy_gain,notnull,default:0"`
	Cooldown   int       `bun:"cooldown,notnull,default:0"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

// Ranking is one species' placement in a league/cup ranking
type Ranking struct {
	bun.BaseModel `bun:"table:rankings,alias:rk"`

	ID        int64     `bun:"id,pk,autoincrement"`
	League    string    `bun:"league,notnull,unique:rankings_natural_key"`
	Cup       string    `bun:"cup,notnull,unique:rankings_natural_key"`
	SpeciesID string    `bun:"species_id,notnull,unique:rankings_natural_key"`
	Rank      int       `bun:"rank,notnull"`
	Score     float64   `bun:"score,notnull,default:0"`
	Rating    int       `bun:"rating,notnull,default:0"`
	Moveset   string    `bun:"moveset,notnull,default:''"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Tier is one species' tier placement in a league
type Tier struct {
	bun.BaseModel `bun:"table:tiers,alias:tr"`

	ID        int64     `bun:"id,pk,autoincrement"`
	League    string    `bun:"league,notnull,unique:tiers_natural_key"`
	SpeciesID string    `bun:"species_id,notnull,unique:tiers_natural_key"`
	Tier      string    `bun:"tier,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Models lists every table model in creation order
func Models() []any {
	return []any{
		(*Source)(nil),
		(*AuditEntry)(nil),
		(*Pokemon)(nil),
		(*Move)(nil),
		(*Ranking)(nil),
		(*Tier)(nil),
	}
}
