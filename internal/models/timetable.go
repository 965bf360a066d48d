package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Timetable is the persisted schedule document for one user's plan.
// Snapshot holds the generation inputs (subjects, topics, homework, tests,
// events, preferences) so move and replan operations can recompute
// availability without re-collecting them. Version backs the optimistic
// concurrency check on every read-modify-write.
type Timetable struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Mode      Mode           `db:"mode" json:"mode"`
	Snapshot  types.JSONText `db:"snapshot" json:"snapshot"`
	Schedule  types.JSONText `db:"schedule" json:"schedule"`
	Version   int            `db:"version" json:"version"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
