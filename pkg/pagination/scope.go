package pagination

import "gorm.io/gorm"

// Keyset is a gorm scope for newest-first listings: it resumes after cursor
// (when set), orders by created_at then id, and fetches one row past limit
// so Paginate can tell whether another page exists. table qualifies the
// columns when the query joins other tables.
func Keyset(cursor *Cursor, limit int, table string) func(*gorm.DB) *gorm.DB {
	createdAt, id := "created_at", "id"
	if table != "" {
		createdAt, id = table+".created_at", table+".id"
	}
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			at := cursor.CreatedAt.UTC()
			db = db.Where("(("+createdAt+" < ?) OR ("+createdAt+" = ? AND "+id+" < ?))", at, at, cursor.ID)
		}
		return db.Order(createdAt + " DESC").Order(id + " DESC").Limit(LimitWithBuffer(limit))
	}
}
