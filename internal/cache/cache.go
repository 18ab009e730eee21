/*
Package cache is a sqlite-backed catalog of chart files discovered by a
filesystem scan: path, title, and outline bounding box, keyed by path,
with a header fingerprint stored per path so a scan can skip a file
whose header has not changed.
*/
package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog is a handle on the scan database.
type Catalog struct {
	db *sql.DB
}

// Open opens, or creates, the catalog database at file.
func Open(file string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS chart (
		id INTEGER PRIMARY KEY NOT NULL,
		path TEXT NOT NULL UNIQUE,
		fingerprint INTEGER NOT NULL,
		title TEXT NOT NULL,
		name TEXT NOT NULL,
		ident TEXT NOT NULL,
		min_lat REAL NOT NULL,
		max_lat REAL NOT NULL,
		min_lon REAL NOT NULL,
		max_lon REAL NOT NULL,
		file_birth_time INTEGER NOT NULL
	)`); err != nil {
		return nil, err
	}

	return &Catalog{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Entry is one catalog row.
type Entry struct {
	Path                           string
	Fingerprint                    uint32
	Title, Name, Ident             string
	MinLat, MaxLat, MinLon, MaxLon float64
	// FileBirthTime is the filesystem birth time of the chart file, in
	// Unix seconds, or zero on filesystems that don't report one.
	FileBirthTime int64
}

// Fingerprint returns the previously recorded fingerprint for path, or
// ok=false if path has never been cataloged.
func (c *Catalog) Fingerprint(path string) (fingerprint uint32, ok bool, err error) {
	switch err := c.db.QueryRow("SELECT fingerprint FROM chart WHERE path = ?", path).Scan(&fingerprint); err {
	case sql.ErrNoRows:
		return 0, false, nil
	case nil:
		return fingerprint, true, nil
	default:
		return 0, false, err
	}
}

// Upsert records or replaces the catalog entry for e.Path.
func (c *Catalog) Upsert(e Entry) error {
	_, err := c.db.Exec(`INSERT INTO chart (path, fingerprint, title, name, ident, min_lat, max_lat, min_lon, max_lon, file_birth_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			fingerprint=excluded.fingerprint, title=excluded.title, name=excluded.name, ident=excluded.ident,
			min_lat=excluded.min_lat, max_lat=excluded.max_lat, min_lon=excluded.min_lon, max_lon=excluded.max_lon,
			file_birth_time=excluded.file_birth_time`,
		e.Path, e.Fingerprint, e.Title, e.Name, e.Ident, e.MinLat, e.MaxLat, e.MinLon, e.MaxLon, e.FileBirthTime)
	return err
}

// FindContaining returns every cataloged chart whose bounding box
// contains (lat, lon); this is a coarse pre-filter, not the exact
// outline polygon test a Map itself performs.
func (c *Catalog) FindContaining(lat, lon float64) ([]Entry, error) {
	rows, err := c.db.Query(`SELECT path, fingerprint, title, name, ident, min_lat, max_lat, min_lon, max_lon, file_birth_time
		FROM chart WHERE min_lat <= ? AND max_lat >= ? AND min_lon <= ? AND max_lon >= ?`, lat, lat, lon, lon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.Fingerprint, &e.Title, &e.Name, &e.Ident, &e.MinLat, &e.MaxLat, &e.MinLon, &e.MaxLon, &e.FileBirthTime); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
