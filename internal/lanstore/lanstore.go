// Package lanstore provides optional SQLite-backed persistence of LAN
// discovery history, so a long-running listener can survive a restart
// without losing each server's last-seen timestamp. It is not used by the
// library's core LAN scan path, which stays in-memory by default; callers
// that want durability wire it in explicitly.
package lanstore

import (
	"net"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"

	"github.com/zRains/msp/internal/mresult"
)

const schema = `
CREATE TABLE IF NOT EXISTS lan_observations (
	addr      TEXT PRIMARY KEY,
	motd_blob BLOB NOT NULL,
	port      INTEGER NOT NULL,
	last_seen INTEGER NOT NULL
);
`

// Store persists LanServer observations to a SQLite database, compressing
// the MOTD text with zstd the way pkg/memstore gzips its persisted blobs.
type Store struct {
	db  *sqlx.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens (creating if necessary) a SQLite database at path and ensures
// the observations table exists.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the database handle and compressor resources.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

type row struct {
	Addr     string `db:"addr"`
	MotdBlob []byte `db:"motd_blob"`
	Port     uint16 `db:"port"`
	LastSeen int64  `db:"last_seen"`
}

// Record upserts one observation, keyed by the server's address.
func (s *Store) Record(server mresult.LanServer, seenAt time.Time) error {
	r := row{
		Addr:     server.Key(),
		MotdBlob: s.enc.EncodeAll([]byte(server.Motd), nil),
		Port:     server.Port,
		LastSeen: seenAt.Unix(),
	}
	_, err := s.db.NamedExec(`
		INSERT INTO lan_observations (addr, motd_blob, port, last_seen)
		VALUES (:addr, :motd_blob, :port, :last_seen)
		ON CONFLICT(addr) DO UPDATE SET
			motd_blob = excluded.motd_blob,
			port = excluded.port,
			last_seen = excluded.last_seen
	`, r)
	return err
}

// Recent returns every observation last seen at or after since.
func (s *Store) Recent(since time.Time) ([]mresult.LanServer, error) {
	var rows []row
	if err := s.db.Select(&rows, `SELECT addr, motd_blob, port, last_seen FROM lan_observations WHERE last_seen >= ?`, since.Unix()); err != nil {
		return nil, err
	}
	out := make([]mresult.LanServer, 0, len(rows))
	for _, r := range rows {
		motd, err := s.dec.DecodeAll(r.MotdBlob, nil)
		if err != nil {
			return nil, err
		}
		host, _, err := net.SplitHostPort(r.Addr)
		if err != nil {
			return nil, err
		}
		out = append(out, mresult.LanServer{
			Addr: net.UDPAddr{IP: net.ParseIP(host), Port: int(r.Port)},
			Motd: string(motd),
			Port: r.Port,
		})
	}
	return out, nil
}
