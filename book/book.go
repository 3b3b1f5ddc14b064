// Package book holds the opening book: exact scores of every position with
// Ply stones, keyed by canonical position key.
package book

import (
	"bufio"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/cache"
	"github.com/domino14/connect4/config"
)

// Ply is the number of stones of every book position.
const Ply = 12

// binary records are a 4-byte big-endian Huffman code and one signed byte
const recordSize = 5

var ErrOpeningBookLoad = errors.New("could not load opening book")

// Book is an immutable table of exact scores. It is safe for concurrent
// readers. A nil *Book is an empty book.
type Book struct {
	// sorted canonical keys, with scores in the same order
	keys   []uint64
	scores []int8
}

// New builds a book from canonical keys and scores.
func New(entries map[uint64]int) *Book {
	bk := &Book{
		keys:   make([]uint64, 0, len(entries)),
		scores: make([]int8, len(entries)),
	}
	for k := range entries {
		bk.keys = append(bk.keys, k)
	}
	slices.Sort(bk.keys)
	for i, k := range bk.keys {
		bk.scores[i] = int8(entries[k])
	}
	return bk
}

func (bk *Book) Len() int {
	if bk == nil {
		return 0
	}
	return len(bk.keys)
}

// Lookup returns the score of b for the player to move. It misses for any
// board that does not hold exactly Ply stones.
func (bk *Book) Lookup(b *board.Board) (int, bool) {
	if bk == nil || b.Moves() != Ply {
		return 0, false
	}
	return bk.LookupKey(b.CanonicalKey())
}

// LookupKey returns the score stored for a canonical key.
func (bk *Book) LookupKey(key uint64) (int, bool) {
	if bk == nil {
		return 0, false
	}
	i, found := slices.BinarySearch(bk.keys, key)
	if !found {
		return 0, false
	}
	return int(bk.scores[i]), true
}

// Each calls fn for every entry in key order.
func (bk *Book) Each(fn func(key uint64, score int)) {
	if bk == nil {
		return
	}
	for i, k := range bk.keys {
		fn(k, int(bk.scores[i]))
	}
}

// Digest is a hash of the book contents, identifying a book regardless of
// the file layout it was loaded from.
func (bk *Book) Digest() uint64 {
	buf := make([]byte, 0, bk.Len()*9)
	bk.Each(func(key uint64, score int) {
		buf = binary.BigEndian.AppendUint64(buf, key)
		buf = append(buf, byte(int8(score)))
	})
	return xxhash.Sum64(buf)
}

// Load reads a book file. Files ending in .db, .sqlite or .sqlite3 are
// read as SQLite databases; anything else is read as binary records.
func Load(path string) (*Book, error) {
	var bk *Book
	var err error
	if isSQLite(path) {
		bk, err = LoadSQLite(path)
	} else {
		bk, err = loadBinaryFile(path)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("entries", bk.Len()).
		Str("digest", fmt.Sprintf("%016x", bk.Digest())).Msg("opening-book-loaded")
	return bk, nil
}

func isSQLite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func loadBinaryFile(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpeningBookLoad, err)
	}
	defer f.Close()
	bk, err := ReadBinary(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bk, nil
}

// ReadBinary reads book records until EOF.
func ReadBinary(r io.Reader) (*Book, error) {
	entries := make(map[uint64]int)
	var rec [recordSize]byte
	for n := 0; ; n++ {
		_, err := io.ReadFull(r, rec[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrOpeningBookLoad, n, err)
		}
		code := binary.BigEndian.Uint32(rec[:4])
		b, err := board.FromHuffmanCode(code, Ply)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrOpeningBookLoad, n, err)
		}
		entries[b.CanonicalKey()] = valueToScore(int8(rec[4]))
	}
	return New(entries), nil
}

// WriteBinary writes the book as binary records, in key order.
func (bk *Book) WriteBinary(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var rec [recordSize]byte
	var err error
	bk.Each(func(key uint64, score int) {
		if err != nil {
			return
		}
		var b *board.Board
		b, err = board.FromKey(key)
		if err != nil {
			return
		}
		binary.BigEndian.PutUint32(rec[:4], b.HuffmanCode())
		rec[4] = byte(scoreToValue(score))
		_, err = bw.Write(rec[:])
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// Binary books store, instead of a score, the number of stones d the game
// lasts past the book position, signed by the winner: positive when the
// player to move wins, stored as 100 - d, negative when they lose, stored
// as d - 100. Draws are 0.

func valueToScore(v int8) int {
	switch {
	case v > 0:
		d := 100 - int(v)
		return 21 - (Ply+d)/2
	case v < 0:
		d := 100 + int(v)
		return -22 + (Ply+d)/2
	}
	return 0
}

func scoreToValue(score int) int8 {
	switch {
	case score > 0:
		d := 2*(21-score) - Ply
		return int8(100 - d)
	case score < 0:
		d := 2*(score+22) - Ply
		return int8(d - 100)
	}
	return 0
}

// LoadSQLite reads a book from the positions table of a SQLite database.
func LoadSQLite(path string) (*Book, error) {
	// sql.Open would create a missing database file
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpeningBookLoad, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpeningBookLoad, err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT key, score FROM positions")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpeningBookLoad, path, err)
	}
	defer rows.Close()
	entries := make(map[uint64]int)
	for rows.Next() {
		var key int64
		var score int
		if err := rows.Scan(&key, &score); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrOpeningBookLoad, path, err)
		}
		if score < board.MinScore || score > board.MaxScore {
			return nil, fmt.Errorf("%w: %s: score %d out of range for key %d",
				ErrOpeningBookLoad, path, score, key)
		}
		entries[uint64(key)] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpeningBookLoad, path, err)
	}
	return New(entries), nil
}

// WriteSQLite writes the book into the positions table of a SQLite
// database, creating the file and table if needed.
func (bk *Book) WriteSQLite(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS positions (
		key INTEGER PRIMARY KEY,
		score INTEGER NOT NULL
	)`); err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO positions (key, score) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for i, k := range bk.keys {
		if _, err := stmt.Exec(int64(k), int(bk.scores[i])); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Write saves the book, choosing the layout from the file extension like
// Load does.
func (bk *Book) Write(path string) error {
	if isSQLite(path) {
		return bk.WriteSQLite(path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bk.WriteBinary(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func bookLoadFunc(cfg *config.Config, key string) (any, error) {
	return Load(strings.TrimPrefix(key, "book:"))
}

// Get returns the book configured under book-path, loading it only once per
// process. It returns a nil book, and no error, when no path is configured
// or the file is missing and book-required is off.
func Get(cfg *config.Config) (*Book, error) {
	path := cfg.GetString(config.ConfigBookPath)
	if path == "" {
		return nil, nil
	}
	obj, err := cache.Load(cfg, "book:"+path, bookLoadFunc)
	if err != nil {
		if cfg.GetBool(config.ConfigBookRequired) {
			return nil, err
		}
		log.Warn().Err(err).Str("path", path).Msg("continuing-without-opening-book")
		return nil, nil
	}
	return obj.(*Book), nil
}
