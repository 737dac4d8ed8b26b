package tracing

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/chameneos/broker"
	"github.com/sarchlab/chameneos/creature"
	"github.com/sarchlab/chameneos/game"
	"github.com/sarchlab/chameneos/hooking"
)

type roundRow struct {
	ID       string
	Name     string
	Colors   string
	Budget   int
	Total    int
	Duration float64
	Err      string
}

type pairingRow struct {
	Broker      string
	Seq         int
	FirstID     int
	FirstColor  string
	SecondID    int
	SecondColor string
}

type reportRow struct {
	Creature     string
	ID           int
	Color        string
	Meetings     int
	SelfMeetings int
}

// SQLiteTracer records rounds, pairings and creature reports into a SQLite
// database. It is safe for concurrent use.
type SQLiteTracer struct {
	*sql.DB

	lock        sync.Mutex
	roundStmt   *sql.Stmt
	pairingStmt *sql.Stmt
	reportStmt  *sql.Stmt
	dbName      string
	batchSize   int
	rounds      []roundRow
	pairings    []pairingRow
	reports     []reportRow
}

// NewSQLiteTracer creates a tracer writing to path + ".sqlite3". An empty
// path generates a unique name.
func NewSQLiteTracer(path string) *SQLiteTracer {
	return &SQLiteTracer{
		dbName:    path,
		batchSize: 100000,
	}
}

// Filename returns the database file.
func (t *SQLiteTracer) Filename() string {
	return t.dbName + ".sqlite3"
}

// Init creates the database. It fails if the file already exists. Buffered
// rows are flushed when the program exits through atexit.
func (t *SQLiteTracer) Init() error {
	if t.dbName == "" {
		t.dbName = "chameneos_trace_" + xid.New().String()
	}

	filename := t.Filename()

	_, err := os.Stat(filename)
	if err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filename, err)
	}

	t.DB = db

	err = t.createTables()
	if err != nil {
		return err
	}

	err = t.prepareStatements()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Database created for tracing: %s\n", filename)

	atexit.Register(func() { _ = t.Flush() })

	return nil
}

func (t *SQLiteTracer) createTables() error {
	stmts := []string{
		`CREATE TABLE round (
			ID TEXT, Name TEXT, Colors TEXT, Budget INTEGER,
			Total INTEGER, Duration REAL, Err TEXT)`,
		`CREATE TABLE pairing (
			Broker TEXT, Seq INTEGER,
			FirstID INTEGER, FirstColor TEXT,
			SecondID INTEGER, SecondColor TEXT)`,
		`CREATE TABLE report (
			Creature TEXT, ID INTEGER, Color TEXT,
			Meetings INTEGER, SelfMeetings INTEGER)`,
	}

	for _, s := range stmts {
		if _, err := t.Exec(s); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}

	return nil
}

func (t *SQLiteTracer) prepareStatements() error {
	var err error

	t.roundStmt, err = t.Prepare(
		`INSERT INTO round VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}

	t.pairingStmt, err = t.Prepare(
		`INSERT INTO pairing VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}

	t.reportStmt, err = t.Prepare(
		`INSERT INTO report VALUES (?, ?, ?, ?, ?)`)

	return err
}

// Func buffers a row for the event. Rows are written when a round ends or
// when the buffer is full.
func (t *SQLiteTracer) Func(ctx hooking.HookCtx) {
	name := domainName(ctx.Domain)

	t.lock.Lock()

	switch ctx.Pos {
	case broker.HookPosPair:
		p := ctx.Item.(broker.Pairing)
		t.pairings = append(t.pairings, pairingRow{
			Broker:      name,
			Seq:         p.Seq,
			FirstID:     int(p.First.ID),
			FirstColor:  p.First.Color.String(),
			SecondID:    int(p.Second.ID),
			SecondColor: p.Second.Color.String(),
		})
	case creature.HookPosStop:
		r := ctx.Item.(creature.FinalReport)
		t.reports = append(t.reports, reportRow{
			Creature:     name,
			ID:           int(r.ID),
			Color:        r.Color.String(),
			Meetings:     r.Meetings,
			SelfMeetings: r.SelfMeetings,
		})
	case game.HookPosRoundEnd:
		t.rounds = append(t.rounds, newRoundRow(ctx))
	default:
		t.lock.Unlock()
		return
	}

	full := len(t.pairings)+len(t.reports) >= t.batchSize
	t.lock.Unlock()

	if full || ctx.Pos == game.HookPosRoundEnd {
		if err := t.Flush(); err != nil {
			panic(err)
		}
	}
}

func newRoundRow(ctx hooking.HookCtx) roundRow {
	result := ctx.Item.(game.RoundResult)

	colors := make([]string, len(result.Colors))
	for i, c := range result.Colors {
		colors[i] = c.String()
	}

	row := roundRow{
		ID:       result.ID,
		Name:     result.Name,
		Colors:   strings.Join(colors, " "),
		Budget:   result.Budget,
		Total:    result.Total(),
		Duration: result.Duration.Seconds(),
	}

	if err, ok := ctx.Detail.(error); ok && err != nil {
		row.Err = err.Error()
	}

	return row
}

// Flush writes all buffered rows in one transaction.
func (t *SQLiteTracer) Flush() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.DB == nil ||
		len(t.rounds)+len(t.pairings)+len(t.reports) == 0 {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return err
	}

	err = t.insertAll(tx)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("flushing trace: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("flushing trace: %w", err)
	}

	t.rounds, t.pairings, t.reports = nil, nil, nil

	return nil
}

func (t *SQLiteTracer) insertAll(tx *sql.Tx) error {
	roundStmt := tx.Stmt(t.roundStmt)
	pairingStmt := tx.Stmt(t.pairingStmt)
	reportStmt := tx.Stmt(t.reportStmt)

	for _, r := range t.rounds {
		_, err := roundStmt.Exec(
			r.ID, r.Name, r.Colors, r.Budget, r.Total, r.Duration, r.Err)
		if err != nil {
			return err
		}
	}

	for _, p := range t.pairings {
		_, err := pairingStmt.Exec(
			p.Broker, p.Seq, p.FirstID, p.FirstColor, p.SecondID, p.SecondColor)
		if err != nil {
			return err
		}
	}

	for _, r := range t.reports {
		_, err := reportStmt.Exec(
			r.Creature, r.ID, r.Color, r.Meetings, r.SelfMeetings)
		if err != nil {
			return err
		}
	}

	return nil
}

// Close flushes and closes the database.
func (t *SQLiteTracer) Close() error {
	err := t.Flush()
	if err != nil {
		return err
	}

	if t.DB == nil {
		return nil
	}

	return t.DB.Close()
}
