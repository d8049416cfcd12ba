package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"gop-scraper/lib/scrapers/gop"
	"gop-scraper/lib/telemetry"
	"gop-scraper/lib/timezone"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed schema.sql
var Schema string

var tracer = telemetry.Tracer("gop.lib.recordstore")

var ErrNotFound = errors.New("record not found")

// layouts the portal has been seen to render fecha_entrada with
var entryDateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

// ParseEntryDate returns the date in yyyy-mm-dd, or false if none of the
// known layouts match.
func ParseEntryDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range entryDateLayouts {
		t, err := time.ParseInLocation(layout, raw, timezone.Location)
		if err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// column widths of the legacy expedientes table the portal data ends up in
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

type RowError struct {
	SystemNumber string
	Err          error
}

func (e RowError) Error() string {
	return fmt.Sprintf("nro_sistema %q: %s", e.SystemNumber, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

type SyncStats struct {
	Found    int
	Inserted int
	Updated  int
	// rows without a nro_sistema
	Skipped int
	Errors  []RowError
}

const upsertQuery = `insert into gop_expedientes (
	nro_sistema, expediente, estado, profesional, nomenclatura,
	bandeja_actual, fecha_entrada, usuario_asignado, url_detalle,
	documento, ultima_sincronizacion
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (nro_sistema) do update set
	expediente = excluded.expediente,
	estado = excluded.estado,
	profesional = excluded.profesional,
	nomenclatura = excluded.nomenclatura,
	bandeja_actual = excluded.bandeja_actual,
	fecha_entrada = excluded.fecha_entrada,
	usuario_asignado = excluded.usuario_asignado,
	url_detalle = excluded.url_detalle,
	documento = coalesce(excluded.documento, gop_expedientes.documento),
	ultima_sincronizacion = excluded.ultima_sincronizacion`

// Sync upserts exported records keyed by nro_sistema in one transaction.
// a failing row is reported in the stats and does not abort the others.
func (s Store) Sync(ctx context.Context, records []gop.Record, now time.Time) (SyncStats, error) {
	ctx, span := tracer.Start(ctx, "Store:Sync")
	defer span.End()

	stats := SyncStats{Found: len(records)}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return stats, err
	}
	defer tx.Rollback()

	for _, r := range records {
		number := strings.TrimSpace(r.SystemNumber)
		if number == "" {
			stats.Skipped++
			continue
		}

		var exists int
		err := tx.QueryRowContext(ctx, "select count(*) from gop_expedientes where nro_sistema = ?", number).Scan(&exists)
		if err != nil {
			stats.Errors = append(stats.Errors, RowError{SystemNumber: number, Err: err})
			continue
		}

		var entryDate sql.NullString
		if date, ok := ParseEntryDate(r.EntryDate); ok {
			entryDate = sql.NullString{String: date, Valid: true}
		} else if strings.TrimSpace(r.EntryDate) != "" {
			slog.WarnContext(ctx, "unrecognized fecha_entrada", "nro_sistema", number, "value", r.EntryDate)
		}

		_, err = tx.ExecContext(
			ctx, upsertQuery,
			number,
			r.FileNumber,
			nullable(truncate(r.Status, 100)),
			nullable(r.Professional),
			nullable(r.Nomenclature),
			nullable(truncate(r.CurrentTray, 200)),
			entryDate,
			nullable(truncate(r.AssignedUser, 200)),
			nullable(r.DetailUrl),
			nullable(r.DocumentPath),
			now.Unix(),
		)
		if err != nil {
			stats.Errors = append(stats.Errors, RowError{SystemNumber: number, Err: err})
			continue
		}
		if exists > 0 {
			stats.Updated++
		} else {
			stats.Inserted++
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit")
		return stats, err
	}

	span.SetAttributes(
		attribute.Int("inserted", stats.Inserted),
		attribute.Int("updated", stats.Updated),
		attribute.Int("skipped", stats.Skipped),
		attribute.Int("errors", len(stats.Errors)),
	)
	return stats, nil
}

// StoredRecord is a synced record, its EntryDate is normalized to
// yyyy-mm-dd or empty when unknown.
type StoredRecord struct {
	gop.Record
	SyncedAt time.Time
}

func (s Store) Get(ctx context.Context, systemNumber string) (StoredRecord, error) {
	row := s.db.QueryRowContext(ctx, `select
		nro_sistema, expediente, estado, profesional, nomenclatura,
		bandeja_actual, fecha_entrada, usuario_asignado, url_detalle,
		documento, ultima_sincronizacion
	from gop_expedientes where nro_sistema = ?`, systemNumber)

	var out StoredRecord
	var status, professional, nomenclature, tray, date, user, detail, document sql.NullString
	var synced int64
	err := row.Scan(
		&out.SystemNumber, &out.FileNumber, &status, &professional, &nomenclature,
		&tray, &date, &user, &detail, &document, &synced,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredRecord{}, ErrNotFound
	}
	if err != nil {
		return StoredRecord{}, err
	}

	out.Status = status.String
	out.Professional = professional.String
	out.Nomenclature = nomenclature.String
	out.CurrentTray = tray.String
	out.AssignedUser = user.String
	out.DetailUrl = detail.String
	out.DocumentPath = document.String
	out.EntryDate = date.String
	out.SyncedAt = time.Unix(synced, 0).In(timezone.Location)
	return out, nil
}

func (s Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "select count(*) from gop_expedientes").Scan(&n)
	return n, err
}
