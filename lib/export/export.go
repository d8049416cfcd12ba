package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"gop-scraper/lib/scrapers/gop"
	"gop-scraper/lib/telemetry"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("gop.lib.export")

var ErrAlreadyFlushed = errors.New("export batch already flushed")

const bom = "\ufeff"

var Header = []string{
	"nro_sistema",
	"expediente",
	"estado",
	"profesional",
	"nomenclatura",
	"bandeja_actual",
	"fecha_entrada",
	"usuario_asignado",
	"url_detalle",
	"documento",
}

func row(r gop.Record) []string {
	return []string{
		r.SystemNumber,
		r.FileNumber,
		r.Status,
		r.Professional,
		r.Nomenclature,
		r.CurrentTray,
		r.EntryDate,
		r.AssignedUser,
		r.DetailUrl,
		r.DocumentPath,
	}
}

// Batch accumulates records in extraction order and writes them out once.
type Batch struct {
	dir     string
	records []gop.Record
	flushed bool
	// overridable for tests
	now func() time.Time
}

func NewBatch(dir string) *Batch {
	return &Batch{dir: dir, now: time.Now}
}

func (b *Batch) Append(records ...gop.Record) {
	b.records = append(b.records, records...)
}

func (b *Batch) Len() int {
	return len(b.records)
}

// WriteCSV writes a UTF-8 BOM, the header and one line per record.
func WriteCSV(w io.Writer, records []gop.Record) error {
	buffered := bufio.NewWriter(w)
	_, err := buffered.WriteString(bom)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(buffered)
	err = writer.Write(Header)
	if err != nil {
		return err
	}
	for _, r := range records {
		err = writer.Write(row(r))
		if err != nil {
			return err
		}
	}
	writer.Flush()
	err = writer.Error()
	if err != nil {
		return err
	}
	return buffered.Flush()
}

// creates data/expedientes_<ts>.csv, never reusing an existing name
func (b *Batch) create() (*os.File, error) {
	base := fmt.Sprintf("expedientes_%s", b.now().Format("20060102-150405"))
	for i := 0; i < 100; i++ {
		name := base + ".csv"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.csv", base, i)
		}
		f, err := os.OpenFile(filepath.Join(b.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return f, err
	}
	return nil, fmt.Errorf("no free export filename for %s in %s", base, b.dir)
}

// Flush writes every appended record to a new timestamped csv file and
// returns its path. it can only succeed once per batch.
func (b *Batch) Flush(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "Batch:Flush")
	defer span.End()

	if b.flushed {
		return "", ErrAlreadyFlushed
	}

	err := os.MkdirAll(b.dir, 0777)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create output dir")
		return "", err
	}
	f, err := b.create()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create export file")
		return "", err
	}

	err = errors.Join(WriteCSV(f, b.records), f.Close())
	if err != nil {
		os.Remove(f.Name())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write export file")
		return "", fmt.Errorf("write %s: %w", f.Name(), err)
	}
	b.flushed = true

	span.SetAttributes(
		attribute.String("path", f.Name()),
		attribute.Int("records", len(b.records)),
	)
	slog.InfoContext(ctx, "exported records", "path", f.Name(), "records", len(b.records))
	return f.Name(), nil
}
