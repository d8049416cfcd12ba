package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"gop-scraper/lib/scrapers/gop"
	"io"
	"os"
)

// ReadCSV parses an export written by WriteCSV. columns are looked up by
// header name so files with reordered or missing optional columns load.
func ReadCSV(r io.Reader) ([]gop.Record, error) {
	buffered := bufio.NewReader(r)
	prefix, err := buffered.Peek(len(bom))
	if err == nil && bytes.Equal(prefix, []byte(bom)) {
		buffered.Discard(len(bom))
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	lines, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty export")
	}

	index := map[string]int{}
	for i, name := range lines[0] {
		index[name] = i
	}
	if _, ok := index["nro_sistema"]; !ok {
		return nil, fmt.Errorf("export header has no nro_sistema column")
	}

	records := make([]gop.Record, 0, len(lines)-1)
	for _, line := range lines[1:] {
		get := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(line) {
				return ""
			}
			return line[i]
		}
		records = append(records, gop.Record{
			SystemNumber: get("nro_sistema"),
			FileNumber:   get("expediente"),
			Status:       get("estado"),
			Professional: get("profesional"),
			Nomenclature: get("nomenclatura"),
			CurrentTray:  get("bandeja_actual"),
			EntryDate:    get("fecha_entrada"),
			AssignedUser: get("usuario_asignado"),
			DetailUrl:    get("url_detalle"),
			DocumentPath: get("documento"),
		})
	}
	return records, nil
}

func ReadFile(path string) ([]gop.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
