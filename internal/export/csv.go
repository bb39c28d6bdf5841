// Package export gera os CSVs das telas de listagem a partir dos dados já carregados.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Formatter converte o valor bruto de uma coluna em texto
type Formatter func(v any) string

// Field é uma coluna exportada: chave no registro, cabeçalho e formatação opcional
type Field struct {
	Key    string    `yaml:"key"`
	Label  string    `yaml:"label"`
	Format Formatter `yaml:"-"`
}

// CSV monta o arquivo: cabeçalho + uma linha por registro, separadas por "\n", sem "\n" final.
// Valores com vírgula, aspas ou quebra de linha saem entre aspas.
func CSV(rows []map[string]any, fields []Field) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Label
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("csv header: %w", err)
	}

	line := make([]string, len(fields))
	for n, row := range rows {
		for i, f := range fields {
			v := lookup(row, f.Key)
			if f.Format != nil {
				line[i] = f.Format(v)
			} else {
				line[i] = Stringify(v)
			}
		}
		if err := w.Write(line); err != nil {
			return "", fmt.Errorf("csv row %d: %w", n, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("csv flush: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// lookup aceita chaves aninhadas ("game.name")
func lookup(row map[string]any, key string) any {
	if v, ok := row[key]; ok {
		return v
	}
	var cur any = row
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// Stringify é a formatação padrão de uma célula
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// Records converte um slice tipado em registros usando as tags json dos campos
func Records(v any) ([]map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("records encode: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out []map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("records decode: %w", err)
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}

// Filename devolve "<base>_<YYYY-MM-DD>.csv"
func Filename(base string, now time.Time) string {
	return base + "_" + now.Format("2006-01-02") + ".csv"
}
