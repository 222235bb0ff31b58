package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Response is the formatted report: echoed parameters, shaped data, the
// query sum and the optional delta.
type Response struct {
	Params Params
	// Data is []Row (flat), []Node (nested) or []ExportRow (export).
	Data  any
	Total Total
	Delta *Delta
}

// FormatResponse wraps shaped data with a deep copy of the request
// parameters.
func FormatResponse(params Params, data any, total Total, delta *Delta) Response {
	return Response{
		Params: params.Clone(),
		Data:   data,
		Total:  total,
		Delta:  delta,
	}
}

// MarshalJSON renders {...params, "data": ..., "total": ..., "delta"?: ...}.
func (r Response) MarshalJSON() ([]byte, error) {
	params, err := json.Marshal(r.Params)
	if err != nil {
		return nil, err
	}
	var obj object
	if err := appendRaw(&obj, params); err != nil {
		return nil, err
	}
	data := r.Data
	if data == nil {
		data = []Row{}
	}
	obj.add("data", data)
	obj.add("total", r.Total)
	if r.Delta != nil {
		obj.add("delta", *r.Delta)
	}
	return obj.MarshalJSON()
}

// appendRaw copies the top-level members of a marshalled object into obj,
// keeping their order.
func appendRaw(obj *object, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		obj.add(key, value)
	}
	return nil
}

// Rows flattens the response data into output field lists regardless of
// the shaping mode.
func (r Response) Rows() [][]Field {
	var out [][]Field
	switch data := r.Data.(type) {
	case []Row:
		for _, row := range data {
			out = append(out, row.Fields())
		}
	case []Node:
		for _, row := range Leaves(data) {
			out = append(out, row.Fields())
		}
	case []ExportRow:
		for _, row := range data {
			out = append(out, row.Fields())
		}
	}
	return out
}

// WriteCSV writes the response data as CSV. The header is the union of the
// row keys in first-seen order.
func WriteCSV(w io.Writer, r Response) error {
	rows := r.Rows()

	var header []string
	index := make(map[string]int)
	for _, fields := range rows {
		for _, f := range fields {
			if _, ok := index[f.Name]; !ok {
				index[f.Name] = len(header)
				header = append(header, f.Name)
			}
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(header))
	for _, fields := range rows {
		clear(record)
		for _, f := range fields {
			record[index[f.Name]] = csvValue(f.Value)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
