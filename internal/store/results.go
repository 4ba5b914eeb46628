package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"surveyor/internal/model"
)

// results is the output of one analysis run as handed to import.
type results struct {
	ExecutedTimestamp string `json:"executedTimestamp" msgpack:"executedTimestamp"`
	ReportPath        string `json:"reportPath,omitempty" msgpack:"reportPath,omitempty"`
	OutputLocation    string `json:"outputLocation,omitempty" msgpack:"outputLocation,omitempty"`
	Hints             []hint `json:"hints" msgpack:"hints"`
}

// ErrNoTimestamp is returned for results without an execution timestamp when
// no clock is supplied.
var ErrNoTimestamp = errors.New("results have no executedTimestamp")

// DecodeResults parses analysis output. A missing timestamp is filled from
// now when now is non-nil; the timestamp is what tells runs apart.
func DecodeResults(data []byte, format Format, now func() time.Time) (model.Summary, []*model.Hint, error) {
	var r results
	var err error
	switch format {
	case FormatMsgpack:
		err = msgpack.NewDecoder(bytes.NewReader(data)).Decode(&r)
	default:
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return model.Summary{}, nil, fmt.Errorf("decode results: %w", err)
	}
	if r.ExecutedTimestamp == "" {
		if now == nil {
			return model.Summary{}, nil, ErrNoTimestamp
		}
		r.ExecutedTimestamp = now().UTC().Format(time.RFC3339)
	}
	hints := make([]*model.Hint, 0, len(r.Hints))
	for _, dh := range r.Hints {
		h := hintFromDocument(dh)
		// completion belongs to the configuration, not to a fresh run
		h.Complete = false
		hints = append(hints, h)
	}
	summary := model.Summary{
		ExecutedTimestamp: r.ExecutedTimestamp,
		ReportPath:        r.ReportPath,
		OutputLocation:    r.OutputLocation,
	}
	return summary, hints, nil
}
