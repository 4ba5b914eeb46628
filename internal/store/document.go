package store

import "surveyor/internal/model"

// Current schema version - increment when the document format changes
const schemaVersion uint16 = 1

// document is the wholesale on-disk form of the model.
type document struct {
	Version        uint16          `json:"version" msgpack:"version"`
	Configurations []configuration `json:"configurations" msgpack:"configurations"`
}

type configuration struct {
	ID              string   `json:"id" msgpack:"id"`
	Name            string   `json:"name" msgpack:"name"`
	Options         options  `json:"options" msgpack:"options"`
	Summary         *summary `json:"summary,omitempty" msgpack:"summary,omitempty"`
	Hints           []hint   `json:"hints" msgpack:"hints"`
	CompletedIssues []string `json:"completedIssues" msgpack:"completedIssues"`
}

type options struct {
	Input  []string `json:"input,omitempty" msgpack:"input,omitempty"`
	Target []string `json:"target,omitempty" msgpack:"target,omitempty"`
	Source []string `json:"source,omitempty" msgpack:"source,omitempty"`
	Output string   `json:"output,omitempty" msgpack:"output,omitempty"`
}

type summary struct {
	ExecutedTimestamp string `json:"executedTimestamp" msgpack:"executedTimestamp"`
	ReportPath        string `json:"reportPath,omitempty" msgpack:"reportPath,omitempty"`
	OutputLocation    string `json:"outputLocation,omitempty" msgpack:"outputLocation,omitempty"`
	HintCount         int    `json:"hintCount" msgpack:"hintCount"`
	QuickfixCount     int    `json:"quickfixCount" msgpack:"quickfixCount"`
}

type hint struct {
	ID         string     `json:"id" msgpack:"id"`
	Title      string     `json:"title" msgpack:"title"`
	RuleID     string     `json:"ruleId" msgpack:"ruleId"`
	Category   string     `json:"category,omitempty" msgpack:"category,omitempty"`
	Effort     int        `json:"effort,omitempty" msgpack:"effort,omitempty"`
	File       string     `json:"file" msgpack:"file"`
	Line       int        `json:"lineNumber" msgpack:"lineNumber"`
	Column     int        `json:"column" msgpack:"column"`
	Length     int        `json:"length" msgpack:"length"`
	Report     string     `json:"report,omitempty" msgpack:"report,omitempty"`
	Complete   bool       `json:"complete" msgpack:"complete"`
	Quickfixes []quickfix `json:"quickfixes" msgpack:"quickfixes"`
}

type quickfix struct {
	ID          string `json:"id" msgpack:"id"`
	Type        string `json:"type" msgpack:"type"`
	Title       string `json:"name,omitempty" msgpack:"name,omitempty"`
	File        string `json:"file,omitempty" msgpack:"file,omitempty"`
	Search      string `json:"searchString,omitempty" msgpack:"searchString,omitempty"`
	Replacement string `json:"replacementString,omitempty" msgpack:"replacementString,omitempty"`
}

func toDocument(m *model.Model) *document {
	doc := &document{
		Version:        schemaVersion,
		Configurations: make([]configuration, 0),
	}
	if m == nil {
		return doc
	}
	for _, c := range m.Configurations {
		dc := configuration{
			ID:   c.ID,
			Name: c.Name,
			Options: options{
				Input:  c.Options.Input,
				Target: c.Options.Target,
				Source: c.Options.Source,
				Output: c.Options.Output,
			},
			Hints:           make([]hint, 0, len(c.Hints)),
			CompletedIssues: c.CompletedIssues(),
		}
		if c.Summary != nil {
			dc.Summary = &summary{
				ExecutedTimestamp: c.Summary.ExecutedTimestamp,
				ReportPath:        c.Summary.ReportPath,
				OutputLocation:    c.Summary.OutputLocation,
				HintCount:         c.Summary.HintCount,
				QuickfixCount:     c.Summary.QuickfixCount,
			}
		}
		for _, h := range c.Hints {
			dc.Hints = append(dc.Hints, hintToDocument(h))
		}
		doc.Configurations = append(doc.Configurations, dc)
	}
	return doc
}

func hintToDocument(h *model.Hint) hint {
	dh := hint{
		ID:         h.ID,
		Title:      h.Title,
		RuleID:     h.RuleID,
		Category:   h.Category,
		Effort:     h.Effort,
		File:       h.Location.File,
		Line:       h.Location.Line,
		Column:     h.Location.Column,
		Length:     h.Location.Length,
		Report:     h.Report,
		Complete:   h.Complete,
		Quickfixes: make([]quickfix, len(h.Quickfixes)),
	}
	for i, q := range h.Quickfixes {
		dh.Quickfixes[i] = quickfix{
			ID:          q.ID,
			Type:        string(q.Type),
			Title:       q.Title,
			File:        q.File,
			Search:      q.Search,
			Replacement: q.Replacement,
		}
	}
	return dh
}

func fromDocument(doc *document) *model.Model {
	m := model.New()
	for _, dc := range doc.Configurations {
		c := model.NewConfiguration(dc.ID, dc.Name)
		c.Options = model.Options{
			Input:  dc.Options.Input,
			Target: dc.Options.Target,
			Source: dc.Options.Source,
			Output: dc.Options.Output,
		}
		if dc.Summary != nil {
			c.Summary = &model.Summary{
				ExecutedTimestamp: dc.Summary.ExecutedTimestamp,
				ReportPath:        dc.Summary.ReportPath,
				OutputLocation:    dc.Summary.OutputLocation,
				HintCount:         dc.Summary.HintCount,
				QuickfixCount:     dc.Summary.QuickfixCount,
			}
		}
		c.Hints = make([]*model.Hint, 0, len(dc.Hints))
		for _, dh := range dc.Hints {
			c.Hints = append(c.Hints, hintFromDocument(dh))
		}
		c.Sync(dc.CompletedIssues)
		m.Add(c)
	}
	return m
}

func hintFromDocument(dh hint) *model.Hint {
	h := &model.Hint{
		ID:       dh.ID,
		Title:    dh.Title,
		RuleID:   dh.RuleID,
		Category: dh.Category,
		Effort:   dh.Effort,
		Location: model.Location{
			File:   dh.File,
			Line:   dh.Line,
			Column: dh.Column,
			Length: dh.Length,
		},
		Report:     dh.Report,
		Complete:   dh.Complete,
		Quickfixes: make([]model.Quickfix, len(dh.Quickfixes)),
	}
	for i, q := range dh.Quickfixes {
		h.Quickfixes[i] = model.Quickfix{
			ID:          q.ID,
			Type:        model.QuickfixType(q.Type),
			Title:       q.Title,
			File:        q.File,
			Search:      q.Search,
			Replacement: q.Replacement,
		}
	}
	return h
}
