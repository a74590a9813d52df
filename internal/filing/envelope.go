package filing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ErrUndecodable is returned when an upload cannot be read as JSON even
// after repair.
var ErrUndecodable = errors.New("filing: payload is not decodable")

// InvalidFile is a file routed to the side-channel instead of aggregation.
type InvalidFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Batch is the decoded content of one upload.
type Batch struct {
	Filings []MonthlyFiling `json:"filings"`
	Invalid []InvalidFile   `json:"invalidFiles"`
	// Repaired is set when the payload needed lenient decoding.
	Repaired bool `json:"repaired,omitempty"`
}

// Reasons reported for invalid files.
const (
	ReasonMissingCNPJ   = "missing cnpj"
	ReasonMissingPeriod = "missing period"
	ReasonNotAnObject   = "entry is not an object"
	ReasonUpstream      = "rejected upstream"
)

// DecodeUpload accepts the legacy wrapper {success, dados}, the annual
// wrapper {isAnnual, files, invalidFiles}, a bare filing object or an
// array of any of these.
func DecodeUpload(data []byte) (Batch, error) {
	doc, repaired, err := decodeLenient(data)
	if err != nil {
		return Batch{}, err
	}
	var b Batch
	b.Repaired = repaired
	b.collect(doc, "")
	return b, nil
}

// FromFilings wraps already-normalized filings, routing the ones without
// identification to Invalid.
func FromFilings(filings []MonthlyFiling) Batch {
	var b Batch
	for _, f := range filings {
		b.accept(f)
	}
	return b
}

// Merge appends other to b. Entries without a filename take filename.
func (b *Batch) Merge(other Batch, filename string) {
	for _, f := range other.Filings {
		if f.Filename == "" {
			f.Filename = filename
		}
		b.Filings = append(b.Filings, f)
	}
	for _, inv := range other.Invalid {
		if inv.Filename == "" {
			inv.Filename = filename
		}
		b.Invalid = append(b.Invalid, inv)
	}
	b.Repaired = b.Repaired || other.Repaired
}

func (b *Batch) collect(doc any, filename string) {
	switch v := doc.(type) {
	case []any:
		for i, item := range v {
			name := filename
			if name == "" {
				name = fmt.Sprintf("item-%d", i+1)
			} else {
				name = fmt.Sprintf("%s#%d", filename, i+1)
			}
			b.collect(item, name)
		}
	case map[string]any:
		b.collectObject(v, filename)
	default:
		b.Invalid = append(b.Invalid, InvalidFile{Filename: filename, Reason: ReasonNotAnObject})
	}
}

func (b *Batch) collectObject(raw map[string]any, filename string) {
	o, _ := newObject(raw)
	if files := o.list("files", "arquivos"); o.has("isAnnual", "files") && files != nil {
		for i, entry := range files {
			eo, ok := newObject(entry)
			if !ok {
				b.Invalid = append(b.Invalid, InvalidFile{Filename: fmt.Sprintf("file-%d", i+1), Reason: ReasonNotAnObject})
				continue
			}
			name := eo.str("filename", "nome", "name")
			if name == "" {
				name = fmt.Sprintf("file-%d", i+1)
			}
			data, _ := eo.get("data", "dados")
			b.collect(data, name)
		}
		for _, inv := range o.list("invalidFiles", "arquivosInvalidos") {
			b.Invalid = append(b.Invalid, upstreamInvalid(inv))
		}
		return
	}
	if data, ok := o.get("dados"); ok && o.has("success") {
		b.collect(data, filename)
		return
	}
	f := Normalize(raw)
	if f.Filename == "" {
		f.Filename = filename
	}
	b.accept(f)
}

func (b *Batch) accept(f MonthlyFiling) {
	switch {
	case f.Identification.CNPJ == "":
		b.Invalid = append(b.Invalid, InvalidFile{Filename: f.Filename, Reason: ReasonMissingCNPJ})
	case f.Identification.Period == "":
		b.Invalid = append(b.Invalid, InvalidFile{Filename: f.Filename, Reason: ReasonMissingPeriod})
	default:
		b.Filings = append(b.Filings, f)
	}
}

func upstreamInvalid(v any) InvalidFile {
	if name, ok := v.(string); ok {
		return InvalidFile{Filename: name, Reason: ReasonUpstream}
	}
	o, _ := newObject(v)
	inv := InvalidFile{
		Filename: o.str("filename", "nome", "name", "file"),
		Reason:   o.str("reason", "motivo", "error", "erro"),
	}
	if inv.Reason == "" {
		inv.Reason = ReasonUpstream
	}
	return inv
}

// decodeLenient tries strict JSON, then json-repair, then Hjson.
func decodeLenient(data []byte) (any, bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, ErrUndecodable
	}
	var doc any
	if err := json.Unmarshal(trimmed, &doc); err == nil {
		return doc, false, nil
	}
	if repaired, err := jsonrepair.RepairJSON(string(trimmed)); err == nil {
		if err := json.Unmarshal([]byte(repaired), &doc); err == nil && isContainer(doc) {
			return doc, true, nil
		}
	}
	var loose any
	if err := hjson.Unmarshal(trimmed, &loose); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	// Round-trip so numbers and maps use encoding/json types.
	canonical, err := json.Marshal(loose)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if err := json.Unmarshal(canonical, &doc); err != nil || !isContainer(doc) {
		return nil, false, ErrUndecodable
	}
	return doc, true, nil
}

func isContainer(doc any) bool {
	switch doc.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
