package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// MethodScore is one method's best score for a clause, used in report output.
type MethodScore struct {
	Method string
	Score  float64
}

// ClauseReport is the per-clause breakdown for one reported document:
// the clause display text plus its top methods, best score first.
type ClauseReport struct {
	ClauseID   string
	ClauseText string
	Methods    []MethodScore
}

// DocReport is one document entry of the final report.
type DocReport struct {
	DocumentID     int
	DocumentText   string
	DocumentSource string
	Frequency      int
	Clauses        []ClauseReport
}

// AnalysisReport is the terminal output artifact: the top documents in rank
// order, each with its ranked, truncated clause/method breakdown.
type AnalysisReport struct {
	Docs []DocReport
}

// MarshalJSON emits the report wire shape
//
//	{document_id: {document_text, document_source, frequency,
//	               clause_ids: {clause_id: {clause_text, method: score, ...}}}}
//
// with object keys written in rank order (documents) and score order
// (clauses, methods), since the report is an ordered sequence.
func (r AnalysisReport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, doc := range r.Docs {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONKey(&buf, strconv.Itoa(doc.DocumentID))
		if err := writeDocReport(&buf, doc); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeDocReport(buf *bytes.Buffer, doc DocReport) error {
	buf.WriteByte('{')
	writeJSONKey(buf, "document_text")
	if err := writeJSONValue(buf, doc.DocumentText); err != nil {
		return err
	}
	buf.WriteByte(',')
	writeJSONKey(buf, "document_source")
	if err := writeJSONValue(buf, doc.DocumentSource); err != nil {
		return err
	}
	buf.WriteByte(',')
	writeJSONKey(buf, "frequency")
	buf.WriteString(strconv.Itoa(doc.Frequency))
	buf.WriteByte(',')
	writeJSONKey(buf, "clause_ids")
	buf.WriteByte('{')
	for i, cl := range doc.Clauses {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONKey(buf, cl.ClauseID)
		buf.WriteByte('{')
		writeJSONKey(buf, "clause_text")
		if err := writeJSONValue(buf, cl.ClauseText); err != nil {
			return err
		}
		for _, ms := range cl.Methods {
			buf.WriteByte(',')
			writeJSONKey(buf, ms.Method)
			if err := writeJSONValue(buf, ms.Score); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	buf.WriteByte('}')
	return nil
}

func writeJSONKey(buf *bytes.Buffer, key string) {
	b, _ := json.Marshal(key)
	buf.Write(b)
	buf.WriteByte(':')
}

func writeJSONValue(buf *bytes.Buffer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
