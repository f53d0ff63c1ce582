package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
)

// Prepared is a document body paired with the texts it should be
// retrievable under. The body is stored once per index text, each copy
// embedded from its own index text rather than from the body.
type Prepared struct {
	Body       string
	IndexTexts []string
}

// QAEntry is one row of the government QA dataset.
type QAEntry struct {
	Prompt     string
	Response   string
	Resource   string
	PostedDate string
}

var qaDocTemplate = template.Must(template.New("qa").Parse(
	`類似問題：{{.Prompt}}
{{if .Resource}}來自{{.Resource}}的答案：{{else}}參考答案：{{end}}
{{.Response}}
{{if .Resource}}參考資料：{{.Resource}}常見問答
{{end}}{{if .PostedDate}}日期：{{.PostedDate}}{{end}}`))

// LoadQACSV reads a QA dataset file with a
// prompt,response,resource,postd_date header. Every row becomes one
// document body indexed under both its question and its answer.
func LoadQACSV(path string) ([]Prepared, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening QA dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	return parseQACSV(f)
}

func parseQACSV(r io.Reader) ([]Prepared, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading QA header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"prompt", "response"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("QA dataset missing %q column", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var prepared []Prepared
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading QA row %d: %w", line, err)
		}

		entry := QAEntry{
			Prompt:     field(row, "prompt"),
			Response:   field(row, "response"),
			Resource:   field(row, "resource"),
			PostedDate: field(row, "postd_date"),
		}

		var b strings.Builder
		if err := qaDocTemplate.Execute(&b, entry); err != nil {
			return nil, fmt.Errorf("rendering QA row %d: %w", line, err)
		}

		prepared = append(prepared, Prepared{
			Body:       strings.TrimSpace(b.String()),
			IndexTexts: []string{entry.Prompt, entry.Response},
		})
	}
	return prepared, nil
}
