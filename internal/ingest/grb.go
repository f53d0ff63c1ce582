package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

// grbIndexKeys are the record fields whose non-empty values become
// index texts. title_zh and title_zhtw are distinct keys upstream.
var grbIndexKeys = []string{"title_zh", "title_en", "abstract_zhtw", "abstract_en"}

var grbDocTemplate = template.Must(template.New("grb").Parse(
	`{{if .TitleZhTW}}計畫中文名稱：{{.TitleZhTW}}
{{end}}{{if .TitleEn}}計畫英文名稱：{{.TitleEn}}
{{end}}{{if .AbstractZhTW}}中文摘要：{{.AbstractZhTW}}
{{end}}{{if .AbstractEn}}英文摘要：{{.AbstractEn}}
{{end}}{{if .ResearcherZhTW}}研究人員中文：{{.ResearcherZhTW}}
{{end}}{{if .ResearcherEn}}研究人員英文：{{.ResearcherEn}}
{{end}}{{if .Host}}計畫主持人：{{.Host}}
{{end}}{{if .Year}}計畫年度：{{.Year}}
{{end}}{{if .ExecutionOrgan}}計畫執行單位：{{.ExecutionOrgan}}
{{end}}{{if .PlanOrgan}}主管機關：{{.PlanOrgan}}
{{end}}{{if .Domain}}研究領域：{{.Domain}}
{{end}}{{if .Type}}研究屬性：{{.Type}}
{{end}}`))

// grbDoc carries the template fields of one research-project record.
type grbDoc struct {
	TitleZhTW      string
	TitleEn        string
	AbstractZhTW   string
	AbstractEn     string
	ResearcherZhTW string
	ResearcherEn   string
	Host           string
	Year           string
	ExecutionOrgan string
	PlanOrgan      string
	Domain         string
	Type           string
}

// LoadGRB reads every *.jsonl file under dir, one research-project
// record per line. A record with no index text yields no documents.
func LoadGRB(dir string) ([]Prepared, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("listing JSONL files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no *.jsonl files under %s", dir)
	}

	var prepared []Prepared
	for _, path := range paths {
		fromFile, err := loadGRBFile(path)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, fromFile...)
	}
	return prepared, nil
}

func loadGRBFile(path string) ([]Prepared, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var prepared []Prepared
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var record map[string]any
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", path, line, err)
		}

		var indexTexts []string
		for _, key := range grbIndexKeys {
			if v := stringField(record, key); v != "" {
				indexTexts = append(indexTexts, v)
			}
		}
		if len(indexTexts) == 0 {
			continue
		}

		body, err := renderGRB(record)
		if err != nil {
			return nil, fmt.Errorf("rendering %s line %d: %w", path, line, err)
		}
		prepared = append(prepared, Prepared{Body: body, IndexTexts: indexTexts})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return prepared, nil
}

func renderGRB(record map[string]any) (string, error) {
	doc := grbDoc{
		TitleZhTW:      stringField(record, "title_zhtw"),
		TitleEn:        stringField(record, "title_en"),
		AbstractZhTW:   stringField(record, "abstract_zhtw"),
		AbstractEn:     stringField(record, "abstract_en"),
		ResearcherZhTW: stringField(record, "researcher_zhtw"),
		ResearcherEn:   stringField(record, "researcher_en"),
		Host:           stringField(record, "host"),
		Year:           stringField(record, "year"),
		ExecutionOrgan: stringField(record, "execution_organ"),
		PlanOrgan:      stringField(record, "plan_organ"),
		Domain:         stringField(record, "domain"),
		Type:           stringField(record, "type"),
	}

	var b strings.Builder
	if err := grbDocTemplate.Execute(&b, doc); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

// stringField tolerates numeric JSON values, year often arrives as a
// number.
func stringField(record map[string]any, key string) string {
	switch v := record[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
