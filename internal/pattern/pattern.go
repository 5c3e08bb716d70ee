// Package pattern renders the text/template patterns used for permalinks and
// new file names, e.g. "/article/{{.year}}/{{.month}}/{{.name}}.html".
package pattern

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"trim":  func(cut, s string) string { return strings.Trim(s, cut) },
}

// Render executes pattern against data. Referencing a missing key is an error.
func Render(name, pattern string, data map[string]any) (string, error) {
	tpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(pattern)
	if err != nil {
		return "", fmt.Errorf("parse %s pattern: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s pattern: %w", name, err)
	}
	return buf.String(), nil
}

// AddDateParams sets year, month, day, hour, minute and second in params,
// zero padded. A zero t uses the current time.
func AddDateParams(params map[string]any, t time.Time) {
	if t.IsZero() {
		t = time.Now()
	}
	params["year"] = fmt.Sprintf("%04d", t.Year())
	params["month"] = fmt.Sprintf("%02d", int(t.Month()))
	params["day"] = fmt.Sprintf("%02d", t.Day())
	params["hour"] = fmt.Sprintf("%02d", t.Hour())
	params["minute"] = fmt.Sprintf("%02d", t.Minute())
	params["second"] = fmt.Sprintf("%02d", t.Second())
}
