package judge

import (
	"bytes"
	"strings"
	"text/template"
)

var promptTmpl = template.Must(template.New("judge").Parse(`{{.Rubric}}

{{if .Prompt}}The assistant was asked:
<request>
{{.Prompt}}
</request>

{{end}}{{if .Expectations}}A good response is expected to cover:
<expectations>
{{range .Expectations}}- {{.}}
{{end}}</expectations>

{{end}}The response to evaluate:
<response>
{{.Response}}
</response>

Score the response between 0.0 and 1.0. Respond with ONLY a JSON object:
{"score": 0.0, "reasoning": "one or two sentences explaining the score"}`))

// BuildPrompt renders the judge instruction for one response.
func BuildPrompt(persona Persona, prompt, response string, expectations []string) string {
	var buf bytes.Buffer
	// The template only fails on a nil writer or bad field names.
	_ = promptTmpl.Execute(&buf, struct {
		Rubric       string
		Prompt       string
		Response     string
		Expectations []string
	}{
		Rubric:       persona.Rubric(),
		Prompt:       strings.TrimSpace(prompt),
		Response:     response,
		Expectations: expectations,
	})
	return buf.String()
}
