// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"fmt"
	"text/template"
)

var relevancePrompt = template.Must(template.New("relevance").Parse(`You are screening research papers for an application idea.

Application domain: {{.Domain}}
{{- if .Utility}}
Specific utility: {{.Utility}}
{{- end}}

Candidate paper
Title: {{.Title}}
Abstract: {{.Abstract}}

Decide whether the candidate paper is relevant to the application idea: it
must address the same domain or offer a method that directly serves it.

Respond with a JSON object and nothing else:
{"decision": true or false, "reason": "one or two sentences"}
`))

var sectionsPrompt = template.Must(template.New("sections").Parse(`You are segmenting the text of a research paper into its canonical sections.

Return a JSON object with exactly these string fields:
- title: the paper title
- abstract: the abstract
- introduction: the introduction
- methodology: the method, model or approach sections
- experiments: experiments, evaluation and results
- conclusion: conclusion, discussion and future work
- code_link: a URL to the paper's code if one is given, else ""

Copy the text of each section verbatim as Markdown. Use "" for a section the
paper does not have. Leave out references, acknowledgements and page
headers. Do not include any text outside the JSON object.

Paper text:
{{.Text}}
`))

var analysisPrompt = template.Must(template.New("analysis").Parse(`You are an expert research paper analyst. Analyze the following research paper and return a structured analysis.

Respond with a JSON object with these fields:
- paper_title: the exact title of the paper
- analysis_thought_process: step-by-step reasoning. First list related work mentions, then identify the gap, then summarize the authors' specific solution.
- novelty: an object with
  - status_quo: what was the problem with previous methods
  - proposed_delta: what specific technical change this paper introduces
  - novelty_summary: a concise synthesis of the innovation
  - real_world_analogy: the innovation explained with a simple analogy
- summary: an object with
  - main_contribution: the key innovation or finding
  - methodology: the approach or methods used
  - applications: a list of real-world use cases (e.g. "Medical Diagnosis", "Robotics")
  - limitations: notable limitations or future work
- benchmarks: a list of every quantitative result in the tables or text, each with
  - name: the benchmark or dataset (e.g. "ImageNet-1k", "GSM8K")
  - score: the number achieved (e.g. "88.5%")
  - metric: the metric used (e.g. "Accuracy", "BLEU")
  - setting: the setting, such as "Zero-shot" or "Fine-tuned", or ""
  - is_this_paper_result: true if the authors achieved it, false for a baseline from prior work
  - source_quote: the exact text or table row where the number appears

Extract all benchmarks, including baseline comparisons, and be precise with
numbers. Use an empty list when the paper reports none. Do not include any
text outside the JSON object.

Paper content:
{{.Text}}
`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
