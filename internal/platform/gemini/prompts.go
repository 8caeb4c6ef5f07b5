package gemini

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/phrazzld/aiorch/internal/domain"
)

// instructions describe, per task type, which response fields the model must fill.
var instructions = map[domain.TaskType]string{
	domain.TaskAnalysis:       `Analyse the input. Put findings in "structured" as named fields and a short overview in "text".`,
	domain.TaskGeneration:     `Write the requested content into "text".`,
	domain.TaskSummarization:  `Summarise the input concisely into "text".`,
	domain.TaskTranslation:    `Translate the input into the language requested in it and put the translation in "text".`,
	domain.TaskClassification: `Classify the input. Return one or more "labels", each with a "name" and a "score" between 0 and 1.`,
	domain.TaskPrediction:     `Predict the outcome described in the input. Put predicted values in "structured" and the reasoning in "text".`,
	domain.TaskPlanning:       `Produce a plan for the input. Put ordered steps in "structured" under "steps" and a summary in "text".`,
	domain.TaskOptimization:   `Suggest optimisations for the input. Put each recommendation in "structured" and a summary in "text".`,
	domain.TaskAutomation:     `Describe how to automate the input. Put the workflow in "structured" and a summary in "text".`,
	domain.TaskReporting:      `Write a report on the input into "text".`,
	domain.TaskSupport:        `Answer the support request in the input helpfully in "text".`,
	domain.TaskSearch:         `Return the most relevant results for the query in "items", best first.`,
}

const promptSource = `You are one model in an AI task orchestration service.
Task type: {{.Type}}
{{instruction .Type}}
Respond with a single JSON object using only the fields "text", "labels", "items", "structured" and "confidence".
Set "confidence" to your confidence in the answer, between 0 and 1.
{{- with .Context}}
{{- if .RecentTasks}}
Recent task types in this session: {{join .RecentTasks}}
{{- end}}
{{- if .Business}}
Business context: {{json .Business}}
{{- end}}
{{- if .Preferences}}
User preferences: {{json .Preferences}}
{{- end}}
{{- end}}
{{- range .Attachments}}
Attachment ({{.Type}}): {{.URL}}
{{- end}}

Input:
{{.Input}}
`

var promptTemplate = template.Must(template.New("task").Funcs(template.FuncMap{
	"instruction": func(t domain.TaskType) string { return instructions[t] },
	"join": func(types []domain.TaskType) string {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		return strings.Join(names, ", ")
	},
	"json": marshalCompact,
}).Parse(promptSource))

// createPrompt renders the prompt for task.
func createPrompt(task domain.Task) (string, error) {
	if strings.TrimSpace(task.Input) == "" {
		return "", ErrEmptyInput
	}
	if _, ok := instructions[task.Type]; !ok {
		return "", fmt.Errorf("no prompt for task type %q", task.Type)
	}

	data := promptData{
		Type:        task.Type,
		Input:       task.Input,
		Attachments: task.Attachments,
		Context:     task.Context,
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
