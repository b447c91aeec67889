package assistant

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFiles embed.FS

// prompts holds every state's template, named after its file. Parsing
// panics on syntax errors so a broken template fails at startup.
var prompts = template.Must(template.New("prompts").
	Option("missingkey=error").
	ParseFS(promptFiles, "prompts/*.tmpl"))

// Template names
const (
	promptSystem             = "system.tmpl"
	promptClassifyRequest    = "classify_request.tmpl"
	promptRewriteTask        = "rewrite_task.tmpl"
	promptClassifyTask       = "classify_task.tmpl"
	promptExecuteTask        = "execute_task.tmpl"
	promptSelectDecks        = "select_decks.tmpl"
	promptClassifySearch     = "classify_search.tmpl"
	promptExactSearch        = "exact_search.tmpl"
	promptFuzzySearch        = "fuzzy_search.tmpl"
	promptContentSearch      = "content_search.tmpl"
	promptVerifySearch       = "verify_search.tmpl"
	promptClassifyFoundCards = "classify_found_cards.tmpl"
	promptCopyFoundCards     = "copy_found_cards.tmpl"
	promptStream             = "stream.tmpl"
	promptClassifyQuestion   = "classify_question.tmpl"
	promptAnswerContent      = "answer_content.tmpl"
	promptAnswerSystem       = "answer_system.tmpl"
	promptStartStudy         = "start_study.tmpl"
	promptClassifyStudyInput = "classify_study_input.tmpl"
	promptExtractStudyAnswer = "extract_study_answer.tmpl"
	promptJudgeStudyAnswer   = "judge_study_answer.tmpl"
)

// promptData is the data every template is rendered with. Templates use
// the fields they need.
type promptData struct {
	Input      string
	Queries    string
	Actions    string
	Decks      string
	Commands   string
	Cards      string
	Search     string
	Total      int
	Threshold  float64
	Question   string
	Answer     string
	UserAnswer string
	Overview   string
}

// renderPrompt executes the named template.
func renderPrompt(name string, data promptData) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
