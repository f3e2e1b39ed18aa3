package runner

import (
	"fmt"
	"strings"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/tool"
)

// Vars are the values substituted into argument templates.
type Vars struct {
	Prompt    string
	WorkDir   string
	SessionID string
	ThreadID  string
}

// VarsFor returns the template values of one turn.
func VarsFor(prompt string, sc adapter.SessionContext) Vars {
	return Vars{
		Prompt:    prompt,
		WorkDir:   sc.WorkDir,
		SessionID: sc.SessionID,
		ThreadID:  sc.ThreadID(),
	}
}

// ExpandTemplate replaces {prompt}, {workdir}, {session} and {thread} in
// template with double-quoted values. Other braces are left alone.
func ExpandTemplate(template string, v Vars) string {
	return strings.NewReplacer(
		"{prompt}", Quote(v.Prompt),
		"{workdir}", Quote(v.WorkDir),
		"{session}", Quote(v.SessionID),
		"{thread}", Quote(v.ThreadID),
	).Replace(template)
}

// Quote wraps s in double quotes, escaping the characters that stay special
// inside them.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\', '$', '`':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// SplitCommandLine splits a command line into arguments using shell word
// rules: whitespace separates words, single quotes are literal, and inside
// double quotes a backslash escapes ", \, $ and `. No expansion is done.
func SplitCommandLine(s string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		inQuote rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			if inQuote == '"' && !strings.ContainsRune("\"\\$`\n", r) {
				cur.WriteByte('\\')
			}
			if r != '\n' {
				cur.WriteRune(r)
			}
			escaped = false
		case inQuote == '\'':
			if r == '\'' {
				inQuote = 0
			} else {
				cur.WriteRune(r)
			}
		case inQuote == '"':
			switch r {
			case '"':
				inQuote = 0
			case '\\':
				escaped = true
			default:
				cur.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			inWord = true
		case r == '\'' || r == '"':
			inQuote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if escaped {
		return nil, fmt.Errorf("command line ends with an escape: %q", s)
	}
	if inQuote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in command line: %q", inQuote, s)
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}

// FormatCommandLine renders argv for logs, quoting words that would not
// survive SplitCommandLine unchanged.
func FormatCommandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\r\n\"'\\$`") {
			parts[i] = Quote(a)
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}

// BuildArgs returns the argv of a one-shot turn. The adapter builds it when
// there is one; otherwise the descriptor's argument template is expanded,
// and a tool without a template receives the prompt as its only argument.
func BuildArgs(desc tool.Descriptor, a adapter.Adapter, prompt string, sc adapter.SessionContext) ([]string, error) {
	if a != nil {
		return a.BuildArguments(desc, prompt, sc), nil
	}
	if strings.TrimSpace(desc.ArgumentTemplate) == "" {
		return []string{prompt}, nil
	}
	args, err := SplitCommandLine(ExpandTemplate(desc.ArgumentTemplate, VarsFor(prompt, sc)))
	if err != nil {
		return nil, fmt.Errorf("tool %q argument template: %w", desc.ID, err)
	}
	return args, nil
}

// PersistentArgs returns the argv used to launch the long-lived process of a
// persistent tool.
func PersistentArgs(desc tool.Descriptor, sc adapter.SessionContext) ([]string, error) {
	args, err := SplitCommandLine(ExpandTemplate(desc.PersistentArgs, VarsFor("", sc)))
	if err != nil {
		return nil, fmt.Errorf("tool %q persistent arguments: %w", desc.ID, err)
	}
	return args, nil
}
