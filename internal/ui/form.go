package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type fieldSpec struct {
	key         string
	label       string
	placeholder string
	secret      bool
	limit       int
}

// form is a vertical list of text inputs with one focused field.
type form struct {
	keys   []string
	labels []string
	inputs []textinput.Model
	focus  int
	errors map[string]string
}

func newForm(fields ...fieldSpec) form {
	f := form{errors: map[string]string{}}
	for _, fs := range fields {
		in := textinput.New()
		in.Placeholder = fs.placeholder
		in.Prompt = ""
		if fs.limit > 0 {
			in.CharLimit = fs.limit
		}
		if fs.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.keys = append(f.keys, fs.key)
		f.labels = append(f.labels, fs.label)
		f.inputs = append(f.inputs, in)
	}
	return f
}

// focusField focuses field i, blurring the rest.
func (f *form) focusField(i int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	for j := range f.inputs {
		if j != f.focus {
			f.inputs[j].Blur()
		}
	}
	return f.inputs[f.focus].Focus()
}

func (f *form) next() tea.Cmd { return f.focusField(f.focus + 1) }
func (f *form) prev() tea.Cmd { return f.focusField(f.focus - 1) }

// last reports whether the focused field is the final one.
func (f *form) last() bool { return f.focus == len(f.inputs)-1 }

func (f *form) update(msg tea.Msg) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) value(key string) string {
	for i, k := range f.keys {
		if k == key {
			return f.inputs[i].Value()
		}
	}
	return ""
}

func (f *form) reset() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	f.errors = map[string]string{}
}

func (f *form) view(styles Styles) string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := styles.MutedText.Render(f.labels[i])
		if i == f.focus {
			label = styles.AccentText.Render(f.labels[i])
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n")
		if msg := f.errors[f.keys[i]]; msg != "" {
			b.WriteString(styles.DangerText.Render(msg))
			b.WriteString("\n")
		}
	}
	return b.String()
}
