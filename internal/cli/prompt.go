package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
)

// errNoInput is returned when stdin ends before a required answer.
var errNoInput = errors.New("no more input")

// prompter asks questions on w and reads answers line by line from r.
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(r io.Reader, w io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(r), w: w}
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *prompter) readLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", errNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ask prints label with an optional default and returns the answer, or def
// when the answer is empty.
func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.w, "%s: ", label)
	}
	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// choose prints a numbered menu and returns the selected item.
func (p *prompter) choose(title string, items []string) (string, error) {
	fmt.Fprintln(p.w, title)
	for i, item := range items {
		fmt.Fprintf(p.w, "  %d. %s\n", i+1, item)
	}
	for {
		answer, err := p.ask(fmt.Sprintf("Select 1-%d", len(items)), "")
		if err != nil {
			return "", err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr == nil && n >= 1 && n <= len(items) {
			return items[n-1], nil
		}
		// Accept the item name itself as well.
		for _, item := range items {
			if answer == item {
				return item, nil
			}
		}
		fmt.Fprintf(p.w, "Please enter a number between 1 and %d.\n", len(items))
	}
}

// askPrompt asks for one module prompt, offering its default. It returns
// ok=false when an optional prompt without a default is left empty.
func (p *prompter) askPrompt(pr *schema.Prompt) (value.Value, bool, error) {
	label := pr.Name
	if pr.Description != "" {
		label = fmt.Sprintf("%s (%s)", pr.Description, pr.Name)
	}
	if len(pr.Choices) > 0 {
		label += " {" + describeChoices(pr.Choices) + "}"
	}
	def := ""
	if pr.HasDefault() {
		def = pr.Default.String()
	}
	for {
		answer, err := p.ask(label, def)
		if err != nil {
			return value.Value{}, false, err
		}
		if answer != "" {
			return value.String(answer), true, nil
		}
		if pr.HasDefault() {
			return *pr.Default, true, nil
		}
		if !pr.Required {
			return value.Value{}, false, nil
		}
		fmt.Fprintf(p.w, "%s is required.\n", pr.Name)
	}
}
