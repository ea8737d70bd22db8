package wizard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrInputClosed is returned when the input ends before an answer is read
var ErrInputClosed = errors.New("input closed")

// Prompter asks questions on out and reads one-line answers from in.
// Lines are read by a background goroutine so a canceled context interrupts
// a pending question.
type Prompter struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan line
}

type line struct {
	text string
	err  error
}

// NewPrompter creates a prompter
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the trimmed answer, or def when the answer is empty
func (p *Prompter) Ask(ctx context.Context, question, def string) (string, error) {
	fmt.Fprint(p.out, question)

	text, err := p.readLine(ctx)
	if err != nil {
		fmt.Fprintln(p.out)
		return "", err
	}

	answer := strings.TrimSpace(text)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	p.once.Do(func() {
		p.lines = make(chan line)
		go p.scan()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-p.lines:
		if !ok {
			return "", ErrInputClosed
		}
		return l.text, l.err
	}
}

// scan feeds lines to readLine until the input ends
func (p *Prompter) scan() {
	defer close(p.lines)
	for {
		text, err := p.in.ReadString('\n')
		switch {
		case err == nil:
			p.lines <- line{text: text}
		case errors.Is(err, io.EOF):
			if text != "" {
				p.lines <- line{text: text}
			}
			return
		default:
			p.lines <- line{err: fmt.Errorf("failed to read answer: %w", err)}
			return
		}
	}
}

// AskValid repeats question until parse accepts the answer. Rejections are
// shown through reject.
func AskValid[T any](ctx context.Context, p *Prompter, question, def string, parse func(string) (T, error), reject func(error)) (T, error) {
	for {
		answer, err := p.Ask(ctx, question, def)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := parse(answer)
		if err == nil {
			return v, nil
		}
		reject(err)
	}
}
